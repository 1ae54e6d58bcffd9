// Package web exposes the HTTP API: the auth endpoints under /api/auth,
// the habit endpoints under /api/habits, and a health probe at /.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chillhabit/chillhabit/internal/logging"
	"github.com/chillhabit/chillhabit/internal/server/config"
	"github.com/chillhabit/chillhabit/internal/server/models"
	"github.com/chillhabit/chillhabit/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type authSvc interface {
	Register(ctx context.Context, username, email, password string) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	OAuthLogin(ctx context.Context, credential string) (*services.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

type habitSvc interface {
	Create(ctx context.Context, userID, title string) (*models.Habit, error)
	List(ctx context.Context, userID string) ([]*models.Habit, error)
	Rename(ctx context.Context, userID, habitID, title string) (*models.Habit, error)
	Delete(ctx context.Context, userID, habitID string) error
	ToggleRecord(ctx context.Context, userID, habitID, date string) (*models.Habit, error)
}

type Server struct {
	echo      *echo.Echo
	addr      string
	logger    logging.Logger
	auth      authSvc
	habits    habitSvc
	jwtSecret []byte
}

func NewServer(cfg *config.Config, authSvc authSvc, habitSvc habitSvc, logger logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	s := &Server{
		echo:      e,
		addr:      cfg.EndpointAddr,
		logger:    logger,
		auth:      authSvc,
		habits:    habitSvc,
		jwtSecret: []byte(cfg.SecretKey),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	authLimiter := rateLimiter(newFixedWindowStore(authRateLimit, authRateWindow),
		"Too many authentication attempts, please try again later.")
	resetLimiter := rateLimiter(newFixedWindowStore(resetRateLimit, resetRateWindow),
		"Too many password reset requests, please try again later.")

	s.echo.GET("/", s.handleHealth)

	authGroup := s.echo.Group("/api/auth")
	authGroup.POST("/register", s.handleRegister, authLimiter)
	authGroup.POST("/login", s.handleLogin, authLimiter)
	authGroup.POST("/google", s.handleGoogleLogin)
	authGroup.POST("/verify-email", s.handleVerifyEmail)
	authGroup.POST("/resend-verification", s.handleResendVerification, authLimiter)
	authGroup.POST("/forgot-password", s.handleForgotPassword, resetLimiter)
	authGroup.POST("/reset-password", s.handleResetPassword, authLimiter)
	authGroup.POST("/change-password", s.handleChangePassword, s.requireAuth)
	authGroup.GET("/me", s.handleMe, s.requireAuth)

	habitGroup := s.echo.Group("/api/habits", s.requireAuth)
	habitGroup.GET("", s.handleListHabits)
	habitGroup.POST("", s.handleCreateHabit)
	habitGroup.PATCH("/:id/toggle", s.handleToggleHabit)
	habitGroup.PUT("/:id", s.handleRenameHabit)
	habitGroup.DELETE("/:id", s.handleDeleteHabit)
}

// Run starts the listener and blocks until the context is cancelled or the
// server fails. Shutdown drains in-flight requests for up to
// shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.addr)
	}()

	s.logger.Info(ctx, "http server starting", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info(ctx, "http server shutting down")
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
