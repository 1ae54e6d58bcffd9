package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/server/models"
)

type messageResponse struct {
	Message string `json:"message"`
}

type actionResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type createHabitRequest struct {
	Title string `json:"title"`
}

type renameHabitRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "Hey app workin! :P")
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	res, err := s.auth.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return c.JSON(http.StatusConflict, messageResponse{Message: "User already exists"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"token":                 res.Token,
		"message":               "Registration successful! Please check your email to verify your account.",
		"emailVerificationSent": res.EmailVerificationSent,
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	res, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, sessionResponse{Token: res.Token, User: res.User.Profile()})
}

func (s *Server) handleGoogleLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	res, err := s.auth.OAuthLogin(c.Request().Context(), req.Credential)
	if err != nil {
		if errors.Is(err, common.ErrorOAuthVerification) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Google authentication failed"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, sessionResponse{Token: res.Token, User: res.User.Profile()})
}

func (s *Server) handleVerifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	if err := s.auth.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		if errors.Is(err, common.ErrorActionTokenInvalid) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid or expired verification token"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, actionResponse{Message: "Email verified successfully!", Success: true})
}

func (s *Server) handleResendVerification(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	if err := s.auth.ResendVerification(c.Request().Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return c.JSON(http.StatusNotFound, messageResponse{Message: "User not found"})
		case errors.Is(err, common.ErrorAlreadyVerified):
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Email is already verified"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, actionResponse{Message: "Verification email sent successfully!", Success: true})
}

// handleForgotPassword answers identically for known and unknown emails.
// The one failure it reports is a mail transport error, as 502.
func (s *Server) handleForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	if err := s.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, common.ErrorEmailSendFailed) {
			return c.JSON(http.StatusBadGateway, messageResponse{Message: "Failed to send password reset email"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, actionResponse{
		Message: "If an account with that email exists, we've sent a password reset link.",
		Success: true,
	})
}

func (s *Server) handleResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	if err := s.auth.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, common.ErrorActionTokenInvalid) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid or expired reset token"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, actionResponse{Message: "Password reset successfully!", Success: true})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	err := s.auth.ChangePassword(c.Request().Context(), currentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, common.ErrorInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Current password is incorrect"})
		}
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, actionResponse{Message: "Password changed successfully!", Success: true})
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.auth.CurrentUser(c.Request().Context(), currentUserID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, user.Profile())
}

func (s *Server) handleListHabits(c echo.Context) error {
	habits, err := s.habits.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, habits)
}

func (s *Server) handleCreateHabit(c echo.Context) error {
	var req createHabitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	habit, err := s.habits.Create(c.Request().Context(), currentUserID(c), req.Title)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, habit)
}

func (s *Server) handleToggleHabit(c echo.Context) error {
	habit, err := s.habits.ToggleRecord(c.Request().Context(), currentUserID(c), c.Param("id"), c.QueryParam("date"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Habit not found"})
		}
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, habit.Records)
}

func (s *Server) handleRenameHabit(c echo.Context) error {
	var req renameHabitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	habit, err := s.habits.Rename(c.Request().Context(), currentUserID(c), c.Param("id"), req.Title)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Habit is not found"})
		}
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, habit)
}

func (s *Server) handleDeleteHabit(c echo.Context) error {
	if err := s.habits.Delete(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Habit is not found"})
		}
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Habit removed"})
}

// writeError maps the error taxonomy onto statuses. Validation messages
// pass through to the client; everything else collapses into a generic
// body so no internal detail leaks.
func (s *Server) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: validationMessage(err)})
	case errors.Is(err, common.ErrorInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid credentials"})
	case errors.Is(err, common.ErrorAccountLocked):
		return c.JSON(http.StatusLocked, messageResponse{
			Message: "Account temporarily locked due to too many failed login attempts. Please try again later.",
		})
	case errors.Is(err, common.ErrorUnauthenticated):
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Token is invalid"})
	case errors.Is(err, common.ErrorConflict):
		return c.JSON(http.StatusConflict, messageResponse{Message: "Conflicting account state"})
	case errors.Is(err, common.ErrorNotFound):
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Not found"})
	case errors.Is(err, common.ErrorEmailSendFailed):
		return c.JSON(http.StatusBadGateway, messageResponse{Message: "Failed to send email"})
	default:
		s.logger.Error(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error"})
	}
}

// validationMessage strips the sentinel prefix, leaving the human part.
func validationMessage(err error) string {
	msg := err.Error()
	if cut, ok := strings.CutPrefix(msg, common.ErrorValidation.Error()+": "); ok {
		return cut
	}
	return msg
}
