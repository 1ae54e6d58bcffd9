package web

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chillhabit/chillhabit/internal/server/auth"
)

// userIDKey is the echo context key the session middleware stores the
// authenticated user id under.
const userIDKey = "userID"

// requireAuth verifies the bearer token and stashes the user id in the
// request context. The 401 bodies are part of the API contract the SPA's
// error handling depends on.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "No Token, authorization denied"})
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid token format"})
		}

		userID, err := auth.GetUserIDFromToken(parts[1], s.jwtSecret)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Token is invalid"})
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func currentUserID(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(string); ok {
		return id
	}
	return ""
}
