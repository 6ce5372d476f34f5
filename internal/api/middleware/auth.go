package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// Context keys set by the middleware in this package.
const (
	ContextKeyIdentity  = "identity"
	ContextKeyPrincipal = "principal"
)

const wwwAuthenticate = `Bearer realm="api"`

// TokenVerifier authenticates an access token and returns the identity it
// names, freshly loaded from the store.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// Auth validates the bearer token and injects the identity into context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "authentication credentials were not provided")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return unauthorized(c, "invalid authorization header")
			}

			identity, err := verifier.Verify(c.Request().Context(), strings.TrimSpace(parts[1]))
			if errors.Is(err, domain.ErrInvalidCredentials) {
				return unauthorized(c, "invalid token")
			}
			if err != nil {
				return err
			}

			c.Set(ContextKeyIdentity, identity)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, wwwAuthenticate)
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
