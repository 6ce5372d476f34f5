package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// RoleResolver derives the role of an identity.
type RoleResolver interface {
	Resolve(identity *domain.Identity) domain.Role
}

// Principal resolves the role of the authenticated identity on every request
// and stores the resulting principal in context. Must run after Auth.
func Principal(resolver RoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := c.Get(ContextKeyIdentity).(*domain.Identity)
			if identity == nil || identity.ID == "" {
				return unauthorized(c, "authentication credentials were not provided")
			}

			c.Set(ContextKeyPrincipal, &domain.Principal{
				Identity: identity,
				Role:     resolver.Resolve(identity),
			})
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by Principal, or nil.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(ContextKeyPrincipal).(*domain.Principal)
	return p
}
