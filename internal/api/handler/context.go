package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/api/middleware"
	"github.com/tasktracker/task-api/internal/core/domain"
)

// ctxPrincipal returns the principal injected by the Principal middleware.
// Its absence means the route was mounted without authentication.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil || p.ID() == "" {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

// bindAndValidate decodes the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("non_field_errors", "Invalid payload.")
	}
	return validate(c, req)
}

func validate(c echo.Context, req any) error {
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
