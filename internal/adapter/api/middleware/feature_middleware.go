package middleware

import (
	"github.com/labstack/echo/v4"

	"tradeboard/pkg/errors"
	"tradeboard/pkg/response"
)

// RequireEnabled answers 503 while enabled reports false, e.g. when no
// board channel is configured.
func RequireEnabled(enabled func() bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !enabled() {
				return response.Error(c, errors.ServiceUnavailable("Trading is not available right now"))
			}
			return next(c)
		}
	}
}
