package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"tradeboard/internal/infrastructure/ratelimit"
	"tradeboard/pkg/errors"
	"tradeboard/pkg/logger"
	"tradeboard/pkg/response"
)

// RateLimit throttles requests per caller for one action bucket. Callers
// are identified by the bridge user id, or the client IP before
// authentication.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get("uid").(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: blocked request %s", logger.Fields("caller", key, "action", action, "wait", wait))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
