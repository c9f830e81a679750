package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tradeboard/internal/domain/entity"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderGuildID   = "X-Guild-ID"
	HeaderUserRoles = "X-User-Roles"

	contextActor = "actor"
)

// AuthMiddleware trusts the identity asserted by the chat bridge. When a
// secret is configured, requests must also carry it as a bearer token.
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.secret != "" {
			authHeader := c.Request().Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}
			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid bridge token")
			}
		}

		userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
		if userID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, HeaderUserID+" header is required")
		}

		actor := entity.Actor{
			UserID:  userID,
			GuildID: strings.TrimSpace(c.Request().Header.Get(HeaderGuildID)),
			Roles:   splitRoles(c.Request().Header.Get(HeaderUserRoles)),
		}
		c.Set("uid", actor.UserID)
		c.Set(contextActor, actor)

		return next(c)
	}
}

// ActorFrom returns the actor stored by Authenticate.
func ActorFrom(c echo.Context) (entity.Actor, bool) {
	actor, ok := c.Get(contextActor).(entity.Actor)
	return actor, ok
}

func splitRoles(header string) []string {
	var roles []string
	for _, role := range strings.Split(header, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
