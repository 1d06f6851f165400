package middleware

import (
	"context"
	"log/slog"
	"strings"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "warbler_session"

const identityLocalsKey = "identity"

// SessionResolver maps an opaque session token to an identity.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (models.Identity, error)
}

// SessionToken extracts the session token from the cookie, the Authorization
// header or, for websocket upgrades, the token query parameter.
func SessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookieName); token != "" {
		return token
	}
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

// ResolveSession resolves the caller's identity on every request. Invalid or
// missing tokens yield the anonymous identity; gating happens in AuthRequired.
// A session store failure ends the request with 503 rather than demoting a
// signed-in caller to anonymous.
func ResolveSession(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := models.Anonymous

		if token := SessionToken(c); token != "" && resolver != nil {
			id, err := resolver.Resolve(c.UserContext(), token)
			if err != nil {
				Logger.ErrorContext(c.UserContext(), "session lookup failed", slog.String("error", err.Error()))
				return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
			}
			identity = id
		}

		c.Locals(identityLocalsKey, identity)
		if !identity.IsAnonymous() {
			c.Locals("userID", identity.UserID)
			c.SetUserContext(WithUserID(c.UserContext(), identity.UserID))
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity set by ResolveSession.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	if id, ok := c.Locals(identityLocalsKey).(models.Identity); ok {
		return id
	}
	return models.Anonymous
}

// AuthRequired rejects anonymous callers with 401.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentIdentity(c).IsAnonymous() {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Access unauthorized"))
		}
		return c.Next()
	}
}
