package auth

import (
	"strings"

	"sales-analytics-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxUsernameKey = "username"

	TokenCookieName = "auth_token"
)

// JWTMiddleware accepts the session token from the auth_token cookie or an
// "Authorization: Bearer" header.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(TokenCookieName)
		if tokenStr == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if authHeader == "" {
				return fiber.NewError(fiber.StatusUnauthorized, "Authorization required")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
			}
			tokenStr = parts[1]
		}

		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			c.ClearCookie(TokenCookieName)
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxUsernameKey, claims.Username)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Role is missing")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Insufficient permissions")
	}
}

// CurrentUser returns the id and role put on the request by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (uint, models.UserRole) {
	id, _ := c.Locals(CtxUserIDKey).(uint)
	role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return id, role
}
