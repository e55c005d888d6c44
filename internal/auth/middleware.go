package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// JWTMiddleware validates bearer tokens and stores user_id in locals.
// Browser websocket clients cannot set headers, so the access_token query
// parameter is accepted when no Authorization header is sent.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := parseBearer(c.Get("Authorization"))
		if token == "" && c.Get("Authorization") == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := parseClaims(token, secretBytes)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(userIDKey, claims.UserID)
		return c.Next()
	}
}

// UserID returns the authenticated user set by JWTMiddleware, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// RequireUser returns the authenticated user or a 401 error.
func RequireUser(c *fiber.Ctx) (string, error) {
	id := UserID(c)
	if id == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}
	return id, nil
}

func parseBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
