// middleware/auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// UserContextMiddleware resolves the calling user for secured routes.
// The Gateway normally forwards identity via X-User-ID; direct dashboard
// sessions present an HS256 session token instead.
func UserContextMiddleware() fiber.Handler {
	secret := []byte(os.Getenv("AGENT_JWT_SECRET"))

	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")

		if userID == "" {
			if token := c.Get("X-Session-Token"); token != "" && len(secret) > 0 {
				userID = parseSessionToken(token, secret)
			}
		}

		if userID == "" {
			log.Printf("❌ [USER_CTX] No user identity on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing user identity — request must carry gateway auth context or a session token",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// parseSessionToken validates the HS256 session JWT and returns its
// subject, or "" when the token is unusable.
func parseSessionToken(raw string, secret []byte) string {
	raw = strings.TrimPrefix(raw, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		log.Printf("❌ [USER_CTX] Invalid session token: %v", err)
		return ""
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
