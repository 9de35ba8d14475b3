// middleware/gateway.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware rejects any request that does not carry the
// platform gateway's bearer service token. The token must arrive as
// "Bearer <token>"; bare tokens are refused.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("AGENT_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ AGENT_SERVICE_TOKEN is not set, refusing to serve unauthenticated traffic")
	}

	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Printf("🚫 Rejected %s: missing or malformed Authorization header", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication required",
			})
		}
		if strings.TrimPrefix(auth, "Bearer ") != expectedToken {
			log.Printf("🚫 Rejected %s: gateway token mismatch", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway token",
			})
		}
		return c.Next()
	}
}
