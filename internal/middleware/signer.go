package middleware

import (
	"strings"

	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SignerHeader carries the account a request acts for. Whatever sits in front
// of the API (gateway, wallet relay) is trusted to have authenticated it.
const SignerHeader = "X-Account"

const signerLocal = "signer"

// Signer copies the signer header into Locals. It never rejects a request;
// RequireSigner does that for mutating routes.
func Signer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s := strings.TrimSpace(c.Get(SignerHeader)); s != "" {
			c.Locals(signerLocal, s)
		}
		return c.Next()
	}
}

// RequireSigner returns 401 with the standard error format when no signer
// was supplied.
func RequireSigner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetSigner(c) == "" {
			return response.Unauthorized(c, "Missing "+SignerHeader+" header")
		}
		return c.Next()
	}
}

// GetSigner returns the signer for this request ("" if none).
func GetSigner(c *fiber.Ctx) string {
	s, _ := c.Locals(signerLocal).(string)
	return s
}
