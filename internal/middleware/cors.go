package middleware

import (
	"strings"

	"farmoracle-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig holds CORS configuration (suffix + dev password).
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

// CORS allows origins ending with AllowedSuffix, localhost in dev, or
// requests with the correct dev-password header. Preflights from an allowed
// origin are answered here since every ledger write carries the signer header.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		// No origin (e.g. same-origin or tools): allow
		if origin == "" {
			return c.Next()
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		setCORSHeaders(c, origin)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	lower := strings.ToLower(origin)
	switch {
	case c.Method() == fiber.MethodOptions && (strings.HasPrefix(lower, "http://localhost:") || strings.HasPrefix(lower, "http://127.0.0.1:")):
		return true
	case cfg.AllowedSuffix != "" && strings.HasSuffix(lower, strings.ToLower(cfg.AllowedSuffix)):
		return true
	case cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword:
		return true
	}
	return false
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Set("Access-Control-Allow-Headers", "Content-Type, dev-password, "+SignerHeader+", "+traceIDHeader)
	c.Set("Access-Control-Expose-Headers", traceIDHeader)
	c.Vary(fiber.HeaderOrigin)
}
