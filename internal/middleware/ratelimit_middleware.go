package middleware

import (
	"github.com/antoinedamay/transferttt/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// RateLimit gates a route group on the fixed-window limiter, keyed by the
// client's best-effort IP.
func RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		}
		return c.Next()
	}
}
