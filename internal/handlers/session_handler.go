package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// InitSession creates a fresh upload session for the client to reference
// from its upload request and status polls.
func (h *Handler) InitSession(c *fiber.Ctx) error {
	s := h.sessions.Create()
	return c.JSON(fiber.Map{"id": s.ID})
}

// SessionStatus returns the polled progress snapshot. Unknown or expired
// sessions are a plain 404.
func (h *Handler) SessionStatus(c *fiber.Ctx) error {
	s, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	return c.JSON(s)
}
