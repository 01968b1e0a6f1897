package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/antoinedamay/transferttt/internal/services"
	"github.com/antoinedamay/transferttt/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Info describes the file behind an identifier without streaming it.
func (h *Handler) Info(c *fiber.Ctx) error {
	payload, err := h.links.Resolve(c.UserContext(), c.Params("token"))
	if err != nil {
		return resolveErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{
		"name":      payload.Name,
		"size":      payload.Size,
		"type":      nil,
		"expiresAt": payload.Exp.UTC().Format(time.RFC3339),
	})
}

// Download resolves an identifier and streams the object back. The plain
// filename parameter degrades to ASCII; the exact original name rides along
// as an RFC 5987 filename* parameter.
func (h *Handler) Download(c *fiber.Ctx) error {
	ident := c.Params("token")
	if !identifierShaped(ident) {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}

	payload, err := h.links.Resolve(c.UserContext(), ident)
	if err != nil {
		return resolveErrorText(c, err)
	}

	// Tokens minted before this service proxied downloads carry only the
	// direct storage link.
	if payload.ID == "" || h.remote == nil {
		return c.Redirect(payload.Link, fiber.StatusFound)
	}

	stream, info, err := h.remote.Download(c.UserContext(), payload.ID)
	if err != nil {
		log.Printf("download of %s failed: %v", payload.ID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Download failed")
	}

	name := payload.Name
	if name == "" {
		name = info.Name
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, utils.ContentDisposition(name))
	if info.Size > 0 {
		return c.SendStream(stream, int(info.Size))
	}
	return c.SendStream(stream)
}

// identifierShaped filters the catch-all route: both short codes and signed
// tokens use only the URL-safe base64 charset, so anything else (favicons,
// stray paths) is not worth resolving.
func identifierShaped(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

func resolveErrorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "Expired"})
	case errors.Is(err, services.ErrInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid link"})
	default:
		log.Printf("resolve failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
}

func resolveErrorText(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	case errors.Is(err, services.ErrExpired):
		return c.Status(fiber.StatusGone).SendString("Link expired")
	case errors.Is(err, services.ErrInvalid):
		return c.Status(fiber.StatusBadRequest).SendString("Invalid link")
	default:
		log.Printf("resolve failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Server error")
	}
}
