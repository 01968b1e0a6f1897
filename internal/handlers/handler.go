package handlers

import (
	"time"

	"github.com/antoinedamay/transferttt/internal/config"
	"github.com/antoinedamay/transferttt/internal/services"
	"github.com/antoinedamay/transferttt/internal/session"
	"github.com/antoinedamay/transferttt/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

// Handler holds the dependencies shared by every route. remote and uploads
// are nil when storage credentials are missing; the affected routes answer
// with a structured error instead of the process refusing to start, so
// resolves of already-minted tokens keep working.
type Handler struct {
	cfg      config.Config
	sessions *session.Tracker
	uploads  *services.UploadService
	links    *services.LinkService
	remote   storage.Remote
}

func New(cfg config.Config, sessions *session.Tracker, uploads *services.UploadService, links *services.LinkService, remote storage.Remote) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		uploads:  uploads,
		links:    links,
		remote:   remote,
	}
}

// Health reports service liveness and which optional backends are wired.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":         true,
		"time":       time.Now().UTC().Format(time.RFC3339),
		"shortLinks": h.cfg.ShortLinksEnabled(),
		"maxUpload":  humanize.IBytes(uint64(h.cfg.MaxUploadBytes)),
	})
}
