package handlers

import (
	"errors"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antoinedamay/transferttt/internal/models"
	"github.com/antoinedamay/transferttt/internal/services"
	"github.com/antoinedamay/transferttt/internal/session"
	"github.com/antoinedamay/transferttt/internal/shortlink"
	"github.com/antoinedamay/transferttt/internal/token"
	"github.com/antoinedamay/transferttt/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const fieldValueLimit = 1024

// Upload receives a multipart body, buffers the file part to a temp file
// while feeding receive progress into the session tracker, then hands off to
// the upload service for the remote transfer and link finalization.
//
// The session id travels as a query parameter rather than a form field so
// progress can be tracked from the very first body byte.
func (h *Handler) Upload(c *fiber.Ctx) error {
	if h.uploads == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "remote storage credentials missing"})
	}

	_, params, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err != nil || params["boundary"] == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expected multipart form data"})
	}

	sessionID := c.Query("session")
	h.sessions.Transition(sessionID, models.PhaseUploading)

	body := &receiveProgressReader{
		r:        c.Context().RequestBodyStream(),
		sessions: h.sessions,
		id:       sessionID,
		total:    int64(c.Context().Request.Header.ContentLength()),
	}
	form := multipart.NewReader(body, params["boundary"])

	expiresInDays := 30
	slug := ""
	originalName := ""
	fileContentType := ""
	tempPath := ""
	var fileSize int64

	defer func() {
		if tempPath != "" {
			os.Remove(tempPath)
		}
	}()

	for {
		part, err := form.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.sessions.Fail(sessionID, "malformed upload")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Upload failed"})
		}

		switch part.FormName() {
		case "expiresInDays":
			v, err := readFieldValue(part)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Upload failed"})
			}
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || !services.ExpiryAllowed(parsed) {
				h.sessions.Fail(sessionID, "expiry duration not allowed")
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expiry duration not allowed"})
			}
			expiresInDays = parsed
		case "slug":
			v, err := readFieldValue(part)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Upload failed"})
			}
			slug = strings.TrimSpace(v)
		case "file":
			originalName = part.FileName()
			if originalName == "" {
				originalName = "file-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
			}
			fileContentType = part.Header.Get("Content-Type")

			temp, err := os.CreateTemp("", "transfert-*-"+utils.Sanitize(originalName))
			if err != nil {
				h.sessions.Fail(sessionID, "server error")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
			}
			tempPath = temp.Name()

			written, err := io.Copy(temp, io.LimitReader(part, h.cfg.MaxUploadBytes+1))
			temp.Close()
			if err != nil {
				h.sessions.Fail(sessionID, "receiving file failed")
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Upload failed"})
			}
			if written > h.cfg.MaxUploadBytes {
				h.sessions.Fail(sessionID, "file too large")
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File too large"})
			}
			fileSize = written
		}
	}

	if tempPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file"})
	}

	h.sessions.SetFile(sessionID, originalName, fileSize)

	file, err := os.Open(tempPath)
	if err != nil {
		h.sessions.Fail(sessionID, "server error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	defer file.Close()

	res, err := h.uploads.Process(c.UserContext(), sessionID, originalName, fileSize, file, fileContentType, expiresInDays, slug)
	if err != nil {
		return h.uploadError(c, err)
	}

	return c.JSON(fiber.Map{
		"token":       res.Token,
		"downloadUrl": res.DownloadURL,
		"expiresAt":   res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// uploadError maps finalization failures onto the structured error contract.
func (h *Handler) uploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, shortlink.ErrSlugInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, shortlink.ErrSlugTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrExpiryNotAllowed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, token.ErrSigningUnavailable):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "link signing secret missing"})
	default:
		log.Printf("upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
}

func readFieldValue(part *multipart.Part) (string, error) {
	v, err := io.ReadAll(io.LimitReader(part, fieldValueLimit))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// receiveProgressReader counts raw body bytes as they arrive from the client
// and mirrors them into the session tracker.
type receiveProgressReader struct {
	r        io.Reader
	sessions *session.Tracker
	id       string
	total    int64
	received int64
}

func (p *receiveProgressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.received += int64(n)
		p.sessions.UpdateProgress(p.id, p.received, p.total)
	}
	return n, err
}
