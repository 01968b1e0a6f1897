package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/antoinedamay/transferttt/internal/models"
	"github.com/antoinedamay/transferttt/internal/scheduler"
	"github.com/antoinedamay/transferttt/internal/shortlink"
	"github.com/antoinedamay/transferttt/internal/storage"
	"github.com/antoinedamay/transferttt/internal/token"
)

var (
	// ErrNotFound means the identifier matches nothing (never existed or
	// the short code's TTL already evicted it).
	ErrNotFound = errors.New("link not found")
	// ErrExpired means the payload resolved but its expiry has passed.
	ErrExpired = errors.New("link expired")
	// ErrInvalid means the identifier is malformed or its signature is bad.
	ErrInvalid = errors.New("invalid link")
	// ErrExpiryNotAllowed means the requested duration is off the allow-list.
	ErrExpiryNotAllowed = errors.New("expiry duration not allowed")
)

// AllowedExpiryDays is the closed set of expiry durations a caller may pick.
var AllowedExpiryDays = []int{1, 7, 30, 90}

// ExpiryAllowed reports whether days is on the allow-list.
func ExpiryAllowed(days int) bool {
	for _, d := range AllowedExpiryDays {
		if d == days {
			return true
		}
	}
	return false
}

// identKind classifies an inbound identifier once, at the boundary, before
// any lookup happens.
type identKind int

const (
	identShortCode identKind = iota
	identSignedToken
)

// classifyIdentifier dispatches purely on shape: anything within the short
// code length band and charset is treated as a short code, everything else
// as a self-contained signed token.
func classifyIdentifier(s string) identKind {
	if shortlink.ValidCode(s) {
		return identShortCode
	}
	return identSignedToken
}

// FinalizeResult is what an upload finalization hands back to the client.
type FinalizeResult struct {
	Token       string
	DownloadURL string
	ExpiresAt   time.Time
}

// LinkService drives each link through live -> expired -> deleted|orphaned.
type LinkService struct {
	codec      *token.Codec
	short      *shortlink.Store // nil when no key-value store is configured
	sched      *scheduler.Scheduler
	publicBase string
	now        func() time.Time
}

func NewLinkService(codec *token.Codec, short *shortlink.Store, sched *scheduler.Scheduler, publicBase string) *LinkService {
	return &LinkService{
		codec:      codec,
		short:      short,
		sched:      sched,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}
}

// Finalize mints the public link for a freshly stored object and schedules
// its deletion. The signed token is always produced; a short code replaces
// it as the public identifier when reservation succeeds. Slug validation
// failures surface to the caller, every other short-link problem falls back
// silently to the signed-token URL.
func (s *LinkService) Finalize(ctx context.Context, handle storage.ObjectHandle, name string, size int64, expiresInDays int, slug string) (FinalizeResult, error) {
	if !ExpiryAllowed(expiresInDays) {
		return FinalizeResult{}, ErrExpiryNotAllowed
	}
	expiresAt := s.now().Add(time.Duration(expiresInDays) * 24 * time.Hour)

	payload := models.LinkPayload{
		Link: handle.Link,
		ID:   handle.ID,
		Exp:  expiresAt,
		Name: name,
		Size: uint64(size),
	}

	signed, err := s.codec.Sign(payload)
	if err != nil {
		return FinalizeResult{}, err
	}
	ident, err := s.codec.Encode(signed)
	if err != nil {
		return FinalizeResult{}, err
	}

	if s.short != nil {
		code, err := s.short.Reserve(ctx, slug, payload, expiresAt.Sub(s.now()))
		switch {
		case err == nil:
			ident = code
		case slug != "" && (errors.Is(err, shortlink.ErrSlugTaken) || errors.Is(err, shortlink.ErrSlugInvalid)):
			return FinalizeResult{}, err
		default:
			log.Printf("short code allocation failed, using signed token: %v", err)
		}
	} else if slug != "" {
		log.Printf("custom slug %q requested but short links are disabled", slug)
	}

	s.sched.Schedule(handle.ID, expiresAt)

	return FinalizeResult{
		Token:       ident,
		DownloadURL: s.publicBase + "/" + ident,
		ExpiresAt:   expiresAt,
	}, nil
}

// Resolve maps a public identifier back to its payload. An expired payload
// triggers a best-effort deletion of the remote object before reporting
// ErrExpired; the deletion outcome never reaches the client.
func (s *LinkService) Resolve(ctx context.Context, ident string) (models.LinkPayload, error) {
	var payload models.LinkPayload

	switch classifyIdentifier(ident) {
	case identShortCode:
		if s.short == nil {
			return models.LinkPayload{}, ErrNotFound
		}
		p, found, err := s.short.Resolve(ctx, ident)
		if err != nil {
			return models.LinkPayload{}, err
		}
		if !found {
			return models.LinkPayload{}, ErrNotFound
		}
		payload = p
	default:
		t, err := s.codec.Decode(ident)
		if err != nil {
			return models.LinkPayload{}, ErrInvalid
		}
		payload, err = s.codec.Verify(t)
		if err != nil {
			return models.LinkPayload{}, ErrInvalid
		}
	}

	if payload.Expired(s.now()) {
		if payload.ID != "" {
			go func(objectID string) {
				if _, err := s.sched.DeleteNow(objectID); err != nil {
					log.Printf("best-effort deletion of expired %s failed: %v", objectID, err)
				}
			}(payload.ID)
		}
		return models.LinkPayload{}, ErrExpired
	}
	return payload, nil
}
