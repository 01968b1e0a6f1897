package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/antoinedamay/transferttt/internal/models"
	"github.com/antoinedamay/transferttt/internal/session"
	"github.com/antoinedamay/transferttt/internal/storage"
	"github.com/dustin/go-humanize"
)

// UploadService pushes a received file to remote storage and finalizes its
// link, keeping the upload session in step the whole way.
type UploadService struct {
	remote   storage.Remote
	links    *LinkService
	sessions *session.Tracker
}

func NewUploadService(remote storage.Remote, links *LinkService, sessions *session.Tracker) *UploadService {
	return &UploadService{remote: remote, links: links, sessions: sessions}
}

// Process streams the buffered file to remote storage and mints the link.
// Session updates are best-effort: an expired or unknown session id never
// fails the upload itself.
func (u *UploadService) Process(ctx context.Context, sessionID, fileName string, size int64, r io.Reader, contentType string, expiresInDays int, slug string) (FinalizeResult, error) {
	u.sessions.Transition(sessionID, models.PhaseRemoteTransfer)
	u.sessions.UpdateRemoteProgress(sessionID, 0, size)

	handle, err := u.remote.Store(ctx, fileName, size, &remoteProgressReader{
		r:        r,
		sessions: u.sessions,
		id:       sessionID,
		total:    size,
	}, contentType)
	if err != nil {
		u.sessions.Fail(sessionID, "upload to remote storage failed")
		return FinalizeResult{}, fmt.Errorf("failed to store object: %w", err)
	}
	log.Printf("stored %s (%s) as %s", fileName, humanize.Bytes(uint64(size)), handle.ID)

	res, err := u.links.Finalize(ctx, handle, fileName, size, expiresInDays, slug)
	if err != nil {
		u.sessions.Fail(sessionID, err.Error())
		// The object is already remote but its link will never exist;
		// remove it in the background rather than leaving an orphan.
		go func(objectID string) {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, derr := u.remote.Delete(cleanupCtx, objectID); derr != nil {
				log.Printf("cleanup of unlinked object %s failed: %v", objectID, derr)
			}
		}(handle.ID)
		return FinalizeResult{}, err
	}

	u.sessions.Complete(sessionID, res.DownloadURL, res.ExpiresAt.UTC().Format(time.RFC3339))
	return res, nil
}

// remoteProgressReader mirrors bytes flowing to remote storage into the
// session tracker.
type remoteProgressReader struct {
	r        io.Reader
	sessions *session.Tracker
	id       string
	total    int64
	sent     int64
}

func (p *remoteProgressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		p.sessions.UpdateRemoteProgress(p.id, p.sent, p.total)
	}
	return n, err
}
