// Package session keeps the in-memory registry of in-flight upload progress
// that the frontend polls while bytes move.
package session

import (
	"sync"
	"time"

	"github.com/antoinedamay/transferttt/internal/models"
	"github.com/google/uuid"
)

// Tracker owns every live UploadSession. All methods are safe for concurrent
// use; update methods are deliberate no-ops for unknown or expired ids, so a
// straggling handler touching an abandoned session never sees an error.
type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*models.UploadSession
	now      func() time.Time
}

// NewTracker builds a tracker whose sessions become unreachable ttl after
// creation even if never finished, so abandoned uploads cannot leak memory.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{
		ttl:      ttl,
		sessions: make(map[string]*models.UploadSession),
		now:      time.Now,
	}
}

// Create registers a fresh session in phase init and returns a copy of it.
func (t *Tracker) Create() models.UploadSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := &models.UploadSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(t.ttl),
		Phase:     models.PhaseInit,
	}
	t.sessions[s.ID] = s
	return *s
}

// Get returns a snapshot of the session, evicting it first if its own TTL
// has lapsed.
func (t *Tracker) Get(id string) (models.UploadSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(id)
	if s == nil {
		return models.UploadSession{}, false
	}
	return *s, true
}

// lookup returns the live session or nil, lazily evicting expired entries.
// Callers must hold t.mu.
func (t *Tracker) lookup(id string) *models.UploadSession {
	s, ok := t.sessions[id]
	if !ok {
		return nil
	}
	if t.now().After(s.ExpiresAt) {
		delete(t.sessions, id)
		return nil
	}
	return s
}

// UpdateProgress records how much of the client's body has been received.
func (t *Tracker) UpdateProgress(id string, received, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.lookup(id); s != nil {
		s.ReceivedBytes = received
		s.TotalBytes = total
	}
}

// UpdateRemoteProgress records how much has been pushed to remote storage.
func (t *Tracker) UpdateRemoteProgress(id string, sent, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.lookup(id); s != nil {
		s.RemoteBytes = sent
		s.RemoteTotal = total
	}
}

// SetFile records the file metadata once the multipart headers are in.
func (t *Tracker) SetFile(id, name string, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.lookup(id); s != nil {
		s.FileName = name
		s.FileSize = size
	}
}

// Transition moves the session forward. Backwards transitions and
// transitions out of a terminal phase are ignored.
func (t *Tracker) Transition(id string, phase models.SessionPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(id)
	if s == nil || s.Phase == models.PhaseError || s.Phase == models.PhaseDone {
		return
	}
	if models.PhaseRank(phase) <= models.PhaseRank(s.Phase) {
		return
	}
	s.Phase = phase
	if phase == models.PhaseDone {
		s.Done = true
	}
}

// Fail marks the session as failed with a human-readable message. Terminal
// phases stay terminal.
func (t *Tracker) Fail(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(id)
	if s == nil || s.Phase == models.PhaseError || s.Phase == models.PhaseDone {
		return
	}
	s.Phase = models.PhaseError
	s.Error = message
	s.Done = true
}

// Complete marks the session done and attaches the minted link.
func (t *Tracker) Complete(id, downloadURL, expiresAt string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(id)
	if s == nil || s.Phase == models.PhaseError {
		return
	}
	s.Phase = models.PhaseDone
	s.DownloadURL = downloadURL
	s.LinkExpiresAt = expiresAt
	s.Done = true
}
