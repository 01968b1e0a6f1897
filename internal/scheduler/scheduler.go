// Package scheduler arranges the best-effort deletion of remote objects at
// their link's expiry instant. Schedules live only in process memory; a
// restart loses them and the affected objects become orphans until something
// else cleans them up. That trade-off is documented in DESIGN.md.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Deleter is the slice of the remote-storage capability the scheduler needs.
type Deleter interface {
	// Delete removes the object, reporting true when an object was actually
	// deleted. A missing object is a benign (false, nil).
	Delete(ctx context.Context, objectID string) (bool, error)
}

// defaultMaxLeg caps a single timer leg. Long waits are walked as a chain of
// capped legs, each re-checking the wall clock, so a multi-month expiry never
// depends on one giant timer surviving clock adjustments.
const defaultMaxLeg = 10 * 24 * time.Hour

const deleteTimeout = 30 * time.Second

// Scheduler fires one-shot deletions. DeleteNow is idempotent: the timer
// path and a resolve-time expiry check may both call it for the same object
// and at most one network delete goes out.
type Scheduler struct {
	deleter Deleter
	maxLeg  time.Duration
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(deleter Deleter) *Scheduler {
	return &Scheduler{
		deleter:  deleter,
		maxLeg:   defaultMaxLeg,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Schedule arranges deletion of objectID at expiresAt. An instant already in
// the past triggers the deletion immediately. There is no cancellation: once
// scheduled, the deletion will eventually be attempted.
func (s *Scheduler) Schedule(objectID string, expiresAt time.Time) {
	go s.waitAndDelete(objectID, expiresAt)
}

func (s *Scheduler) waitAndDelete(objectID string, expiresAt time.Time) {
	for {
		remaining := expiresAt.Sub(s.now())
		if remaining <= 0 {
			break
		}
		leg := remaining
		if leg > s.maxLeg {
			leg = s.maxLeg
		}
		timer := time.NewTimer(leg)
		<-timer.C
	}
	if _, err := s.DeleteNow(objectID); err != nil {
		log.Printf("scheduled deletion of %s failed: %v", objectID, err)
	}
}

// DeleteNow deletes the object immediately, reporting whether an object was
// removed. Failures are returned for the caller to log and discard; they are
// never surfaced to an end user. Concurrent calls for the same id collapse
// into a single delete.
func (s *Scheduler) DeleteNow(objectID string) (bool, error) {
	if s.deleter == nil {
		// Storage was never configured; there is nothing to delete against.
		return false, nil
	}
	s.mu.Lock()
	if _, busy := s.inflight[objectID]; busy {
		s.mu.Unlock()
		return false, nil
	}
	s.inflight[objectID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, objectID)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	return s.deleter.Delete(ctx, objectID)
}
