package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDeleter counts Delete calls and can block to widen race windows.
type recordingDeleter struct {
	mu      sync.Mutex
	calls   int32
	deleted []string
	block   time.Duration
	err     error
}

func (d *recordingDeleter) Delete(ctx context.Context, objectID string) (bool, error) {
	atomic.AddInt32(&d.calls, 1)
	if d.block > 0 {
		time.Sleep(d.block)
	}
	d.mu.Lock()
	d.deleted = append(d.deleted, objectID)
	d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	return true, nil
}

func (d *recordingDeleter) callCount() int32 {
	return atomic.LoadInt32(&d.calls)
}

func TestSchedulePastDueFiresImmediately(t *testing.T) {
	d := &recordingDeleter{}
	s := New(d)

	s.Schedule("obj-1", time.Now().Add(-time.Minute))

	require.Eventually(t, func() bool { return d.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"obj-1"}, d.deleted)
}

func TestScheduleChainsLegsBeyondTimerCap(t *testing.T) {
	d := &recordingDeleter{}
	s := New(d)
	// force many short legs: a 60ms wait through 10ms legs
	s.maxLeg = 10 * time.Millisecond

	start := time.Now()
	s.Schedule("obj-2", start.Add(60*time.Millisecond))

	require.Eventually(t, func() bool { return d.callCount() == 1 }, time.Second, time.Millisecond)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 55*time.Millisecond, "fired before the full chained wait")
}

func TestDeleteNowIdempotentUnderRace(t *testing.T) {
	d := &recordingDeleter{block: 50 * time.Millisecond}
	s := New(d)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.DeleteNow("obj-3")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), d.callCount())

	// a later call goes through again; double delete is benign downstream
	_, err := s.DeleteNow("obj-3")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), d.callCount())
}

func TestDeleteNowReturnsFailureForCallerToDiscard(t *testing.T) {
	d := &recordingDeleter{err: errors.New("storage hiccup")}
	s := New(d)

	ok, err := s.DeleteNow("obj-4")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDeleteNowWithoutDeleter(t *testing.T) {
	s := New(nil)
	ok, err := s.DeleteNow("obj-5")
	assert.False(t, ok)
	assert.NoError(t, err)
}
