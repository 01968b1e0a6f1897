package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antoinedamay/transferttt/internal/models"
	"github.com/antoinedamay/transferttt/internal/scheduler"
	"github.com/antoinedamay/transferttt/internal/session"
	"github.com/antoinedamay/transferttt/internal/shortlink"
	"github.com/antoinedamay/transferttt/internal/storage"
	"github.com/antoinedamay/transferttt/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRemote struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes int32
}

func newMemRemote() *memRemote {
	return &memRemote{objects: make(map[string][]byte)}
}

func (m *memRemote) Store(ctx context.Context, name string, size int64, r io.Reader, contentType string) (storage.ObjectHandle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectHandle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("obj_%s", name)
	m.objects[id] = data
	return storage.ObjectHandle{ID: id, Link: "http://fake.storage/b/" + id}, nil
}

func (m *memRemote) Link(h storage.ObjectHandle) string { return h.Link }

func (m *memRemote) Download(ctx context.Context, objectID string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectID]
	if !ok {
		return nil, storage.ObjectInfo{}, fmt.Errorf("no such object %s", objectID)
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Name: objectID, Size: int64(len(data))}, nil
}

func (m *memRemote) Delete(ctx context.Context, objectID string) (bool, error) {
	atomic.AddInt32(&m.deletes, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectID]
	delete(m.objects, objectID)
	return ok, nil
}

func TestProcessHappyPath(t *testing.T) {
	remote := newMemRemote()
	codec := token.NewCodec("test-secret", false)
	links := NewLinkService(codec, nil, scheduler.New(remote), "http://app.example")
	sessions := session.NewTracker(time.Hour)
	uploads := NewUploadService(remote, links, sessions)

	s := sessions.Create()
	content := []byte("hello world")
	res, err := uploads.Process(context.Background(), s.ID, "greeting.txt", int64(len(content)), bytes.NewReader(content), "text/plain", 30, "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	got, ok := sessions.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, models.PhaseDone, got.Phase)
	assert.Equal(t, int64(len(content)), got.RemoteBytes)
	assert.Equal(t, int64(len(content)), got.RemoteTotal)
	assert.Equal(t, res.DownloadURL, got.DownloadURL)

	payload, err := links.Resolve(context.Background(), res.Token)
	require.NoError(t, err)
	rc, _, err := remote.Download(context.Background(), payload.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestProcessFinalizeFailureCleansUpObject(t *testing.T) {
	remote := newMemRemote()
	codec := token.NewCodec("test-secret", false)
	kvStore := newMemKV()
	kvStore.data["promo"] = "{}" // slug already live
	short := shortlink.NewStore(kvStore, 8)
	links := NewLinkService(codec, short, scheduler.New(remote), "http://app.example")
	sessions := session.NewTracker(time.Hour)
	uploads := NewUploadService(remote, links, sessions)

	s := sessions.Create()
	_, err := uploads.Process(context.Background(), s.ID, "a.txt", 1, bytes.NewReader([]byte("x")), "", 7, "promo")
	assert.ErrorIs(t, err, shortlink.ErrSlugTaken)

	got, _ := sessions.Get(s.ID)
	assert.Equal(t, models.PhaseError, got.Phase)

	// the already-stored object is removed in the background
	require.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return len(remote.objects) == 0
	}, time.Second, 5*time.Millisecond)
}
