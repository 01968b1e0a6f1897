// Package storage models the remote object store as a small capability
// interface and provides the MinIO-backed implementation.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/antoinedamay/transferttt/internal/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrMissingCredentials means the storage backend is not configured.
var ErrMissingCredentials = errors.New("remote storage credentials missing")

// ObjectHandle references a stored object: the opaque id used for later
// deletion and download, and the direct link embedded in payloads.
type ObjectHandle struct {
	ID   string
	Link string
}

// ObjectInfo describes a stored object for info/download responses.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// Remote is the capability surface of the remote object store. The link
// lifecycle core depends only on this interface, never on MinIO directly.
type Remote interface {
	Store(ctx context.Context, name string, size int64, r io.Reader, contentType string) (ObjectHandle, error)
	Link(h ObjectHandle) string
	Download(ctx context.Context, objectID string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, objectID string) (bool, error)
}

// MinioRemote implements Remote on a single MinIO bucket.
type MinioRemote struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioRemote connects to MinIO and makes sure the bucket exists.
func NewMinioRemote(ctx context.Context, opts Options) (*MinioRemote, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, opts.Bucket)
	if err != nil {
		log.Printf("Warning: failed to check bucket existence: %v", err)
	} else if !exists {
		if err := client.MakeBucket(checkCtx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			log.Printf("Warning: failed to create bucket: %v", err)
		} else {
			log.Printf("Created bucket: %s", opts.Bucket)
		}
	}

	return &MinioRemote{
		client:   client,
		bucket:   opts.Bucket,
		endpoint: opts.Endpoint,
		useSSL:   opts.UseSSL,
	}, nil
}

// Store streams the object into the bucket under a random-prefixed key so
// identical filenames never collide.
func (m *MinioRemote) Store(ctx context.Context, name string, size int64, r io.Reader, contentType string) (ObjectHandle, error) {
	prefix := make([]byte, 8)
	if _, err := rand.Read(prefix); err != nil {
		return ObjectHandle{}, fmt.Errorf("failed to generate object id: %w", err)
	}
	objectID := fmt.Sprintf("%s_%s", hex.EncodeToString(prefix), utils.Sanitize(name))

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectID, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-name": name,
		},
	})
	if err != nil {
		return ObjectHandle{}, fmt.Errorf("failed to upload object: %w", err)
	}

	return ObjectHandle{ID: objectID, Link: m.link(objectID)}, nil
}

func (m *MinioRemote) link(objectID string) string {
	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.endpoint, m.bucket, objectID)
}

// Link returns the direct URL for a handle.
func (m *MinioRemote) Link(h ObjectHandle) string {
	if h.Link != "" {
		return h.Link
	}
	return m.link(h.ID)
}

// Download opens the object for streaming and returns its metadata.
func (m *MinioRemote) Download(ctx context.Context, objectID string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectID, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("failed to open object %s: %w", objectID, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat object %s: %w", objectID, err)
	}

	name := stat.UserMetadata["Original-Name"]
	if name == "" {
		name = objectID
	}
	return obj, ObjectInfo{
		Name:        name,
		Size:        stat.Size,
		ContentType: stat.ContentType,
	}, nil
}

// Delete removes the object. An object that is already gone is a benign
// (false, nil): both the timer path and a resolve-time expiry check may race
// to delete the same id.
func (m *MinioRemote) Delete(ctx context.Context, objectID string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, objectID, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", objectID, err)
	}

	if err := m.client.RemoveObject(ctx, m.bucket, objectID, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to delete object %s: %w", objectID, err)
	}
	return true, nil
}
