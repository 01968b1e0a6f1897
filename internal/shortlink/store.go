// Package shortlink allocates and resolves the short human-typable codes
// that indirect through the key-value store to a link payload.
package shortlink

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/antoinedamay/transferttt/internal/kv"
	"github.com/antoinedamay/transferttt/internal/models"
)

var (
	// ErrSlugTaken means the requested custom slug already resolves.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrSlugInvalid means the requested custom slug fails validation.
	ErrSlugInvalid = errors.New("slug must be 3-32 characters of A-Za-z0-9_-")
	// ErrExhausted means every random-code attempt collided.
	ErrExhausted = errors.New("could not allocate a free short code")
)

const (
	// MinCodeLen and MaxCodeLen bound both custom slugs and the shape band
	// used to tell a short code apart from a signed token at the boundary.
	// An encoded token is base64url JSON and always far exceeds MaxCodeLen.
	MinCodeLen = 3
	MaxCodeLen = 32

	codeAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	reserveAttempts = 5
)

// ValidCode reports whether s has short-code shape: length within the band
// and only characters from [A-Za-z0-9_-].
func ValidCode(s string) bool {
	if len(s) < MinCodeLen || len(s) > MaxCodeLen {
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

func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate short code: %w", err)
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// Store allocates short codes in the key-value store. The KV entry's own TTL
// is the sole destroyer of a code; expired codes simply stop resolving.
type Store struct {
	kv      kv.Store
	codeLen int
}

func NewStore(store kv.Store, codeLen int) *Store {
	if codeLen < MinCodeLen || codeLen > MaxCodeLen {
		codeLen = 8
	}
	return &Store{kv: store, codeLen: codeLen}
}

// Reserve stores the payload under a short code and returns the code.
//
// With a non-empty desired slug, the slug is validated and reserved
// atomically; losing the set-if-absent race means another live entry holds
// it. With an empty slug a random code is drawn, retrying a bounded number
// of times on collision. The entry TTL is clamped to at least one second so
// a nearly-expired link never produces an immortal KV record.
func (s *Store) Reserve(ctx context.Context, desired string, p models.LinkPayload, ttl time.Duration) (string, error) {
	value, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	if desired != "" {
		if !ValidCode(desired) {
			return "", ErrSlugInvalid
		}
		ok, err := s.kv.SetNX(ctx, desired, string(value), ttl)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrSlugTaken
		}
		return desired, nil
	}

	for i := 0; i < reserveAttempts; i++ {
		code, err := generateCode(s.codeLen)
		if err != nil {
			return "", err
		}
		ok, err := s.kv.SetNX(ctx, code, string(value), ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// Resolve looks a code up. The second return is false when the code never
// existed or its TTL already evicted it; the caller cannot tell the two
// apart and does not need to.
func (s *Store) Resolve(ctx context.Context, code string) (models.LinkPayload, bool, error) {
	raw, found, err := s.kv.Get(ctx, code)
	if err != nil || !found {
		return models.LinkPayload{}, false, err
	}
	var p models.LinkPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.LinkPayload{}, false, fmt.Errorf("corrupt payload under code %q: %w", code, err)
	}
	return p, true, nil
}
