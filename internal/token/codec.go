package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/antoinedamay/transferttt/internal/models"
)

var (
	// ErrSigningUnavailable means no signing secret is configured.
	ErrSigningUnavailable = errors.New("no link signing secret configured")
	// ErrMalformed means the token string is not valid base64url JSON.
	ErrMalformed = errors.New("malformed token")
	// ErrBadSignature means the signature does not match the payload.
	ErrBadSignature = errors.New("invalid token signature")
)

// SignedToken is a link payload plus the HMAC that authenticates it. The
// encoded form is canonical JSON, base64url-encoded without padding, so it
// can live in a URL path segment.
type SignedToken struct {
	Payload   models.LinkPayload `json:"payload"`
	Signature []byte             `json:"sig,omitempty"`
}

// Codec signs, verifies, encodes and decodes self-contained link tokens.
//
// When allowUnsigned is set, a well-formed payload carrying no signature is
// accepted by Verify. This exists solely so links minted before signing was
// introduced keep working; leave it off in any new deployment, since with it
// on anyone who can guess an object link can forge an unexpired token for it.
type Codec struct {
	secret        []byte
	allowUnsigned bool
}

func NewCodec(secret string, allowUnsigned bool) *Codec {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Codec{secret: key, allowUnsigned: allowUnsigned}
}

// canonical builds the byte string that gets signed. Field order is fixed and
// the expiry is rendered as unix seconds, so two processes sharing a secret
// always produce identical signatures for the same payload. Newline is the
// delimiter; it cannot appear in a URL, a filename from a multipart header,
// or a formatted integer.
func canonical(p models.LinkPayload) []byte {
	var b strings.Builder
	b.WriteString(p.Link)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(p.Exp.Unix(), 10))
	b.WriteByte('\n')
	b.WriteString(p.Name)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatUint(p.Size, 10))
	b.WriteByte('\n')
	b.WriteString(p.ID)
	return []byte(b.String())
}

func (c *Codec) sign(p models.LinkPayload) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(canonical(p))
	return mac.Sum(nil)
}

// Sign wraps the payload in a SignedToken carrying its HMAC.
func (c *Codec) Sign(p models.LinkPayload) (SignedToken, error) {
	if len(c.secret) == 0 {
		return SignedToken{}, ErrSigningUnavailable
	}
	return SignedToken{Payload: p, Signature: c.sign(p)}, nil
}

// Verify checks the token's signature and returns the trusted payload.
func (c *Codec) Verify(t SignedToken) (models.LinkPayload, error) {
	if len(t.Signature) == 0 {
		if c.allowUnsigned && t.Payload.Link != "" {
			log.Printf("accepted legacy unsigned token for %q", t.Payload.Name)
			return t.Payload, nil
		}
		return models.LinkPayload{}, ErrBadSignature
	}
	if len(c.secret) == 0 {
		return models.LinkPayload{}, ErrSigningUnavailable
	}
	if !hmac.Equal(t.Signature, c.sign(t.Payload)) {
		return models.LinkPayload{}, ErrBadSignature
	}
	return t.Payload, nil
}

// Encode renders the token as URL-path-safe base64url without padding.
func (c *Codec) Encode(t SignedToken) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses an encoded token. A bare payload object with no envelope is
// recognized as a legacy unsigned token; Verify decides whether to accept it.
func (c *Codec) Decode(s string) (SignedToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return SignedToken{}, ErrMalformed
	}
	var env struct {
		Payload   *models.LinkPayload `json:"payload"`
		Signature []byte              `json:"sig"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Payload != nil {
		return SignedToken{Payload: *env.Payload, Signature: env.Signature}, nil
	}
	var legacy models.LinkPayload
	if err := json.Unmarshal(raw, &legacy); err != nil || legacy.Link == "" {
		return SignedToken{}, ErrMalformed
	}
	return SignedToken{Payload: legacy}, nil
}

// EncodeLegacy renders a payload the way the pre-signing service did:
// base64url of the bare payload JSON, no signature. Only used by tests and
// migration tooling.
func EncodeLegacy(p models.LinkPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
