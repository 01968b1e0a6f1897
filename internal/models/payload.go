package models

import "time"

// LinkPayload is the minimal record behind every download link. It is built
// exactly once when an upload is finalized and is never mutated afterwards;
// it either travels inside a signed token or sits as a JSON value behind a
// short code in the key-value store.
type LinkPayload struct {
	Link string    `json:"link"`
	ID   string    `json:"id,omitempty"`
	Exp  time.Time `json:"exp"`
	Name string    `json:"name"`
	Size uint64    `json:"size"`
}

// Expired reports whether the payload's expiry instant has passed.
func (p LinkPayload) Expired(now time.Time) bool {
	return !p.Exp.IsZero() && now.After(p.Exp)
}
