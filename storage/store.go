// Package storage holds the tab-scoped session record: the one piece of
// session state that survives a reload. The session manager is its only
// reader and writer.
package storage

import (
	"context"
	"time"

	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
)

// ErrNotFound is returned by Load when no record is stored.
var ErrNotFound = ierrors.ErrNotFound

// Record is the persisted session. It is never written with a missing
// refresh pair.
type Record struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Complete reports whether the record carries everything rehydration needs.
func (r *Record) Complete() bool {
	return r != nil && r.Token != "" && r.RefreshToken != "" && !r.ExpiresAt.IsZero()
}

// Store persists a single Record under a fixed key.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, record Record) error
	Remove(ctx context.Context) error
}
