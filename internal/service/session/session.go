package session

import (
	"context"
	"errors"
	"time"

	"github.com/janisto/lostcat/internal/wizard"
)

// Service errors
var (
	ErrNotFound             = errors.New("session not found")
	ErrAlreadyExists        = errors.New("session already exists")
	ErrGenerationInProgress = errors.New("description generation already in progress")
	ErrStaleResult          = errors.New("description result discarded")
	ErrConflict             = errors.New("session update conflict")
	ErrTooLarge             = errors.New("session exceeds store size limit")
)

// DefaultTTL bounds how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// Session is one wizard run plus its generation bookkeeping.
type Session struct {
	ID                  string       `cbor:"1,keyasint"`
	State               wizard.State `cbor:"2,keyasint"`
	Generating          bool         `cbor:"3,keyasint"`
	GenerationSeq       uint64       `cbor:"4,keyasint"`
	GenerationStartedAt time.Time    `cbor:"5,keyasint"`
	CreatedAt           time.Time    `cbor:"6,keyasint"`
	UpdatedAt           time.Time    `cbor:"7,keyasint"`
	ExpiresAt           time.Time    `cbor:"8,keyasint"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.State = s.State.Clone()
	return &c
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions for their TTL.
//
// Implementations must:
//   - treat expired sessions as not found
//   - run Update's fn atomically with respect to other updates of the same id
//   - discard the update when fn returns an error
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}
