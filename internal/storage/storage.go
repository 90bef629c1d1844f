// Package storage defines the Storage interface: the contract a session
// store must satisfy to back the browser sessions of this application.
//
// Handlers never talk to the database directly. The session package depends
// only on this interface, so tests can pass an in-memory fake and main.go
// decides which backend is used.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/library-web/internal/types"
)

// ErrNotFound is returned by GetSession when no row has the given ID.
var ErrNotFound = errors.New("storage: session not found")

// Session is one stored browser session.
//
// User and Token are set together on login and cleared together on logout.
// Flashes are queued by an action and consumed by the next rendered page.
type Session struct {
	ID        string
	Token     string
	User      *types.User
	Flashes   []types.Flash
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Storage is the session store contract.
type Storage interface {
	// SaveSession inserts the row or replaces the one with the same ID.
	SaveSession(ctx context.Context, sess Session) error

	// GetSession fetches a row by ID. Returns ErrNotFound when absent.
	GetSession(ctx context.Context, id string) (Session, error)

	// DeleteSession removes a row. Deleting a missing row is not an error.
	DeleteSession(ctx context.Context, id string) error

	// DeleteSessionsBefore removes rows not updated since cutoff and returns
	// how many were removed.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping reports whether the store can be reached.
	Ping(ctx context.Context) error
}
