// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// Sessions survive a restart of the web process because the whole store is
// one file on disk. The user record and the flash queue are kept as JSON
// text columns; timestamps are Unix nanoseconds so expiry sweeps are a plain
// integer comparison.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/aanand-mishra/library-web/internal/config"
	"github.com/aanand-mishra/library-web/internal/storage"
	"github.com/aanand-mishra/library-web/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at cfg.StoragePath and creates the sessions
// table if it does not already exist.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// Schema:
	//   id         : session ID handed to the browser in the cookie
	//   token      : bearer token for the library API, "" when logged out
	//   user_json  : types.User as JSON, NULL when logged out
	//   flashes    : []types.Flash as JSON
	//   created_at : Unix nanoseconds
	//   updated_at : Unix nanoseconds, bumped on every save
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT    PRIMARY KEY,
			token      TEXT    NOT NULL DEFAULT '',
			user_json  TEXT,
			flashes    TEXT    NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// Ping checks the database file is still reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.Db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

// SaveSession upserts one session row. Zero timestamps are filled with now.
func (s *SQLite) SaveSession(ctx context.Context, sess storage.Session) error {
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}

	var userJSON sql.NullString
	if sess.User != nil {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("SaveSession: encode user: %w", err)
		}
		userJSON = sql.NullString{String: string(raw), Valid: true}
	}

	flashes := sess.Flashes
	if flashes == nil {
		flashes = []types.Flash{}
	}
	flashJSON, err := json.Marshal(flashes)
	if err != nil {
		return fmt.Errorf("SaveSession: encode flashes: %w", err)
	}

	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO sessions (id, token, user_json, flashes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token      = excluded.token,
			user_json  = excluded.user_json,
			flashes    = excluded.flashes,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("SaveSession: prepare: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		sess.ID,
		sess.Token,
		userJSON,
		string(flashJSON),
		sess.CreatedAt.UnixNano(),
		sess.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("SaveSession: exec: %w", err)
	}

	return nil
}

// GetSession fetches exactly one session row matched by ID.
func (s *SQLite) GetSession(ctx context.Context, id string) (storage.Session, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, token, user_json, flashes, created_at, updated_at FROM sessions WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return storage.Session{}, fmt.Errorf("GetSession: prepare: %w", err)
	}
	defer stmt.Close()

	var (
		sess      storage.Session
		userJSON  sql.NullString
		flashJSON string
		created   int64
		updated   int64
	)
	err = stmt.QueryRowContext(ctx, id).Scan(
		&sess.ID,
		&sess.Token,
		&userJSON,
		&flashJSON,
		&created,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Session{}, storage.ErrNotFound
		}
		return storage.Session{}, fmt.Errorf("GetSession: scan: %w", err)
	}

	if userJSON.Valid {
		var user types.User
		if err := json.Unmarshal([]byte(userJSON.String), &user); err != nil {
			return storage.Session{}, fmt.Errorf("GetSession: decode user: %w", err)
		}
		sess.User = &user
	}
	if err := json.Unmarshal([]byte(flashJSON), &sess.Flashes); err != nil {
		return storage.Session{}, fmt.Errorf("GetSession: decode flashes: %w", err)
	}
	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.UpdatedAt = time.Unix(0, updated).UTC()

	return sess, nil
}

// DeleteSession removes a session row by ID.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM sessions WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteSession: prepare: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("DeleteSession: exec: %w", err)
	}

	return nil
}

// DeleteSessionsBefore removes every row whose last save is older than cutoff.
func (s *SQLite) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM sessions WHERE updated_at < ?")
	if err != nil {
		return 0, fmt.Errorf("DeleteSessionsBefore: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("DeleteSessionsBefore: exec: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteSessionsBefore: rows affected: %w", err)
	}

	return n, nil
}
