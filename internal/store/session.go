package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Session is one run of the capture loop.
type Session struct {
	ID        string
	Device    string
	Debounce  time.Duration
	StartedAt time.Time
	// EndedAt is nil while the session is running.
	EndedAt   *time.Time
	Frames    int64
	EndReason string
}

// Running reports whether the session has not been finished yet.
func (s *Session) Running() bool {
	return s.EndedAt == nil
}

// SessionRepository provides access to stored sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new running session. StartedAt defaults to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	sess.StartedAt = sess.StartedAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, device, debounce_ms, started_at)
		 VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Device, sess.Debounce.Milliseconds(), sess.StartedAt,
	)
	return err
}

// Finish marks a session as ended.
func (r *SessionRepository) Finish(id string, endedAt time.Time, frames int64, reason string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, end_reason = ? WHERE id = ?`,
		endedAt.UTC(), frames, reason, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, device, debounce_ms, started_at, ended_at, frames, end_reason
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, device, debounce_ms, started_at, ended_at, frames, end_reason
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and, through the foreign key, its dispatches.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var debounceMS int64
	var endedAt sql.NullTime

	err := row.Scan(&sess.ID, &sess.Device, &debounceMS, &sess.StartedAt, &endedAt, &sess.Frames, &sess.EndReason)
	if err != nil {
		return nil, err
	}

	sess.Debounce = time.Duration(debounceMS) * time.Millisecond
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
