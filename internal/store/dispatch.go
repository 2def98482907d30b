package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/mudra/internal/protocol"
)

// Dispatch is one command emitted during a session, delivered or not.
type Dispatch struct {
	ID          int64
	SessionID   string
	Command     protocol.Command
	FingerCount int
	Reason      string
	Delivered   bool
	Error       string
	CreatedAt   time.Time
}

// DispatchRepository records the commands sent in each session.
type DispatchRepository struct {
	db *sql.DB
}

// Dispatches returns the dispatch repository for this store.
func (s *Store) Dispatches() *DispatchRepository {
	return &DispatchRepository{db: s.db}
}

// Create appends a dispatch record and sets its ID.
func (r *DispatchRepository) Create(d *Dispatch) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.CreatedAt = d.CreatedAt.UTC()

	result, err := r.db.Exec(
		`INSERT INTO dispatches (session_id, command, finger_count, reason, delivered, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, int(d.Command), d.FingerCount, d.Reason, d.Delivered, d.Error, d.CreatedAt,
	)
	if err != nil {
		return err
	}

	d.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's dispatches in the order they were sent.
func (r *DispatchRepository) ListBySession(sessionID string) ([]*Dispatch, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, command, finger_count, reason, delivered, error, created_at
		 FROM dispatches WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dispatches []*Dispatch
	for rows.Next() {
		d := &Dispatch{}
		var command int

		err := rows.Scan(&d.ID, &d.SessionID, &command, &d.FingerCount, &d.Reason, &d.Delivered, &d.Error, &d.CreatedAt)
		if err != nil {
			return nil, err
		}

		d.Command = protocol.Command(command)
		dispatches = append(dispatches, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dispatches, nil
}

// CountBySession returns how many commands a session emitted.
func (r *DispatchRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM dispatches WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
