package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per run of the camera loop
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			device TEXT NOT NULL,
			debounce_ms INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL DEFAULT ''
		)`,

		// Dispatches table - every command the dispatcher emitted
		`CREATE TABLE IF NOT EXISTS dispatches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			command INTEGER NOT NULL CHECK(command BETWEEN 100 AND 105),
			finger_count INTEGER NOT NULL,
			reason TEXT NOT NULL CHECK(reason IN ('changed', 'hand_lost', 'shutdown')),
			delivered INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_dispatches_session_id ON dispatches(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
