package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per committed image pair; sign+timestamp is the ledger join key
		`CREATE TABLE IF NOT EXISTS samples (
			id TEXT PRIMARY KEY,
			sign TEXT NOT NULL,
			label_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			original_file TEXT NOT NULL,
			annotated_file TEXT NOT NULL,
			annotation_file TEXT NOT NULL,
			hands INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(sign, timestamp)
		)`,

		// Raw video clips; these have no ledger rows
		`CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			sign TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(sign, timestamp)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_sign ON samples(sign)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_sign ON videos(sign)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
