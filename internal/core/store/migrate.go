package store

import (
	"context"
	"errors"
	"fmt"
)

// Column types are chosen to be accepted by both libsql and postgres.
// Timestamps are unix milliseconds; JSON blobs are TEXT.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		plan TEXT NOT NULL,
		credits_remaining INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_profiles_email ON user_profiles(email);`,
	`CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		query_type TEXT NOT NULL,
		status TEXT NOT NULL,
		results_count INTEGER NOT NULL DEFAULT 0,
		summary TEXT,
		error_message TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_searches_user_created ON searches(user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS search_results (
		id TEXT PRIMARY KEY,
		search_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		result_index INTEGER NOT NULL,
		result_type TEXT NOT NULL,
		platform TEXT NOT NULL,
		profile_url TEXT,
		username TEXT,
		display_name TEXT,
		bio TEXT,
		location TEXT,
		followers_count BIGINT NOT NULL DEFAULT 0,
		posts_count BIGINT NOT NULL DEFAULT 0,
		confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_search_results_search ON search_results(search_id, result_index);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
