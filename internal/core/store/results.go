package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// InsertResults stores all results for a search in a single transaction.
// Either every row is written or none is.
func (s *Store) InsertResults(ctx context.Context, searchID, userID string, results []core.ProfileResult) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if len(results) == 0 {
		return nil
	}
	searchID = strings.TrimSpace(searchID)
	if searchID == "" {
		return ErrSearchNotFound
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin results insert: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, s.bind(`
		INSERT INTO search_results (
			id, search_id, user_id, result_index, result_type, platform, profile_url, username,
			display_name, bio, location, followers_count, posts_count, confidence_score,
			metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("prepare results insert: %w", err)
	}
	defer stmt.Close() // nolint:errcheck // closed with the transaction

	createdAt := s.now().UnixMilli()
	for i, result := range results {
		var metadata sql.NullString
		if len(result.Metadata) > 0 {
			payload, err := json.Marshal(result.Metadata)
			if err != nil {
				return fmt.Errorf("encode result %d metadata: %w", i, err)
			}
			metadata = sql.NullString{String: string(payload), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), searchID, userID, i, string(result.ResultType), result.Platform,
			result.ProfileURL, result.Username, result.DisplayName, result.Bio, result.Location,
			result.FollowersCount, result.PostsCount, result.ConfidenceScore, metadata, createdAt,
		); err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// ListResults returns the stored results for a search in their original order.
func (s *Store) ListResults(ctx context.Context, searchID string) ([]core.StoredResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, s.bind(`
		SELECT id, search_id, user_id, result_type, platform, profile_url, username,
			display_name, bio, location, followers_count, posts_count, confidence_score,
			metadata, created_at
		FROM search_results
		WHERE search_id = ?
		ORDER BY result_index ASC
	`), strings.TrimSpace(searchID))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var results []core.StoredResult
	for rows.Next() {
		var (
			row         core.StoredResult
			resultType  string
			profileURL  sql.NullString
			username    sql.NullString
			displayName sql.NullString
			bio         sql.NullString
			location    sql.NullString
			metadata    sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&row.ID, &row.SearchID, &row.UserID, &resultType, &row.Platform,
			&profileURL, &username, &displayName, &bio, &location,
			&row.FollowersCount, &row.PostsCount, &row.ConfidenceScore, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		row.ResultType = core.ResultType(resultType)
		row.ProfileURL = profileURL.String
		row.Username = username.String
		row.DisplayName = displayName.String
		row.Bio = bio.String
		row.Location = location.String
		row.CreatedAt = time.UnixMilli(createdAt).UTC()
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &row.Metadata); err != nil {
				return nil, fmt.Errorf("decode result metadata: %w", err)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	return results, nil
}
