package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/headhuntertrace/headhunter/internal/core"
)

const searchColumns = `id, user_id, query, query_type, status, results_count, summary, error_message, created_at, updated_at`

// CreateSearch inserts a new search record in the processing state.
func (s *Store) CreateSearch(ctx context.Context, record *core.SearchRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if record == nil {
		return errors.New("search record is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(record.ID) == "" {
		return errors.New("search id is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return errors.New("search user id is required")
	}
	if record.Status == "" {
		record.Status = core.SearchProcessing
	}
	if record.Status != core.SearchProcessing {
		return fmt.Errorf("new search must be %s, got %s", core.SearchProcessing, record.Status)
	}
	if record.QueryType == "" {
		record.QueryType = core.QueryTypeName
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	record.UpdatedAt = record.CreatedAt

	_, err := s.DB.ExecContext(ctx, s.bind(`
		INSERT INTO searches (`+searchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)
	`), record.ID, record.UserID, record.Query, record.QueryType, string(record.Status),
		record.ResultsCount, record.CreatedAt.UnixMilli(), record.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

// CompleteSearch moves a processing record to completed, recording the
// result count and summary.
func (s *Store) CompleteSearch(ctx context.Context, id string, resultsCount int, summary *core.SearchSummary) error {
	var summaryJSON sql.NullString
	if summary != nil {
		payload, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summaryJSON = sql.NullString{String: string(payload), Valid: true}
	}

	return s.transition(ctx, id, core.SearchCompleted, `results_count = ?, summary = ?`, resultsCount, summaryJSON)
}

// FailSearch moves a processing record to failed. results_count is left untouched.
func (s *Store) FailSearch(ctx context.Context, id string, message string) error {
	var msg sql.NullString
	if strings.TrimSpace(message) != "" {
		msg = sql.NullString{String: message, Valid: true}
	}
	return s.transition(ctx, id, core.SearchFailed, `error_message = ?`, msg)
}

func (s *Store) transition(ctx context.Context, id string, to core.SearchStatus, set string, args ...any) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ErrSearchNotFound
	}

	params := append([]any{string(to)}, args...)
	params = append(params, s.now().UnixMilli(), id, string(core.SearchProcessing))

	res, err := s.DB.ExecContext(ctx, s.bind(`
		UPDATE searches
		SET status = ?, `+set+`, updated_at = ?
		WHERE id = ? AND status = ?
	`), params...)
	if err != nil {
		return fmt.Errorf("update search status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update search status: %w", err)
	}
	if n > 0 {
		return nil
	}

	current, err := s.GetSearch(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
}

// GetSearch loads a search record by id.
func (s *Store) GetSearch(ctx context.Context, id string) (*core.SearchRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, s.bind(`
		SELECT `+searchColumns+`
		FROM searches
		WHERE id = ?
	`), strings.TrimSpace(id))

	record, err := scanSearch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSearchNotFound
		}
		return nil, fmt.Errorf("fetch search: %w", err)
	}
	return record, nil
}

// ListSearches returns a user's most recent searches, newest first.
func (s *Store) ListSearches(ctx context.Context, userID string, limit int) ([]core.SearchRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.DB.QueryContext(ctx, s.bind(`
		SELECT `+searchColumns+`
		FROM searches
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	records := make([]core.SearchRecord, 0, limit)
	for rows.Next() {
		record, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(row rowScanner) (*core.SearchRecord, error) {
	var (
		record    core.SearchRecord
		status    string
		summary   sql.NullString
		errMsg    sql.NullString
		createdAt int64
		updatedAt int64
	)

	if err := row.Scan(&record.ID, &record.UserID, &record.Query, &record.QueryType, &status,
		&record.ResultsCount, &summary, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsed, err := core.ParseSearchStatus(status)
	if err != nil {
		return nil, err
	}
	record.Status = parsed
	record.ErrorMessage = errMsg.String
	record.CreatedAt = time.UnixMilli(createdAt).UTC()
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if summary.Valid && strings.TrimSpace(summary.String) != "" {
		var decoded core.SearchSummary
		if err := json.Unmarshal([]byte(summary.String), &decoded); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		record.Summary = &decoded
	}

	return &record, nil
}
