package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/headhuntertrace/headhunter/internal/core"
)

const (
	uniqueViolation = "23505"
	emailIndex      = "idx_user_profiles_email"
)

// CreateProfile inserts a new user profile. The id, plan and starting
// balance must already be set by the caller.
func (s *Store) CreateProfile(ctx context.Context, profile *core.UserProfile) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if profile == nil {
		return errors.New("profile is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	profile.ID = strings.TrimSpace(profile.ID)
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.ID == "" {
		return errors.New("profile id is required")
	}
	if profile.Email == "" {
		return errors.New("profile email is required")
	}
	if profile.Plan == "" {
		profile.Plan = core.PlanFree
	}
	if profile.CreditsRemaining < 0 {
		return errors.New("credits must not be negative")
	}

	existing, err := s.GetProfileByEmail(ctx, profile.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if existing != nil {
		return ErrDuplicateEmail
	}

	now := s.now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	return s.insertProfile(ctx, profile)
}

// insertProfile writes the row. A concurrent create that passed the email
// lookup is rejected by the unique index and reported as ErrDuplicateEmail.
func (s *Store) insertProfile(ctx context.Context, profile *core.UserProfile) error {
	_, err := s.DB.ExecContext(ctx, s.bind(`
		INSERT INTO user_profiles (id, email, plan, credits_remaining, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), profile.ID, profile.Email, string(profile.Plan), profile.CreditsRemaining,
		profile.CreatedAt.UnixMilli(), profile.UpdatedAt.UnixMilli())
	switch {
	case err == nil:
		return nil
	case isEmailConflict(err):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("insert profile: %w", err)
	}
}

// isEmailConflict matches the email unique index violation of either driver.
func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailIndex
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "user_profiles.email")
}

// GetProfile loads a profile by user id.
func (s *Store) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	return s.getProfile(ctx, "id", strings.TrimSpace(userID))
}

// GetProfileByEmail loads a profile by its (case-insensitive) email.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*core.UserProfile, error) {
	return s.getProfile(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getProfile(ctx context.Context, column, value string) (*core.UserProfile, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if value == "" {
		return nil, ErrUserNotFound
	}

	var (
		profile   core.UserProfile
		plan      string
		createdAt int64
		updatedAt int64
	)

	// column is one of two internal constants.
	row := s.DB.QueryRowContext(ctx, s.bind(`
		SELECT id, email, plan, credits_remaining, created_at, updated_at
		FROM user_profiles
		WHERE `+column+` = ?
	`), value)

	if err := row.Scan(&profile.ID, &profile.Email, &plan, &profile.CreditsRemaining, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	profile.Plan = core.Plan(plan)
	profile.CreatedAt = time.UnixMilli(createdAt).UTC()
	profile.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &profile, nil
}

// DecrementCredits atomically spends one credit and returns the new balance.
// It fails with ErrNoCredits when the balance is already zero and with
// ErrUserNotFound when the profile does not exist.
func (s *Store) DecrementCredits(ctx context.Context, userID string) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrUserNotFound
	}

	var remaining int
	row := s.DB.QueryRowContext(ctx, s.bind(`
		UPDATE user_profiles
		SET credits_remaining = credits_remaining - 1, updated_at = ?
		WHERE id = ? AND credits_remaining > 0
		RETURNING credits_remaining
	`), s.now().UnixMilli(), userID)

	err := row.Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("decrement credits: %w", err)
	}

	if _, lookupErr := s.GetProfile(ctx, userID); lookupErr != nil {
		return 0, lookupErr
	}
	return 0, ErrNoCredits
}

// GrantCredits adds amount credits to a profile and returns the new balance.
func (s *Store) GrantCredits(ctx context.Context, userID string, amount int) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if amount <= 0 {
		return 0, errors.New("grant amount must be positive")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var remaining int
	row := s.DB.QueryRowContext(ctx, s.bind(`
		UPDATE user_profiles
		SET credits_remaining = credits_remaining + ?, updated_at = ?
		WHERE id = ?
		RETURNING credits_remaining
	`), amount, s.now().UnixMilli(), strings.TrimSpace(userID))

	if err := row.Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("grant credits: %w", err)
	}
	return remaining, nil
}

// SetPlan changes a profile's plan without touching its balance.
func (s *Store) SetPlan(ctx context.Context, userID string, plan core.Plan) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, s.bind(`
		UPDATE user_profiles SET plan = ?, updated_at = ? WHERE id = ?
	`), string(plan), s.now().UnixMilli(), strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}
