package core

import (
	"fmt"
	"strings"
	"time"
)

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanPremiumBasic Plan = "premium_basic"
	PlanPremiumPro   Plan = "premium_pro"
	PlanEnterprise   Plan = "enterprise"
)

// ParsePlan normalizes a plan name. Empty input maps to the free plan.
func ParsePlan(value string) (Plan, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch Plan(normalized) {
	case "", PlanFree:
		return PlanFree, nil
	case PlanPremiumBasic, PlanPremiumPro, PlanEnterprise:
		return Plan(normalized), nil
	default:
		return "", fmt.Errorf("unknown plan %q", value)
	}
}

// IsPaid reports whether the plan is a paid tier.
func (p Plan) IsPaid() bool {
	return p != PlanFree && p != ""
}

// UserProfile is the account state that gates searches.
type UserProfile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Plan             Plan      `json:"plan"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// User identifies the caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session carries the caller and their last-loaded profile. It is passed
// explicitly to every operation that needs it and refreshed on demand.
type Session struct {
	User    User         `json:"user"`
	Profile *UserProfile `json:"profile,omitempty"`
}

// NewSession builds a session from a loaded profile.
func NewSession(profile *UserProfile) *Session {
	if profile == nil {
		return &Session{}
	}
	return &Session{
		User:    User{ID: profile.ID, Email: profile.Email},
		Profile: profile,
	}
}

// CreditsRemaining returns the cached balance, or 0 when no profile is loaded.
func (s *Session) CreditsRemaining() int {
	if s == nil || s.Profile == nil {
		return 0
	}
	return s.Profile.CreditsRemaining
}
