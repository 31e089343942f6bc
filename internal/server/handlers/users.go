package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/store"
	apperrors "github.com/headhuntertrace/headhunter/internal/errors"
)

// CreateUserRequest is the body of POST /api/v1/users.
type CreateUserRequest struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// GrantCreditsRequest is the body of POST /api/v1/users/{id}/credits.
type GrantCreditsRequest struct {
	Amount int `json:"amount"`
}

// GrantCreditsResponse reports the balance after a grant.
type GrantCreditsResponse struct {
	UserID           string `json:"user_id"`
	CreditsRemaining int    `json:"credits_remaining"`
}

// CreateUser registers a profile with the starting allotment of its plan.
func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid request body"))
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		respondWithError(w, r, apperrors.NewInvalidInputError("a valid email is required"))
		return
	}
	plan, err := core.ParsePlan(req.Plan)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "unknown plan"))
		return
	}

	profile := &core.UserProfile{
		ID:               a.newID(),
		Email:            email,
		Plan:             plan,
		CreditsRemaining: a.Credits.Allotment(plan),
	}
	if err := a.Store.CreateProfile(r.Context(), profile); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			respondWithError(w, r, apperrors.WrapConflict(r.Context(), err, "email already registered"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to create profile"))
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// Me returns the caller's freshly loaded profile.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	session, envelope := a.session(r)
	if envelope != nil {
		respondWithError(w, r, envelope)
		return
	}
	writeJSON(w, http.StatusOK, session.Profile)
}

// GrantCredits adds credits to a profile. Requires the admin bearer token.
func (a *API) GrantCredits(w http.ResponseWriter, r *http.Request) {
	if !a.authorizedAdmin(r) {
		respondWithError(w, r, apperrors.NewUnauthorizedError("admin token required"))
		return
	}

	var req GrantCreditsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid request body"))
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, r, apperrors.NewInvalidInputError("amount must be positive"))
		return
	}

	userID := chi.URLParam(r, "id")
	remaining, err := a.Store.GrantCredits(r.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, r, apperrors.WrapNotFound(r.Context(), err, "user not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to grant credits"))
		return
	}

	writeJSON(w, http.StatusOK, GrantCreditsResponse{UserID: userID, CreditsRemaining: remaining})
}

func (a *API) authorizedAdmin(r *http.Request) bool {
	if a.AdminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(a.AdminToken)) == 1
}
