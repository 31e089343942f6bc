package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/store"
	apperrors "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/report"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// SubmitSearchRequest is the body of POST /api/v1/searches.
type SubmitSearchRequest struct {
	Query string `json:"query"`
}

// SubmitSearchResponse acknowledges an accepted search. The record is still
// processing; follow it via the events stream or by polling the detail route.
type SubmitSearchResponse struct {
	Search           core.SearchRecord `json:"search"`
	CreditsRemaining int               `json:"credits_remaining"`
}

// SearchDetail is a search record with its persisted results.
type SearchDetail struct {
	Search  *core.SearchRecord  `json:"search"`
	Results []core.StoredResult `json:"results"`
}

// SubmitSearch runs the guard, credit decrement and record creation inline
// and leaves the analysis step to a background goroutine.
func (a *API) SubmitSearch(w http.ResponseWriter, r *http.Request) {
	session, envelope := a.session(r)
	if envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	var req SubmitSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid request body"))
		return
	}

	record, err := a.Searches.Begin(r.Context(), session, req.Query)
	if err != nil {
		respondWithError(w, r, searchEnvelope(r.Context(), err))
		return
	}

	accepted := SubmitSearchResponse{Search: *record, CreditsRemaining: session.CreditsRemaining()}

	a.runs.Add(1)
	go func(ctx context.Context) {
		defer a.runs.Done()
		ctx, cancel := context.WithTimeout(ctx, a.runTimeout())
		defer cancel()
		if _, err := a.Searches.Run(ctx, session, record); err != nil {
			a.logWarn("Background search run failed",
				zap.String("search_id", record.ID),
				zap.Error(err))
		}
	}(context.WithoutCancel(r.Context()))

	writeJSON(w, http.StatusAccepted, accepted)
}

// ListSearches returns the caller's most recent searches, newest first.
func (a *API) ListSearches(w http.ResponseWriter, r *http.Request) {
	session, envelope := a.session(r)
	if envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid limit"))
		return
	}

	records, err := a.Store.ListSearches(r.Context(), session.User.ID, limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list searches"))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetSearch returns one of the caller's searches with its results.
func (a *API) GetSearch(w http.ResponseWriter, r *http.Request) {
	record, ok := a.ownedSearch(w, r)
	if !ok {
		return
	}

	results, err := a.Store.ListResults(r.Context(), record.ID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load results"))
		return
	}
	if results == nil {
		results = []core.StoredResult{}
	}
	writeJSON(w, http.StatusOK, SearchDetail{Search: record, Results: results})
}

// SearchReport renders the PDF for a completed search.
func (a *API) SearchReport(w http.ResponseWriter, r *http.Request) {
	record, ok := a.ownedSearch(w, r)
	if !ok {
		return
	}
	if record.Status != core.SearchCompleted {
		respondWithError(w, r, apperrors.WrapConflict(r.Context(),
			fmt.Errorf("search status is %s", record.Status), "report is only available for completed searches"))
		return
	}

	results, err := a.Store.ListResults(r.Context(), record.ID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load results"))
		return
	}

	renderer := a.Renderer
	if renderer == nil {
		renderer = report.New()
	}
	doc, err := renderer.Render(record.Query, record.SearchData(results))
	if err != nil {
		if errors.Is(err, report.ErrInvalidInput) {
			respondWithError(w, r, apperrors.WrapDataProcessing(r.Context(), err, "search data cannot be rendered"))
			return
		}
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render report"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := doc.WriteTo(w); err != nil {
		a.logWarn("Failed to write report", zap.String("search_id", record.ID), zap.Error(err))
	}
}

// ownedSearch loads the {id} search for the caller. Records owned by other
// users are reported as not found.
func (a *API) ownedSearch(w http.ResponseWriter, r *http.Request) (*core.SearchRecord, bool) {
	session, envelope := a.session(r)
	if envelope != nil {
		respondWithError(w, r, envelope)
		return nil, false
	}

	record, err := a.Store.GetSearch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrSearchNotFound) {
			respondWithError(w, r, apperrors.WrapNotFound(r.Context(), err, "search not found"))
			return nil, false
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load search"))
		return nil, false
	}
	if record.UserID != session.User.ID {
		respondWithError(w, r, apperrors.NewNotFoundError("search not found"))
		return nil, false
	}
	return record, true
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be positive")
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, nil
}
