package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/analysis"
)

// OSINTSearch serves the analysis function. Responses always use the
// function envelope rather than the API error envelope.
func (a *API) OSINTSearch(w http.ResponseWriter, r *http.Request) {
	if a.Function == nil {
		writeJSON(w, http.StatusServiceUnavailable, analysis.Response{Error: "analysis function not configured"})
		return
	}

	var req analysis.Request
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, analysis.Response{Error: "invalid request body"})
		return
	}

	data, err := a.Function.Analyze(r.Context(), ailink.AnalysisRequest{
		Query:    req.Query,
		SearchID: req.SearchID,
		UserID:   req.UserID,
	})
	if err != nil {
		status, message := http.StatusInternalServerError, "Search failed"
		var ferr *ailink.FunctionError
		if errors.As(err, &ferr) {
			status = ferr.HTTPStatus()
			if strings.TrimSpace(ferr.Message) != "" {
				message = ferr.Message
			}
		}
		a.logWarn("Analysis function failed",
			zap.String("search_id", req.SearchID),
			zap.Int("status", status),
			zap.Error(err))
		writeJSON(w, status, analysis.Response{Error: message})
		return
	}

	writeJSON(w, http.StatusOK, analysis.Response{
		Success:  true,
		Data:     data,
		SearchID: req.SearchID,
		Query:    req.Query,
	})
}
