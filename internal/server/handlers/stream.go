package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/headhuntertrace/headhunter/internal/core"
	apperrors "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/events"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 15 * time.Second
)

// SearchEvents streams status events for one search as Server-Sent Events.
// A search that already reached a terminal status gets a single synthesized
// event; otherwise the stream closes after the first terminal stage.
func (a *API) SearchEvents(w http.ResponseWriter, r *http.Request) {
	if a.Bus == nil {
		respondWithError(w, r, apperrors.New(apperrors.CodeServiceUnavailable, "event stream not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, r, apperrors.NewInternalError("streaming unsupported"))
		return
	}

	record, ok := a.ownedSearch(w, r)
	if !ok {
		return
	}

	ch, cancel := a.Bus.SubscribeSearch(record.ID, streamBuffer)
	defer cancel()

	// Reload after subscribing so a transition in between is not lost.
	if latest, err := a.Store.GetSearch(r.Context(), record.ID); err == nil {
		record = latest
	}

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if record.Status.IsTerminal() {
		_ = writeEvent(w, terminalEvent(record))
		flusher.Flush()
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			if err := writeEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Stage.IsTerminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Stage, payload)
	return err
}

func terminalEvent(record *core.SearchRecord) events.Event {
	event := events.Event{
		SearchID:     record.ID,
		UserID:       record.UserID,
		Query:        record.Query,
		Status:       record.Status,
		ResultsCount: record.ResultsCount,
		Error:        record.ErrorMessage,
		At:           record.UpdatedAt,
	}
	if record.Status == core.SearchCompleted {
		event.Stage = events.StageCompleted
	} else {
		event.Stage = events.StageFailed
	}
	return event
}
