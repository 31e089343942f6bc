// Package events carries search status transitions to observers.
//
// The orchestrator publishes one Event per lifecycle step. The in-process Bus
// feeds the SSE endpoint; RedisPublisher forwards the same events to other
// processes. Publishing never fails a search.
package events

import (
	"context"
	"time"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// Stage names a step of the search lifecycle.
type Stage string

const (
	StageRejected       Stage = "rejected"
	StageCreditDeducted Stage = "credit_deducted"
	StageRecordCreated  Stage = "record_created"
	StageInvoking       Stage = "invoking"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
)

// IsTerminal reports whether no further events follow this stage for a search.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageRejected
}

// Event is a single status notification.
type Event struct {
	SearchID         string            `json:"search_id,omitempty"`
	UserID           string            `json:"user_id"`
	Query            string            `json:"query"`
	Stage            Stage             `json:"stage"`
	Status           core.SearchStatus `json:"status,omitempty"`
	ResultsCount     int               `json:"results_count,omitempty"`
	CreditsRemaining *int              `json:"credits_remaining,omitempty"`
	Error            string            `json:"error,omitempty"`
	At               time.Time         `json:"at"`
}

// Publisher receives status events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}
