package metrics

import "time"

// Search lifecycle series.
const (
	SearchesTotal         = "searches_total"
	SearchDuration        = "search_duration_ms"
	CreditDecrementsTotal = "credits_decrements_total"
	AnalysisCallsTotal    = "analysis_calls_total"
	ReportsGeneratedTotal = "reports_total"
	StatusEventsDropped   = "status_events_dropped_total"
)

// RecordSearch counts a search reaching a terminal status and its duration
// from record creation.
func RecordSearch(status string, d time.Duration) {
	labels := map[string]string{"status": status}
	count(SearchesTotal, labels)
	if d > 0 {
		observe(SearchDuration, d, labels)
	}
}

// RecordCreditDecrement counts decrement attempts by result: ok, no_credits
// or error.
func RecordCreditDecrement(result string) {
	count(CreditDecrementsTotal, map[string]string{"result": result})
}

// RecordAnalysisCall counts analysis calls by outcome: success, rate_limited
// or failure.
func RecordAnalysisCall(result string) {
	count(AnalysisCallsTotal, map[string]string{"outcome": result})
}

// RecordReport counts report renders.
func RecordReport(success bool) {
	count(ReportsGeneratedTotal, map[string]string{"status": outcome(success, "success", "failure")})
}

// RecordDroppedEvent counts a status event a slow subscriber missed.
func RecordDroppedEvent() {
	count(StatusEventsDropped, nil)
}
