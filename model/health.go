package model

import "time"

const (
	SourceStatusUp       = "up"
	SourceStatusDegraded = "degraded"
	SourceStatusDown     = "down"
	SourceStatusUnknown  = "unknown"
)

// SourceHealth is a point-in-time snapshot of one upstream ingestion source,
// not a history. SourceName identifies the row within a health report.
type SourceHealth struct {
	SourceName          string     `json:"source_name"`
	FeedUrl             string     `json:"feed_url"`
	LastStatus          string     `json:"last_status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           *string    `json:"last_error"`
	LastLatencyMs       *int64     `json:"last_latency_ms"`
	LastItemsCount      int        `json:"last_items_count"`
	LastCheckedAt       time.Time  `json:"last_checked_at"`
	LastSuccessAt       *time.Time `json:"last_success_at"`
}

// RetryMetrics exposes the backend retry queue as aggregate counts only.
// Pending counts items awaiting retry, Due the subset whose retry time has
// already elapsed.
type RetryMetrics struct {
	Pending int `json:"pending"`
	Due     int `json:"due"`
}

// FilterOptions is the enumerable country/topic vocabulary populating the
// filter selectors. Both sets may legitimately be empty before first load.
type FilterOptions struct {
	Countries []string `json:"countries"`
	Topics    []string `json:"topics"`
}
