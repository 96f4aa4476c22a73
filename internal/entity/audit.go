package entity

import (
	"time"

	"github.com/joseph-ayodele/docindex/constants"
)

// AuditEvent is one immutable fact about system activity. A nil UserID
// marks a system-originated event.
type AuditEvent struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	UserID        *string            `json:"user_id"`
	EventType     string             `json:"event_type"`
	Details       map[string]any     `json:"details"`
	Severity      constants.Severity `json:"severity"`
	SeverityLevel int                `json:"severity_level"`
	Source        string             `json:"source"`
}

// AuditFilter narrows FetchLogs. Zero values mean "no constraint".
type AuditFilter struct {
	EventType string
	UserID    string
	Severity  string
	Source    string
	Start     *time.Time
	End       *time.Time
}

// AuditPage is one page of FetchLogs output, newest first.
type AuditPage struct {
	Logs       []AuditEvent `json:"logs"`
	TotalCount int64        `json:"total_count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}

// AuditStatistics aggregates events over a period.
type AuditStatistics struct {
	Period struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"period"`
	TotalEvents int64            `json:"total_events"`
	EventTypes  map[string]int64 `json:"event_types"`
	Severities  map[string]int64 `json:"severities"`
	Users       map[string]int64 `json:"users"`
	Sources     map[string]int64 `json:"sources"`
	DailyCounts map[string]int64 `json:"daily_counts"`
	UniqueUsers int              `json:"unique_users"`
	ErrorRate   float64          `json:"error_rate"`
}
