package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

// LogQuery is the caller-facing filter for FetchLogs. Dates are strings as
// received from clients; ones that do not parse are ignored.
type LogQuery struct {
	Limit     int
	Offset    int
	EventType string
	UserID    string
	Severity  string
	Source    string
	StartDate string
	EndDate   string
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339, a zone-less datetime (read as UTC) or a bare date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func (t *Trail) lenientDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	ts, err := ParseDate(raw)
	if err != nil {
		t.logger.Warn("audit.query.bad_date", "field", field, "value", raw)
		return nil
	}
	return &ts
}

// ClampLimit applies the default and the hard maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return constants.AuditDefaultQueryLimit
	}
	if limit > constants.AuditMaxQueryLimit {
		return constants.AuditMaxQueryLimit
	}
	return limit
}

// FetchLogs returns one page of events, newest first, plus the total match count.
func (t *Trail) FetchLogs(ctx context.Context, q LogQuery) (entity.AuditPage, error) {
	limit := ClampLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	f := entity.AuditFilter{
		EventType: strings.ToUpper(strings.TrimSpace(q.EventType)),
		UserID:    strings.TrimSpace(q.UserID),
		Severity:  strings.ToUpper(strings.TrimSpace(q.Severity)),
		Source:    strings.TrimSpace(q.Source),
		Start:     t.lenientDate("start_date", q.StartDate),
		End:       t.lenientDate("end_date", q.EndDate),
	}

	logs, err := t.repo.Query(ctx, f, limit, offset)
	if err != nil {
		t.logger.Error("audit.query.failed", "error", err)
		return entity.AuditPage{}, fmt.Errorf("fetch audit logs: %w", err)
	}
	total, err := t.repo.Count(ctx, f)
	if err != nil {
		return entity.AuditPage{}, fmt.Errorf("count audit logs: %w", err)
	}
	return entity.AuditPage{Logs: logs, TotalCount: total, Limit: limit, Offset: offset}, nil
}

// Statistics aggregates events between start and end. Nil bounds default to
// the last 30 days.
func (t *Trail) Statistics(ctx context.Context, start, end *time.Time) (*entity.AuditStatistics, error) {
	to := t.now().UTC()
	if end != nil {
		to = end.UTC()
	}
	from := to.AddDate(0, 0, -30)
	if start != nil {
		from = start.UTC()
	}

	stats := &entity.AuditStatistics{
		EventTypes:  map[string]int64{},
		Severities:  map[string]int64{},
		Users:       map[string]int64{},
		Sources:     map[string]int64{},
		DailyCounts: map[string]int64{},
	}
	stats.Period.Start, stats.Period.End = from, to

	var errorCount int64
	err := t.repo.Each(ctx, entity.AuditFilter{Start: &from, End: &to}, func(ev entity.AuditEvent) error {
		stats.TotalEvents++
		stats.EventTypes[ev.EventType]++
		stats.Severities[string(ev.Severity)]++
		stats.Sources[ev.Source]++
		stats.DailyCounts[ev.Timestamp.UTC().Format("2006-01-02")]++
		if ev.UserID != nil && *ev.UserID != "" {
			stats.Users[*ev.UserID]++
		}
		if ev.Severity == constants.SeverityError || ev.Severity == constants.SeverityCritical {
			errorCount++
		}
		return nil
	})
	if err != nil {
		t.logger.Error("audit.stats.failed", "error", err)
		return nil, fmt.Errorf("audit statistics: %w", err)
	}
	stats.UniqueUsers = len(stats.Users)
	if stats.TotalEvents > 0 {
		stats.ErrorRate = float64(errorCount) / float64(stats.TotalEvents)
	}
	return stats, nil
}

// Cleanup deletes events older than daysToKeep days and returns the count.
func (t *Trail) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep < 1 {
		return 0, fmt.Errorf("days to keep must be at least 1, got %d", daysToKeep)
	}
	cutoff := t.now().UTC().AddDate(0, 0, -daysToKeep)
	t.LogSystemEvent(ctx, constants.EventAuditCleanupStarted, map[string]any{
		"days_to_keep": daysToKeep,
		"cutoff_date":  cutoff.Format(time.RFC3339),
	}, constants.SeverityWarning)

	deleted, err := t.repo.DeleteBefore(ctx, cutoff, constants.AuditDeleteBatchSize)
	if err != nil {
		t.LogSystemEvent(ctx, constants.EventAuditCleanupFailed, map[string]any{
			"days_to_keep":  daysToKeep,
			"deleted_count": deleted,
			"error":         err.Error(),
		}, constants.SeverityError)
		return deleted, fmt.Errorf("audit cleanup: %w", err)
	}

	t.LogSystemEvent(ctx, constants.EventAuditCleanupCompleted, map[string]any{
		"days_to_keep":  daysToKeep,
		"deleted_count": deleted,
		"cutoff_date":   cutoff.Format(time.RFC3339),
	}, constants.SeverityWarning)
	t.logger.Info("audit.cleanup.ok", "deleted", deleted, "days_to_keep", daysToKeep)
	return deleted, nil
}
