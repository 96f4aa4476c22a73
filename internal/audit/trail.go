package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/repository"
)

const systemUser = "system"

// Trail records audit events on top of a durable log store. Writes never
// fail the caller; reads and cleanup return errors normally.
type Trail struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

type Option func(*Trail)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Trail) { t.now = now }
}

func NewTrail(repo repository.AuditRepository, logger *slog.Logger, opts ...Option) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Trail{repo: repo, logger: logger, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// stamp hands out strictly increasing timestamps so newest-first ordering
// is total even for events logged within the same clock tick.
func (t *Trail) stamp() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := t.now().UTC().Truncate(time.Microsecond)
	if !ts.After(t.last) {
		ts = t.last.Add(time.Microsecond)
	}
	t.last = ts
	return ts
}

// LogEvent appends one event and returns its id, or "" when the event could
// not be stored. On failure it makes a single AUDIT_LOG_ERROR write and
// gives up.
func (t *Trail) LogEvent(ctx context.Context, userID *string, eventType string, details map[string]any, severity constants.Severity, source string) (id string) {
	eventType = strings.ToUpper(strings.TrimSpace(eventType))
	if eventType == "" {
		eventType = "UNKNOWN"
	}
	level, ok := constants.SeverityLevel(severity)
	if !ok {
		severity = constants.SeverityInfo
		level, _ = constants.SeverityLevel(severity)
	}
	if source == "" {
		source = constants.SourceAPI
	}

	ev := entity.AuditEvent{
		ID:            uuid.NewString(),
		Timestamp:     t.stamp(),
		UserID:        userID,
		EventType:     eventType,
		Details:       map[string]any{},
		Severity:      severity,
		SeverityLevel: level,
		Source:        source,
	}
	for k, v := range details {
		ev.Details[k] = v
	}
	if details != nil {
		if _, ok := ev.Details["timestamp_iso"]; !ok {
			ev.Details["timestamp_iso"] = ev.Timestamp.Format(time.RFC3339Nano)
		}
	}

	err := t.append(ctx, ev)
	if err == nil {
		t.logger.Debug("audit.log.ok", "event_type", eventType, "id", ev.ID)
		return ev.ID
	}
	t.logger.Error("audit.log.failed", "event_type", eventType, "error", err)
	t.fallback(ctx, ev, err)
	return ""
}

func (t *Trail) append(ctx context.Context, ev entity.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit append panic: %v", r)
		}
	}()
	return t.repo.Append(ctx, ev)
}

func (t *Trail) fallback(ctx context.Context, orig entity.AuditEvent, cause error) {
	var origUser any
	if orig.UserID != nil {
		origUser = *orig.UserID
	}
	sys := systemUser
	level, _ := constants.SeverityLevel(constants.SeverityError)
	ev := entity.AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: t.stamp(),
		UserID:    &sys,
		EventType: constants.EventAuditLogError,
		Details: map[string]any{
			"original_event_type": orig.EventType,
			"original_user_id":    origUser,
			"error":               cause.Error(),
			"error_type":          fmt.Sprintf("%T", cause),
		},
		Severity:      constants.SeverityError,
		SeverityLevel: level,
		Source:        constants.SourceAuditSystem,
	}
	if err := t.append(ctx, ev); err != nil {
		t.logger.Error("audit.log.fallback_failed", "original_event_type", orig.EventType, "error", err)
		return
	}
	t.logger.Warn("audit.log.fallback", "original_event_type", orig.EventType, "id", ev.ID)
}

// LogSystemEvent records an event with no user and source "system".
func (t *Trail) LogSystemEvent(ctx context.Context, eventType string, details map[string]any, severity constants.Severity) string {
	return t.LogEvent(ctx, nil, eventType, details, severity, constants.SourceSystem)
}

// LogError records a SYSTEM_ERROR describing err.
func (t *Trail) LogError(ctx context.Context, err error, where string, userID *string, details map[string]any) string {
	d := map[string]any{}
	for k, v := range details {
		d[k] = v
	}
	if err != nil {
		d["error_message"] = err.Error()
		d["error_type"] = fmt.Sprintf("%T", err)
	}
	if where != "" {
		d["context"] = where
	}
	return t.LogEvent(ctx, userID, constants.EventSystemError, d, constants.SeverityError, constants.SourceSystem)
}

// Initialize marks the trail as ready in the log itself.
func (t *Trail) Initialize(ctx context.Context) string {
	return t.LogSystemEvent(ctx, constants.EventAuditSystemInitialized, map[string]any{
		"max_query_limit":   constants.AuditMaxQueryLimit,
		"retention_days":    constants.AuditDefaultRetention,
		"delete_batch_size": constants.AuditDeleteBatchSize,
	}, constants.SeverityInfo)
}
