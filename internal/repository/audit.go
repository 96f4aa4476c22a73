package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

// AuditRepository is the durable, append-only log store behind the audit trail.
type AuditRepository interface {
	Append(ctx context.Context, ev entity.AuditEvent) error
	Query(ctx context.Context, f entity.AuditFilter, limit, offset int) ([]entity.AuditEvent, error)
	Count(ctx context.Context, f entity.AuditFilter) (int64, error)
	// Each streams matching events, newest first. fn must not call back into the repository.
	Each(ctx context.Context, f entity.AuditFilter, fn func(entity.AuditEvent) error) error
	// DeleteBefore removes events older than cutoff in batches and returns the total deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type auditRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewAuditRepository(db *DB, logger *slog.Logger) AuditRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &auditRepo{db: db, logger: logger}
}

var auditSelectColumns = []string{"id", "timestamp", "user_id", "event_type", "details", "severity", "severity_level", "source"}

func (r *auditRepo) Append(ctx context.Context, ev entity.AuditEvent) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	var userID any
	if ev.UserID != nil {
		userID = *ev.UserID
	}
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(AuditLogsTable.Name).
		Columns(auditSelectColumns...).
		Values(ev.ID, ev.Timestamp.UTC(), userID, ev.EventType, string(details), string(ev.Severity), ev.SeverityLevel, ev.Source).
		Query()

	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to append audit event", "event_type", ev.EventType, "error", err)
		return err
	}
	return nil
}

func predicates(f entity.AuditFilter) []*entsql.Predicate {
	var ps []*entsql.Predicate
	if f.EventType != "" {
		ps = append(ps, entsql.EQ("event_type", f.EventType))
	}
	if f.UserID != "" {
		ps = append(ps, entsql.EQ("user_id", f.UserID))
	}
	if f.Severity != "" {
		ps = append(ps, entsql.EQ("severity", f.Severity))
	}
	if f.Source != "" {
		ps = append(ps, entsql.EQ("source", f.Source))
	}
	if f.Start != nil {
		ps = append(ps, entsql.GTE("timestamp", f.Start.UTC()))
	}
	if f.End != nil {
		ps = append(ps, entsql.LTE("timestamp", f.End.UTC()))
	}
	return ps
}

func (r *auditRepo) selector(f entity.AuditFilter, columns ...string) *entsql.Selector {
	sel := entsql.Dialect(r.db.Dialect).Select(columns...).From(entsql.Table(AuditLogsTable.Name))
	if ps := predicates(f); len(ps) > 0 {
		sel = sel.Where(entsql.And(ps...))
	}
	return sel
}

func (r *auditRepo) Query(ctx context.Context, f entity.AuditFilter, limit, offset int) ([]entity.AuditEvent, error) {
	sel := r.selector(f, auditSelectColumns...).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Limit(limit).
		Offset(offset)
	out := make([]entity.AuditEvent, 0)
	err := r.scan(ctx, sel, func(ev entity.AuditEvent) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

func (r *auditRepo) Each(ctx context.Context, f entity.AuditFilter, fn func(entity.AuditEvent) error) error {
	sel := r.selector(f, auditSelectColumns...).OrderBy(entsql.Desc("timestamp"), entsql.Desc("id"))
	return r.scan(ctx, sel, fn)
}

func (r *auditRepo) Count(ctx context.Context, f entity.AuditFilter) (int64, error) {
	query, args := r.selector(f, entsql.Count("*")).Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func (r *auditRepo) scan(ctx context.Context, sel *entsql.Selector, fn func(entity.AuditEvent) error) error {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		r.logger.Error("failed to query audit events", "error", err)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev       entity.AuditEvent
			userID   sql.NullString
			details  []byte
			severity string
		)
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &userID, &ev.EventType, &details, &severity, &ev.SeverityLevel, &ev.Source); err != nil {
			return fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		ev.Severity = constants.Severity(severity)
		if userID.Valid {
			uid := userID.String
			ev.UserID = &uid
		}
		ev.Details = map[string]any{}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				r.logger.Warn("undecodable audit details", "id", ev.ID, "error", err)
			}
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *auditRepo) DeleteBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = constants.AuditDeleteBatchSize
	}
	var total int64
	for {
		ids, err := r.idsBefore(ctx, cutoff, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		query, args := entsql.Dialect(r.db.Dialect).
			Delete(AuditLogsTable.Name).
			Where(entsql.In("id", ids...)).
			Query()
		var res sql.Result
		if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
			return total, fmt.Errorf("delete audit batch: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(ids))
		}
		total += n
		r.logger.Debug("audit batch deleted", "count", n, "total", total)
		if len(ids) < batchSize {
			return total, nil
		}
	}
}

func (r *auditRepo) idsBefore(ctx context.Context, cutoff time.Time, limit int) ([]any, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select("id").
		From(entsql.Table(AuditLogsTable.Name)).
		Where(entsql.LT("timestamp", cutoff.UTC())).
		OrderBy(entsql.Asc("timestamp")).
		Limit(limit).
		Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []any
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
