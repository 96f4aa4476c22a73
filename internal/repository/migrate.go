package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// AuditLogsColumns holds the columns for the "audit_logs" table.
	AuditLogsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString, Nullable: true},
		{Name: "event_type", Type: field.TypeString, Size: 128},
		{Name: "details", Type: field.TypeJSON, Nullable: true},
		{Name: "severity", Type: field.TypeString, Size: 16},
		{Name: "severity_level", Type: field.TypeInt},
		{Name: "source", Type: field.TypeString, Size: 32},
	}
	// AuditLogsTable holds the schema information for the "audit_logs" table.
	AuditLogsTable = &schema.Table{
		Name:       "audit_logs",
		Columns:    AuditLogsColumns,
		PrimaryKey: []*schema.Column{AuditLogsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "auditlog_timestamp", Columns: []*schema.Column{AuditLogsColumns[1]}},
			{Name: "auditlog_event_type_timestamp", Columns: []*schema.Column{AuditLogsColumns[3], AuditLogsColumns[1]}},
			{Name: "auditlog_user_id_timestamp", Columns: []*schema.Column{AuditLogsColumns[2], AuditLogsColumns[1]}},
			{Name: "auditlog_severity", Columns: []*schema.Column{AuditLogsColumns[5]}},
			{Name: "auditlog_source", Columns: []*schema.Column{AuditLogsColumns[7]}},
		},
	}
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "email", Type: field.TypeString, Unique: true, Size: 320},
		{Name: "password_hash", Type: field.TypeString},
		{Name: "display_name", Type: field.TypeString, Nullable: true},
		{Name: "role", Type: field.TypeString, Size: 16, Default: "user"},
		{Name: "created_at", Type: field.TypeTime},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		AuditLogsTable,
		UsersTable,
	}
)

// Migrate creates missing tables, columns and indexes. It never drops anything.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := schema.NewMigrate(db.Driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		logger.Error("migration failed", "error", err)
		return fmt.Errorf("create schema: %w", err)
	}
	logger.Info("migration complete", "tables", len(Tables))
	return nil
}
