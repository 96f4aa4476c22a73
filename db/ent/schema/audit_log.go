package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/db/ent/schema/utils"
)

// AuditLog is one append-only audit event. Rows are only removed by retention cleanup.
type AuditLog struct {
	ent.Schema
}

func (AuditLog) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "audit_logs"},
	}
}

func (AuditLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			MaxLen(36).
			NotEmpty().
			Immutable().
			StorageKey("id"),
		field.Time("timestamp").
			Default(time.Now).
			Immutable(),
		// nil for system events
		field.String("user_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("event_type").
			MaxLen(128).
			NotEmpty().
			Immutable(),
		field.JSON("details", map[string]any{}).
			Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.String("severity").
			MaxLen(16).
			Validate(utils.EnumValidator(
				string(constants.SeverityDebug),
				string(constants.SeverityInfo),
				string(constants.SeverityWarning),
				string(constants.SeverityError),
				string(constants.SeverityCritical),
			)),
		field.Int("severity_level").
			Range(0, 4),
		field.String("source").
			MaxLen(32).
			NotEmpty(),
	}
}

func (AuditLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("timestamp"),
		index.Fields("event_type", "timestamp"),
		index.Fields("user_id", "timestamp"),
		index.Fields("severity"),
		index.Fields("source"),
	}
}
