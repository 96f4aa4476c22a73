package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/db/ent/schema/utils"
)

// User is a registered API account.
type User struct {
	ent.Schema
}

func (User) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "users"},
	}
}

func (User) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("email").
			MaxLen(320).
			NotEmpty().
			Unique(),
		field.String("password_hash").
			NotEmpty().
			Sensitive(),
		field.String("display_name").
			Optional().
			Nillable(),
		field.String("role").
			MaxLen(16).
			Default(constants.RoleUser).
			Validate(utils.EnumValidator(constants.RoleUser, constants.RoleAdmin)),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}
