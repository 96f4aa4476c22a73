package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/db/ent/schema/utils"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, u entity.User) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role string) error
}

type userRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepo{db: db, logger: logger}
}

var (
	userColumns = []string{"id", "email", "password_hash", "display_name", "role", "created_at"}
	validRole   = utils.EnumValidator(constants.RoleUser, constants.RoleAdmin)
)

func (r *userRepo) Create(ctx context.Context, u entity.User) (*entity.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if existing, err := r.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return nil, common.NewAppError(common.CodeConflict, "email already registered", common.ErrConflict)
	}

	var display any
	if u.DisplayName != "" {
		display = u.DisplayName
	}
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(UsersTable.Name).
		Columns(userColumns...).
		Values(u.ID.String(), u.Email, u.PasswordHash, display, u.Role, u.CreatedAt.UTC()).
		Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewAppError(common.CodeConflict, "email already registered", common.ErrConflict)
		}
		r.logger.Error("failed to create user", "email", u.Email, "error", err)
		return nil, fmt.Errorf("%w: create user: %v", common.ErrDatabase, err)
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("id", id.String()))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("email", strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepo) getOne(ctx context.Context, p *entsql.Predicate) (*entity.User, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select(userColumns...).
		From(entsql.Table(UsersTable.Name)).
		Where(p).
		Limit(1).
		Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: query user: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.NotFoundError("user not found")
	}
	var (
		u       entity.User
		id      string
		display sql.NullString
	)
	if err := rows.Scan(&id, &u.Email, &u.PasswordHash, &display, &u.Role, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	u.ID = parsed
	u.DisplayName = display.String
	return &u, nil
}

func (r *userRepo) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	if err := validRole(role); err != nil {
		return common.InvalidInputErrorf("role: %v", err)
	}
	query, args := entsql.Dialect(r.db.Dialect).
		Update(UsersTable.Name).
		Set("role", role).
		Where(entsql.EQ("id", id.String())).
		Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("%w: set role: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundError("user not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505") ||
		errors.Is(err, common.ErrConflict)
}
