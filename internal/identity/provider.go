package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/repository"
)

const (
	TokenType         = "bearer"
	DefaultTokenTTL   = time.Hour
	MinPasswordLen    = 6
	verifyCacheSize   = 4096
	verifyCacheMaxAge = 5 * time.Minute
)

type Config struct {
	SecretKey string
	TokenTTL  time.Duration
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Token is what a successful login returns to the client.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type cachedIdentity struct {
	identity entity.Identity
	expires  time.Time
}

// Provider issues and verifies identity tokens for users kept in SQL.
type Provider struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	cache  *expirable.LRU[string, cachedIdentity]
	logger *slog.Logger
}

func NewProvider(users repository.UserRepository, cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	secret := []byte(cfg.SecretKey)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		logger.Warn("identity.secret.ephemeral", "msg", "SECRET_KEY unset; tokens will not survive a restart")
	}
	return &Provider{
		users:  users,
		secret: secret,
		ttl:    cfg.TokenTTL,
		cache:  expirable.NewLRU[string, cachedIdentity](verifyCacheSize, nil, verifyCacheMaxAge),
		logger: logger,
	}, nil
}

func unauthorized(msg string) error {
	return common.NewAppError(common.CodeUnauth, msg, common.ErrUnauthorized)
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (p *Provider) CreateUser(ctx context.Context, email, password, displayName string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	v := common.NewValidator().
		Field("email", email, common.Required, common.Email).
		Field("password", password, common.Required, common.MinLength(MinPasswordLen))
	if err := v.Err(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.InternalError("hash password", err)
	}
	u, err := p.users.Create(ctx, entity.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		Role:         constants.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("identity.user.created", "uid", u.ID.String(), "email", u.Email)
	return u, nil
}

// Login checks credentials and issues a token.
func (p *Provider) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, unauthorized("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, unauthorized("invalid email or password")
	}
	signed, exp, err := p.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, TokenType: TokenType, ExpiresIn: int64(time.Until(exp).Seconds())}, nil
}

// IssueToken signs an HS256 token for u.
func (p *Provider) IssueToken(u *entity.User) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(p.ttl)
	claims := Claims{
		UID:   u.ID.String(),
		Email: u.Email,
		Admin: u.Role == constants.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, common.InternalError("sign token", err)
	}
	return signed, exp, nil
}

// VerifyToken validates signature and expiry, then resolves the caller's
// current role. Results are cached per token until expiry, at most 5 minutes.
func (p *Provider) VerifyToken(ctx context.Context, raw string) (*entity.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, unauthorized("missing token")
	}
	if hit, ok := p.cache.Get(raw); ok {
		if time.Now().Before(hit.expires) {
			id := hit.identity
			return &id, nil
		}
		p.cache.Remove(raw)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		p.logger.Debug("identity.verify.rejected", "error", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorized("token expired")
		}
		return nil, unauthorized("invalid token")
	}

	uid, err := uuid.Parse(claims.UID)
	if err != nil {
		return nil, unauthorized("invalid token")
	}
	u, err := p.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, unauthorized("unknown user")
		}
		return nil, err
	}

	id := entity.Identity{UserID: u.ID.String(), Email: u.Email, IsAdmin: u.Role == constants.RoleAdmin}
	p.cache.Add(raw, cachedIdentity{identity: id, expires: claims.ExpiresAt.Time})
	return &id, nil
}

// SetAdminClaim grants or revokes admin and drops every cached verification.
func (p *Provider) SetAdminClaim(ctx context.Context, uid uuid.UUID, admin bool) error {
	role := constants.RoleUser
	if admin {
		role = constants.RoleAdmin
	}
	if err := p.users.SetRole(ctx, uid, role); err != nil {
		return err
	}
	p.cache.Purge()
	p.logger.Info("identity.role.updated", "uid", uid.String(), "role", role)
	return nil
}

// PromoteByEmail is the bootstrap path used by the CLI.
func (p *Provider) PromoteByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := p.SetAdminClaim(ctx, u.ID, true); err != nil {
		return nil, err
	}
	u.Role = constants.RoleAdmin
	return u, nil
}
