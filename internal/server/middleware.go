package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

const (
	requestIDHeader = "X-Request-Id"
	identityKey     = "identity"
)

// requestID propagates or mints a request id and stores it on the request context.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http.request",
			"req_id", common.RequestIDFromContext(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) bind(c *gin.Context, id *entity.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(common.WithUserID(c.Request.Context(), id.UserID))
}

func currentIdentity(c *gin.Context) *entity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*entity.Identity); ok {
			return id
		}
	}
	return nil
}

func currentUserID(c *gin.Context) *string {
	if id := currentIdentity(c); id != nil {
		uid := id.UserID
		return &uid
	}
	return nil
}

// optionalAuth attaches the caller identity when a valid token is present and
// lets the request through either way.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" && s.deps.Identity != nil {
			if id, err := s.deps.Identity.VerifyToken(c.Request.Context(), raw); err == nil {
				s.bind(c, id)
			}
		}
		c.Next()
	}
}

func (s *Server) unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	writeError(c, common.NewAppError(common.CodeUnauth, msg, common.ErrUnauthorized))
	c.Abort()
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			s.unauthorized(c, "not authenticated")
			return
		}
		id, err := s.deps.Identity.VerifyToken(c.Request.Context(), raw)
		if err != nil {
			if common.HTTPStatus(err) != http.StatusUnauthorized {
				prefix := raw
				if len(prefix) > 10 {
					prefix = prefix[:10]
				}
				s.audit(c, nil, constants.EventAuthError, map[string]any{
					"detail":       err.Error(),
					"token_prefix": prefix,
				}, constants.SeverityError)
				s.handleError(c, err)
				c.Abort()
				return
			}
			s.unauthorized(c, "invalid or expired token")
			return
		}
		s.bind(c, id)
		c.Next()
	}
}

// requireAdmin must run after requireAuth. A non-admin caller gets 403 and one
// UNAUTHORIZED_ADMIN_ACCESS event.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := currentIdentity(c)
		if id == nil {
			s.unauthorized(c, "not authenticated")
			return
		}
		if !id.IsAdmin {
			uid := id.UserID
			s.audit(c, &uid, constants.EventUnauthorizedAdminAccess, map[string]any{
				"email":            id.Email,
				"attempted_action": "admin_access",
				"path":             c.Request.URL.Path,
			}, constants.SeverityWarning)
			writeError(c, common.NewAppError(common.CodeForbidden, "administrator privileges are required", common.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}
