package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, badRequest("invalid request body"))
		return
	}
	u, err := s.deps.Identity.CreateUser(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.handleError(c, err)
		return
	}
	uid := u.ID.String()
	s.audit(c, &uid, constants.EventUserRegistered, map[string]any{
		"email":        u.Email,
		"display_name": u.DisplayName,
	}, constants.SeverityInfo)
	c.JSON(http.StatusCreated, gin.H{
		"uid":     uid,
		"email":   u.Email,
		"message": "user registered successfully",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, badRequest("invalid request body"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	tok, err := s.deps.Identity.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		s.audit(c, nil, constants.EventLoginFailed, map[string]any{"email": email}, constants.SeverityWarning)
		if common.HTTPStatus(err) == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", "Bearer")
		}
		s.handleError(c, err)
		return
	}
	var uid *string
	if id, verr := s.deps.Identity.VerifyToken(c.Request.Context(), tok.AccessToken); verr == nil {
		uid = &id.UserID
	}
	s.audit(c, uid, constants.EventUserLoggedIn, map[string]any{"email": email}, constants.SeverityInfo)
	c.JSON(http.StatusOK, tok)
}

func (s *Server) handleMe(c *gin.Context) {
	id := currentIdentity(c)
	uid := id.UserID
	s.audit(c, &uid, constants.EventFetchUserInfo, map[string]any{
		"email":    id.Email,
		"endpoint": "/api/auth/me",
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, id)
}

func (s *Server) handleAdminOnly(c *gin.Context) {
	id := currentIdentity(c)
	uid := id.UserID
	s.audit(c, &uid, constants.EventAccessAdminRoute, map[string]any{
		"email":          id.Email,
		"endpoint":       "/api/auth/admin-only-test",
		"admin_verified": true,
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, gin.H{
		"message":          "Welcome, admin " + id.Email + "!",
		"admin_privileges": true,
		"access_granted":   true,
		"timestamp":        s.now().UTC(),
	})
}
