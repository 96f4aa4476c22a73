package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/audit"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

const (
	maxAuditPage        = 1000
	defaultStatsDays    = 30
	maxStatsDays        = 365
	defaultKeepDays     = 90
	maxKeepDays         = 3650
	defaultExportFormat = audit.FormatJSON
)

type auditEventRequest struct {
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details"`
	Severity  string         `json:"severity"`
}

// handleAuditEvent records a caller-supplied event under the caller's uid.
func (s *Server) handleAuditEvent(c *gin.Context) {
	var req auditEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, badRequest("invalid request body"))
		return
	}
	v := common.NewValidator().Field("event_type", req.EventType, common.Required, common.MaxLength(100))
	if err := v.Err(); err != nil {
		s.handleError(c, err)
		return
	}

	id := currentIdentity(c)
	details := make(map[string]any, len(req.Details)+2)
	for k, val := range req.Details {
		details[k] = val
	}
	details["user_email"] = id.Email
	details["user_is_admin"] = id.IsAdmin

	sev := constants.Severity(strings.ToUpper(strings.TrimSpace(req.Severity)))
	if sev == "" {
		sev = constants.SeverityInfo
	}
	if _, ok := constants.SeverityLevel(sev); !ok {
		s.handleError(c, badRequest("invalid severity; use DEBUG, INFO, WARNING, ERROR or CRITICAL"))
		return
	}
	uid := id.UserID
	eventID := s.deps.Audit.LogEvent(c.Request.Context(), &uid, req.EventType, details, sev, constants.SourceUser)
	if eventID == "" {
		s.handleError(c, common.InternalError("failed to record audit event", nil))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "audit event recorded",
		"id":         eventID,
		"event_type": strings.ToUpper(strings.TrimSpace(req.EventType)),
		"timestamp":  s.now().UTC(),
	})
}

func (s *Server) handleAuditLogs(c *gin.Context) {
	limit, err := intQuery(c, "limit", constants.AuditDefaultQueryLimit, 1, maxAuditPage)
	if err != nil {
		s.handleError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0, 0, 1<<31-1)
	if err != nil {
		s.handleError(c, err)
		return
	}
	q := audit.LogQuery{
		Limit:     limit,
		Offset:    offset,
		EventType: strings.TrimSpace(c.Query("event_type")),
		UserID:    strings.TrimSpace(c.Query("user_id")),
		Severity:  strings.TrimSpace(c.Query("severity")),
		Source:    strings.TrimSpace(c.Query("source")),
		StartDate: strings.TrimSpace(c.Query("start_date")),
		EndDate:   strings.TrimSpace(c.Query("end_date")),
	}
	for _, d := range [...]struct{ name, raw string }{{"start_date", q.StartDate}, {"end_date", q.EndDate}} {
		if d.raw == "" {
			continue
		}
		if _, err := audit.ParseDate(d.raw); err != nil {
			s.handleError(c, badRequest("invalid "+d.name+"; use an ISO-8601 date"))
			return
		}
	}

	page, err := s.deps.Audit.FetchLogs(c.Request.Context(), q)
	if err != nil {
		s.handleError(c, common.InternalError("failed to query audit logs", err))
		return
	}
	s.audit(c, currentUserID(c), constants.EventAuditLogsQueried, map[string]any{
		"filters": map[string]any{
			"event_type": q.EventType,
			"user_id":    q.UserID,
			"severity":   q.Severity,
			"source":     q.Source,
			"start_date": q.StartDate,
			"end_date":   q.EndDate,
		},
		"limit":         limit,
		"offset":        offset,
		"results_count": len(page.Logs),
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, page)
}

type auditStatsResponse struct {
	*entity.AuditStatistics
	PeriodDays  int       `json:"period_days"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (s *Server) handleAuditStats(c *gin.Context) {
	days, err := intQuery(c, "days", defaultStatsDays, 1, maxStatsDays)
	if err != nil {
		s.handleError(c, err)
		return
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)
	stats, err := s.deps.Audit.Statistics(c.Request.Context(), &start, &end)
	if err != nil {
		s.handleError(c, common.InternalError("failed to compute audit statistics", err))
		return
	}
	s.audit(c, currentUserID(c), constants.EventAuditStatsQueried, map[string]any{
		"period_days": days,
		"start_date":  start.Format(time.RFC3339),
		"end_date":    end.Format(time.RFC3339),
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, auditStatsResponse{AuditStatistics: stats, PeriodDays: days, GeneratedAt: s.now().UTC()})
}

func (s *Server) handleAuditCleanup(c *gin.Context) {
	days, err := intQuery(c, "days_to_keep", defaultKeepDays, 1, maxKeepDays)
	if err != nil {
		s.handleError(c, err)
		return
	}
	deleted, err := s.deps.Audit.Cleanup(c.Request.Context(), days)
	if err != nil {
		s.handleError(c, common.InternalError("audit cleanup failed", err))
		return
	}
	now := s.now().UTC()
	c.JSON(http.StatusOK, gin.H{
		"message":      "audit log cleanup completed",
		"deleted_logs": deleted,
		"days_to_keep": days,
		"cutoff_date":  now.AddDate(0, 0, -days),
		"executed_at":  now,
	})
}

func (s *Server) handleAuditExport(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", defaultExportFormat)))
	days, err := intQuery(c, "days", defaultStatsDays, 1, maxStatsDays)
	if err != nil {
		s.handleError(c, err)
		return
	}
	file, err := s.deps.Audit.Export(c.Request.Context(), format, days)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.audit(c, currentUserID(c), constants.EventAuditLogsExported, map[string]any{
		"format":      format,
		"period_days": days,
		"logs_count":  file.Count,
	}, constants.SeverityInfo)
	attachment(c, file.Filename, file.ContentType, file.Data)
}
