package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/audit"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/identity"
	"github.com/joseph-ayodele/docindex/internal/pipeline"
	"github.com/joseph-ayodele/docindex/internal/search"
	"github.com/joseph-ayodele/docindex/internal/storage"
)

const serviceName = "docindex"

// Ingester runs uploads through the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
	Validate(filename string, size int64) error
	MaxUploadBytes() int64
}

// Searcher is the search facade the document routes query.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (entity.SearchResult, error)
	Health(ctx context.Context) error
}

// DocumentReader reads the local metadata copy.
type DocumentReader interface {
	Get(id string) (*entity.DocumentMetadata, error)
	List() ([]entity.DocumentMetadata, error)
}

// AuditTrail is the slice of the audit trail the HTTP surface uses.
type AuditTrail interface {
	LogEvent(ctx context.Context, userID *string, eventType string, details map[string]any, severity constants.Severity, source string) string
	FetchLogs(ctx context.Context, q audit.LogQuery) (entity.AuditPage, error)
	Statistics(ctx context.Context, start, end *time.Time) (*entity.AuditStatistics, error)
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
	Export(ctx context.Context, format string, days int) (*audit.ExportFile, error)
}

// Identity verifies bearer tokens and manages accounts.
type Identity interface {
	VerifyToken(ctx context.Context, raw string) (*entity.Identity, error)
	CreateUser(ctx context.Context, email, password, displayName string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*identity.Token, error)
}

// DBChecker pings the SQL store.
type DBChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the collaborators wired into the HTTP surface. DB may be nil.
type Deps struct {
	Pipeline  Ingester
	Search    Searcher
	Store     storage.Store
	Documents DocumentReader
	Audit     AuditTrail
	Identity  Identity
	DB        DBChecker
}

type Config struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	Production      bool
	Version         string
}

// Server holds the state for the REST API server.
type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	router *gin.Engine
	now    func() time.Time
}

// NewServer creates a new Server instance.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Server{cfg: cfg, deps: deps, logger: logger, router: r, now: time.Now}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID(), s.accessLog())
	if len(s.cfg.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")

	docs := api.Group("/documents", s.optionalAuth())
	{
		docs.POST("/upload", s.handleUpload)
		docs.GET("/search", s.handleSearch)
		docs.GET("/download/:id", s.handleDownload)
		docs.GET("/download_by_path", s.handleDownloadByPath)
		docs.GET("/list", s.handleList)
		docs.GET("/storage", s.handleStorage)
		docs.GET("/stats", s.handleDocumentStats)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.GET("/me", s.requireAuth(), s.handleMe)
		auth.GET("/admin-only-test", s.requireAuth(), s.requireAdmin(), s.handleAdminOnly)
	}

	au := api.Group("/audit", s.requireAuth())
	{
		au.POST("/event", s.handleAuditEvent)

		admin := au.Group("", s.requireAdmin())
		admin.GET("/logs", s.handleAuditLogs)
		admin.GET("/stats", s.handleAuditStats)
		admin.DELETE("/logs/cleanup", s.handleAuditCleanup)
		admin.GET("/export", s.handleAuditExport)
	}
}

// Run serves HTTP on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// audit records an event on behalf of the current request. Audit writes never
// fail the request.
func (s *Server) audit(c *gin.Context, userID *string, eventType string, details map[string]any, sev constants.Severity) {
	if s.deps.Audit == nil {
		return
	}
	s.deps.Audit.LogEvent(context.WithoutCancel(c.Request.Context()), userID, eventType, details, sev, constants.SourceAPI)
}
