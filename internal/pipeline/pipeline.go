package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/extract"
	"github.com/joseph-ayodele/docindex/internal/llm"
	"github.com/joseph-ayodele/docindex/internal/storage"
)

type Config struct {
	MaxUploadBytes int64 // default constants.DefaultMaxUploadBytes
}

// Deps are the collaborators an ingestion talks to. Local and Index may be nil.
type Deps struct {
	Store     storage.Store
	Extractor extract.TextExtractor
	Oracle    llm.MetadataExtractor
	Local     MetadataWriter
	Index     Indexer
	Audit     Auditor
}

type Option func(*Pipeline)

// WithClock overrides the wall clock used for storage paths and timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSuffix overrides the random suffix generator.
func WithSuffix(fn func() string) Option {
	return func(p *Pipeline) { p.suffix = fn }
}

// Pipeline turns an uploaded file into an indexed DocumentMetadata record.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	suffix func() string
}

func New(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.DefaultMaxUploadBytes
	}
	p := &Pipeline{cfg: cfg, deps: deps, logger: logger, now: time.Now, suffix: storage.NewSuffix}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) MaxUploadBytes() int64 { return p.cfg.MaxUploadBytes }

// Validate checks filename and payload size. It has no side effects.
func (p *Pipeline) Validate(filename string, size int64) error {
	v := common.NewValidator().Field("filename", filename,
		common.Required,
		common.MaxLength(255),
		common.SafeFilename,
		common.AllowedExtension,
	)
	if err := v.Err(); err != nil {
		return err
	}
	if size <= 0 {
		return common.NewAppError(common.CodeEmptyFile, "file is empty", common.ErrInvalidInput)
	}
	if size > p.cfg.MaxUploadBytes {
		return common.NewAppError(common.CodeTooLarge,
			fmt.Sprintf("file exceeds the maximum size of %d bytes", p.cfg.MaxUploadBytes),
			common.ErrTooLarge)
	}
	return nil
}

// Ingest runs one upload end to end. Only validation and the storage write
// can fail it; oracle, local persistence and indexing degrade instead.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (res *Result, err error) {
	start := time.Now()
	name := strings.TrimSpace(up.Filename)
	source := up.Source
	if source == "" {
		source = constants.SourceAPI
	}
	userID := common.UserIDFromContext(ctx)
	log := p.logger.With("req_id", common.RequestIDFromContext(ctx), "filename", name)

	if err := p.Validate(name, int64(len(up.Data))); err != nil {
		log.Info("pipeline.ingest.rejected", "error", err)
		return nil, err
	}

	stage := "store"
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline.ingest.panic", "stage", stage, "panic", r)
			p.auditFailure(ctx, userID, source, name, stage, fmt.Errorf("panic: %v", r))
			res, err = nil, common.InternalError("document processing failed", nil)
		}
	}()

	now := p.now().UTC()
	suffix := p.suffix()
	ext := strings.ToLower(filepath.Ext(name))
	contentType := resolveContentType(up.ContentType, ext)
	unique := storage.UniqueFilename(name, now, suffix)

	log.Info("pipeline.ingest.start", "size", len(up.Data), "content_type", contentType)

	// 1) original bytes; the only fatal write
	storagePath, err := p.deps.Store.Put(ctx, storage.DatedPath(unique, now), up.Data, contentType)
	if err != nil {
		log.Error("pipeline.store.failed", "error", err)
		p.auditFailure(ctx, userID, source, name, stage, err)
		return nil, common.NewAppError(common.CodeStorage, "failed to store document", err)
	}

	// 2) text, never fails
	stage = "extract"
	ext = constants.NormalizeExt(ext)
	extracted := p.deps.Extractor.Extract(ctx, up.Data, ext)
	log.Debug("pipeline.extract.done", "method", extracted.Method, "chars", len(extracted.Text), "warnings", len(extracted.Warnings))

	// 3) oracle, never fails
	stage = "oracle"
	text := extracted.Text
	if strings.TrimSpace(text) == "" {
		text = llm.EmptyTextStandIn(ext, name)
	}
	oracle := p.deps.Oracle.ExtractMetadata(ctx, text)
	if oracle.Outcome != constants.OracleOK {
		log.Warn("pipeline.oracle.fallback", "outcome", oracle.Outcome, "error", oracle.Err)
	}

	if cerr := ctx.Err(); cerr != nil {
		log.Warn("pipeline.ingest.canceled", "stage", stage, "error", cerr)
		p.auditFailure(ctx, userID, source, name, stage, cerr)
		return nil, common.InternalError("document processing was interrupted", cerr)
	}

	// 4) assemble
	stage = "assemble"
	sum := sha256.Sum256(up.Data)
	meta := entity.DocumentMetadata{
		ID:                     DocumentID(name, suffix),
		Filename:               name,
		FileExtension:          "." + ext,
		FileSizeBytes:          int64(len(up.Data)),
		MediaType:              contentType,
		Title:                  oracle.Fields.Title,
		Summary:                oracle.Fields.Summary,
		Keywords:               oracle.Fields.Keywords,
		Date:                   oracle.Fields.Date,
		StoragePath:            storagePath,
		OriginalFilename:       name,
		UniqueFilename:         unique,
		UploadTimestamp:        now.Format(time.RFC3339),
		ProcessingTimestamp:    p.now().UTC().Format(time.RFC3339),
		AIModel:                oracle.Model,
		TextLength:             oracle.TextSent,
		FileHash:               hex.EncodeToString(sum[:]),
		ProcessingTimeEstimate: extract.EstimateProcessingSeconds(int64(len(up.Data))),
	}
	if meta.Keywords == nil {
		meta.Keywords = []string{}
	}
	res = &Result{Metadata: meta, OracleOutcome: oracle.Outcome}

	// 5) secondary writes, best-effort
	stage = "persist"
	if p.deps.Local != nil {
		if perr := p.deps.Local.Put(meta); perr != nil {
			res.LocalPersistErr = perr
			log.Warn("pipeline.local_persist.failed", "id", meta.ID, "error", perr)
		}
	}
	stage = "index"
	if p.deps.Index != nil {
		if ierr := p.deps.Index.Index(ctx, meta); ierr != nil {
			res.IndexErr = ierr
			log.Warn("pipeline.index.failed", "id", meta.ID, "error", ierr)
		}
	}

	// 6) audit
	stage = "audit"
	details := map[string]any{
		"document_id":       meta.ID,
		"filename":          name,
		"storage_path":      storagePath,
		"file_size":         meta.FileSizeBytes,
		"content_type":      contentType,
		"processing_status": string(res.Status()),
		"oracle_outcome":    string(oracle.Outcome),
	}
	if oracle.Schema != "" {
		details["oracle_schema"] = oracle.Schema
	}
	severity := constants.SeverityInfo
	if res.LocalPersistErr != nil {
		details["local_persist_error"] = res.LocalPersistErr.Error()
	}
	if res.IndexErr != nil {
		details["index_error"] = res.IndexErr.Error()
	}
	if res.Degraded() {
		severity = constants.SeverityWarning
	}
	p.audit(ctx, userID, constants.EventDocumentUploaded, details, severity, source)

	log.Info("pipeline.ingest.ok",
		"id", meta.ID,
		"storage_path", storagePath,
		"status", res.Status(),
		"oracle", oracle.Outcome,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) audit(ctx context.Context, userID *string, eventType string, details map[string]any, sev constants.Severity, source string) {
	if p.deps.Audit == nil {
		return
	}
	// the audit record outlives a canceled request
	p.deps.Audit.LogEvent(context.WithoutCancel(ctx), userID, eventType, details, sev, source)
}

func (p *Pipeline) auditFailure(ctx context.Context, userID *string, source, filename, stage string, cause error) {
	p.audit(ctx, userID, constants.EventDocumentUploadError, map[string]any{
		"filename":   filename,
		"stage":      stage,
		"error":      cause.Error(),
		"error_type": fmt.Sprintf("%T", cause),
	}, constants.SeverityError, source)
}

func resolveContentType(declared, ext string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != constants.OctetStream {
		return declared
	}
	return constants.GuessMediaType(ext)
}
