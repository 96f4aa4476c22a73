package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/docindex/internal/audit"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/extract"
	"github.com/joseph-ayodele/docindex/internal/identity"
	"github.com/joseph-ayodele/docindex/internal/llm"
	"github.com/joseph-ayodele/docindex/internal/llm/gemini"
	"github.com/joseph-ayodele/docindex/internal/llm/openai"
	"github.com/joseph-ayodele/docindex/internal/pipeline"
	"github.com/joseph-ayodele/docindex/internal/repository"
	"github.com/joseph-ayodele/docindex/internal/search"
	"github.com/joseph-ayodele/docindex/internal/server"
	"github.com/joseph-ayodele/docindex/internal/storage"
)

// app holds every wired collaborator. Fields stay nil when the command that
// built it did not need them.
type app struct {
	cfg    *common.Config
	logger *slog.Logger

	db       *repository.DB
	trail    *audit.Trail
	identity *identity.Provider

	store    storage.Store
	docs     repository.DocumentStore
	search   *search.Service
	pipeline *pipeline.Pipeline

	closers []func()
}

func newLogger(cfg *common.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newCore opens the SQL store and the services backed by it: audit trail and
// identity provider.
func newCore(ctx context.Context, cfg *common.Config) (*app, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() { server.CloseDB(db, logger) })

	a.trail = audit.NewTrail(repository.NewAuditRepository(db, logger), logger)
	a.identity, err = identity.NewProvider(repository.NewUserRepository(db, logger), identity.Config{
		SecretKey: cfg.Auth.SecretKey,
		TokenTTL:  cfg.Auth.TokenTTL,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newFull adds storage, search, the oracle and the ingestion pipeline on top
// of newCore. The full configuration is validated first.
func newFull(ctx context.Context, cfg *common.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := newCore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.wirePipeline(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wirePipeline(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	switch cfg.Storage.Backend {
	case "minio":
		st, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
		}, logger)
		if err != nil {
			return fmt.Errorf("open object store: %w", err)
		}
		a.store = st
	default:
		st, err := storage.NewBoltStore(cfg.Storage.BoltPath, logger)
		if err != nil {
			return fmt.Errorf("open object store: %w", err)
		}
		a.store = st
	}
	a.closers = append(a.closers, func() { _ = a.store.Close() })

	docs, err := repository.NewBoltDocumentStore(cfg.Database.MetadataPath, logger)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	a.docs = docs
	a.closers = append(a.closers, func() { _ = docs.Close() })

	var backend search.Backend
	switch cfg.Search.Backend {
	case "memory":
		backend = search.NewMemoryBackend()
	default:
		backend = search.NewMeiliBackend(search.MeiliConfig{
			Host:    cfg.Search.Host,
			APIKey:  cfg.Search.MasterKey,
			Timeout: cfg.Search.Timeout,
		}, logger)
	}
	a.search = search.NewService(backend, cfg.Search.Index, logger)
	// the index is created lazily when this fails
	if err := a.search.EnsureIndex(ctx); err != nil {
		logger.Warn("search index not ready yet", "error", err)
	}

	gen, err := a.newGenerator(ctx)
	if err != nil {
		return err
	}

	a.pipeline = pipeline.New(pipeline.Config{MaxUploadBytes: cfg.Ingest.MaxUploadBytes}, pipeline.Deps{
		Store:     a.store,
		Extractor: extract.NewExtractor(extract.Config{Pdftotext: cfg.Ingest.PdftotextBin}, logger),
		Oracle:    llm.NewMetadataClient(gen, cfg.Oracle.Timeout, logger),
		Local:     a.docs,
		Index:     a.search,
		Audit:     a.trail,
	}, logger)
	return nil
}

func (a *app) newGenerator(ctx context.Context) (llm.Generator, error) {
	cfg := a.cfg.Oracle
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, a.logger), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		return c, nil
	default:
		return nil, errors.New("unknown oracle provider " + cfg.Provider)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
