package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docindex/constants"
)

// Environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	AppEnv   string
	LogLevel string
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	Search   SearchConfig
	Oracle   OracleConfig
	Auth     AuthConfig
	Ingest   IngestConfig
	Audit    AuditConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // sqlite | postgres
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	MetadataPath     string // bbolt file for the local metadata copy
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCHealthAddr  string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Backend        string // bolt | minio
	BoltPath       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// SearchConfig selects and configures the search index.
type SearchConfig struct {
	Backend   string // meilisearch | memory
	Host      string
	MasterKey string
	Index     string
	Timeout   time.Duration
}

// OracleConfig holds metadata-oracle configuration
type OracleConfig struct {
	Provider      string // gemini | openai
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Temperature   float32
	Timeout       time.Duration
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

// IngestConfig holds pipeline and drop-folder settings.
type IngestConfig struct {
	MaxUploadBytes int64
	PdftotextBin   string
	WatchDir       string
	Workers        int
	QueueSize      int
	JobTimeout     time.Duration
}

// AuditConfig holds audit retention settings.
type AuditConfig struct {
	RetentionDays int
}

// LoadConfig loads configuration from the environment, reading .env first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:   strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", "file:docindex.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			MetadataPath:     getEnv("METADATA_DB_PATH", "data/metadata.db"),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
			GRPCHealthAddr:  getEnv("GRPC_HEALTH_ADDR", ":8081"),
			CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", "bolt")),
			BoltPath:       getEnv("STORAGE_BOLT_PATH", "data/objects.db"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "docindex-documents"),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Search: SearchConfig{
			Backend:   strings.ToLower(getEnv("SEARCH_BACKEND", "meilisearch")),
			Host:      getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
			MasterKey: getEnv("MEILISEARCH_MASTER_KEY", ""),
			Index:     getEnv("SEARCH_INDEX", "documents"),
			Timeout:   getEnvAsDuration("SEARCH_TIMEOUT", 10*time.Second),
		},
		Oracle: OracleConfig{
			Provider:      strings.ToLower(getEnv("ORACLE_PROVIDER", "gemini")),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:   getEnvAsFloat32("ORACLE_TEMPERATURE", 0.2),
			Timeout:       getEnvAsDuration("ORACLE_TIMEOUT", 120*time.Second),
		},
		Auth: AuthConfig{
			SecretKey: getEnv("SECRET_KEY", ""),
			TokenTTL:  getEnvAsDuration("TOKEN_TTL", time.Hour),
		},
		Ingest: IngestConfig{
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", constants.DefaultMaxUploadBytes),
			PdftotextBin:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			WatchDir:       getEnv("WATCH_DIR", ""),
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			JobTimeout:     getEnvAsDuration("JOB_TIMEOUT", 3*time.Minute),
		},
		Audit: AuditConfig{
			RetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", constants.AuditDefaultRetention),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.AppEnv {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return NewAppError(CodeConfig, "APP_ENV must be development, staging or production", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case "bolt":
		if c.Storage.BoltPath == "" {
			return NewAppError(CodeConfig, "STORAGE_BOLT_PATH is required", ErrInvalidInput)
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return NewAppError(CodeConfig, "MINIO_ENDPOINT and MINIO_BUCKET are required", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "STORAGE_BACKEND must be bolt or minio", ErrInvalidInput)
	}
	switch c.Search.Backend {
	case "meilisearch":
		if c.Search.Host == "" {
			return NewAppError(CodeConfig, "MEILISEARCH_HOST is required", ErrInvalidInput)
		}
	case "memory":
	default:
		return NewAppError(CodeConfig, "SEARCH_BACKEND must be meilisearch or memory", ErrInvalidInput)
	}
	switch c.Oracle.Provider {
	case "gemini":
		if c.Oracle.GeminiAPIKey == "" {
			return NewAppError(CodeConfig, "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	case "openai":
		if c.Oracle.OpenAIAPIKey == "" {
			return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "ORACLE_PROVIDER must be gemini or openai", ErrInvalidInput)
	}
	if c.Auth.SecretKey == "" && c.AppEnv != EnvDevelopment {
		return NewAppError(CodeConfig, "SECRET_KEY is required outside development", ErrInvalidInput)
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return NewAppError(CodeConfig, "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	return nil
}
