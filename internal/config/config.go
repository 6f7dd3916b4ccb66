package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/adapter/llm"
)

// Dataset sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceDuckDB   = "duckdb"
)

type Config struct {
	// Dataset.
	Source       string // "file" (default), "postgres" or "duckdb"
	DatasetPath  string // file or parquet/csv path
	DatabaseURL  string
	DatasetQuery string // SELECT run against DatabaseURL
	MaxRows      int
	QueryTimeout time.Duration
	CatalogFile  string // optional field catalog YAML
	PageSize     int

	// Language model. Read once here and injected into the translator.
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMRPS      float64

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http

	// Connection pool, postgres source only.
	PoolMaxConns        int32
	PoolMinConns        int32
	PoolMaxConnLifetime time.Duration

	// Observability.
	OTelEnabled bool
	AuditLog    string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	Source          *string
	DatasetPath     *string
	DatabaseURL     *string
	DatasetQuery    *string
	MaxRows         *int
	QueryTimeout    *time.Duration
	CatalogFile     *string
	PageSize        *int
	LLMProvider     *string
	LLMModel        *string
	LLMBaseURL      *string
	LogLevel        *string
	Transport       *string
	HTTPAddr        *string
	HTTPBearerToken *string
	PoolMaxConns    *int32
	PoolMinConns    *int32
	PoolMaxConnLife *time.Duration
	OTelEnabled     bool
	AuditLog        string
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Source:              SourceFile,
		MaxRows:             5000,
		QueryTimeout:        10 * time.Second,
		PageSize:            10,
		LLMProvider:         llm.ProviderGemini,
		LLMRPS:              1,
		LogLevel:            slog.LevelInfo,
		Transport:           "stdio",
		HTTPAddr:            ":8080",
		PoolMaxConns:        2,
		PoolMinConns:        0,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	setString(&cfg.Source, "DATASET_SOURCE")
	setString(&cfg.DatasetPath, "DATASET_PATH")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DatasetQuery, "DATASET_QUERY")
	setString(&cfg.CatalogFile, "CATALOG_FILE")

	if err := positiveInt(&cfg.MaxRows, "MAX_ROWS"); err != nil {
		return err
	}
	if err := positiveInt(&cfg.PageSize, "PAGE_SIZE"); err != nil {
		return err
	}
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	setString(&cfg.LLMProvider, "LLM_PROVIDER")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	if v := os.Getenv("LLM_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid LLM_RPS value %q: must be a positive number", v)
		}
		cfg.LLMRPS = f
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	setString(&cfg.Transport, "TRANSPORT")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.HTTPBearerToken, "HTTP_BEARER_TOKEN")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}
	setString(&cfg.AuditLog, "AUDIT_LOG")

	return loadPoolEnvVars(cfg)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func positiveInt(dst *int, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s value %q: must be a positive integer", env, v)
	}
	*dst = n
	return nil
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	if v := os.Getenv("POOL_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_LIFETIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	override(&cfg.Source, o.Source)
	override(&cfg.DatasetPath, o.DatasetPath)
	override(&cfg.DatabaseURL, o.DatabaseURL)
	override(&cfg.DatasetQuery, o.DatasetQuery)
	override(&cfg.CatalogFile, o.CatalogFile)
	override(&cfg.LLMProvider, o.LLMProvider)
	override(&cfg.LLMModel, o.LLMModel)
	override(&cfg.LLMBaseURL, o.LLMBaseURL)
	override(&cfg.Transport, o.Transport)
	override(&cfg.HTTPAddr, o.HTTPAddr)
	override(&cfg.HTTPBearerToken, o.HTTPBearerToken)
	override(&cfg.PoolMaxConns, o.PoolMaxConns)
	override(&cfg.PoolMinConns, o.PoolMinConns)
	override(&cfg.PoolMaxConnLifetime, o.PoolMaxConnLife)

	if o.MaxRows != nil {
		if *o.MaxRows <= 0 {
			return fmt.Errorf("invalid --max-rows value: must be a positive integer")
		}
		cfg.MaxRows = *o.MaxRows
	}
	if o.PageSize != nil {
		if *o.PageSize <= 0 {
			return fmt.Errorf("invalid --page-size value: must be a positive integer")
		}
		cfg.PageSize = *o.PageSize
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.AuditLog != "" {
		cfg.AuditLog = o.AuditLog
	}
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled
	return nil
}

func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	switch cfg.Source {
	case SourceFile, SourceDuckDB:
		if cfg.DatasetPath == "" {
			return fmt.Errorf("DATASET_PATH is required for the %s source (set via env var or --dataset flag)", cfg.Source)
		}
	case SourcePostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres source (set via env var or --database-url flag)")
		}
		if cfg.DatasetQuery == "" {
			return fmt.Errorf("DATASET_QUERY is required for the postgres source (set via env var or --query flag)")
		}
	default:
		return fmt.Errorf("invalid DATASET_SOURCE value %q: must be \"file\", \"postgres\" or \"duckdb\"", cfg.Source)
	}

	switch cfg.LLMProvider {
	case llm.ProviderGemini, llm.ProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the %s provider", cfg.LLMProvider)
		}
	case llm.ProviderNone:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER value %q: must be \"gemini\", \"openai\" or \"none\"", cfg.LLMProvider)
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}

	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
