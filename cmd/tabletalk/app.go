package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/guillermoBallester/tabletalk/internal/adapter/catalog"
	"github.com/guillermoBallester/tabletalk/internal/adapter/duckdb"
	"github.com/guillermoBallester/tabletalk/internal/adapter/file"
	"github.com/guillermoBallester/tabletalk/internal/adapter/llm"
	"github.com/guillermoBallester/tabletalk/internal/adapter/mcp"
	"github.com/guillermoBallester/tabletalk/internal/adapter/postgres"
	"github.com/guillermoBallester/tabletalk/internal/audit"
	"github.com/guillermoBallester/tabletalk/internal/config"
	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/guillermoBallester/tabletalk/internal/core/service"
	"github.com/guillermoBallester/tabletalk/internal/core/tool"
	"github.com/guillermoBallester/tabletalk/internal/telemetry"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "tabletalk"

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	catalog  *domain.Catalog
	datasets *service.DatasetService
	table    *service.TableService
	tools    *tool.Set
	chat     *service.ChatService // nil without a language model

	closers []func(context.Context) error
}

func newLogger(cfg *config.Config) *slog.Logger {
	// Logs go to stderr; stdout is reserved for the MCP stdio transport.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, tracer: telemetry.NoopTracer(), inst: port.NoopInstrumentation{}}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, serviceName, version)
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.closers = append(a.closers, provider.Shutdown)
		a.tracer = provider.Tracer(serviceName)
		a.inst = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	fs := afero.NewOsFs()

	var auditor port.OperationAuditor = audit.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(fs, cfg.AuditLog)
		if err != nil {
			return nil, err
		}
		auditor = fa
		a.closers = append(a.closers, func(context.Context) error { return fa.Close() })
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}

	a.catalog = domain.DefaultCatalog()
	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFromFile(fs, cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		a.catalog = cat
		logger.Info("catalog loaded", slog.String("file", cfg.CatalogFile), slog.Int("fields", len(cat.Fields())))
	}

	source, err := a.newSource(ctx, fs)
	if err != nil {
		return nil, err
	}

	a.datasets = service.NewDatasetService(source, a.catalog, cfg.MaxRows, logger, a.tracer)
	ds, err := a.datasets.Load(ctx)
	if err != nil {
		return nil, err
	}

	a.table = service.NewTableService(ds, a.catalog, auditor, logger, a.tracer, a.inst,
		service.WithPageSize(cfg.PageSize))
	a.tools = tool.NewSet(a.catalog, a.table.Columns())

	translator, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		RPS:      cfg.LLMRPS,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating translator: %w", err)
	}
	if translator != nil {
		a.chat = service.NewChatService(translator, a.tools, a.table, a.catalog, logger, a.tracer, a.inst)
		logger.Info("language model enabled", slog.String("llm.provider", cfg.LLMProvider))
	}

	return a, nil
}

func (a *app) newSource(ctx context.Context, fs afero.Fs) (port.RowSource, error) {
	cfg := a.cfg
	switch cfg.Source {
	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		a.logger.Info("database pool connected",
			slog.String("db.system", "postgresql"),
			slog.String("db.url", redactDSN(cfg.DatabaseURL)),
		)
		return postgres.NewSource(pool, postgres.NewQueryGuard(), cfg.DatasetQuery, cfg.MaxRows, cfg.QueryTimeout), nil
	case config.SourceDuckDB:
		return duckdb.NewSource(cfg.DatasetPath, cfg.DatasetQuery, cfg.MaxRows, cfg.QueryTimeout), nil
	default:
		return file.NewSource(fs, cfg.DatasetPath), nil
	}
}

func (a *app) mcpDeps() mcp.Deps {
	return mcp.Deps{Tools: a.tools, Table: a.table, Dataset: a.datasets, Chat: a.chat}
}

// close releases resources in reverse acquisition order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
