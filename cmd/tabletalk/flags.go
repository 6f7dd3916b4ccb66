package main

import (
	"fmt"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/config"
	"github.com/spf13/cobra"
)

// bindFlags declares the configuration flags shared by every subcommand.
func bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("source", "", "dataset source: file, postgres or duckdb (env DATASET_SOURCE)")
	f.String("dataset", "", "dataset file path (env DATASET_PATH)")
	f.String("database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	f.String("query", "", "dataset SELECT for the postgres and duckdb sources (env DATASET_QUERY)")
	f.Int("max-rows", 0, "maximum rows loaded into the table (env MAX_ROWS)")
	f.Duration("query-timeout", 0, "dataset load timeout, e.g. 10s (env QUERY_TIMEOUT)")
	f.String("catalog", "", "field catalog YAML file (env CATALOG_FILE)")
	f.Int("page-size", 0, "rows per visible page (env PAGE_SIZE)")
	f.String("llm-provider", "", "gemini, openai or none (env LLM_PROVIDER)")
	f.String("llm-model", "", "language model name (env LLM_MODEL)")
	f.String("llm-base-url", "", "language model endpoint override (env LLM_BASE_URL)")
	f.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	f.String("transport", "", "MCP transport: stdio or http (env TRANSPORT)")
	f.String("http-addr", "", "listen address for the http transport (env HTTP_ADDR)")
	f.String("http-bearer-token", "", "bearer token required by the http transport (env HTTP_BEARER_TOKEN)")
	f.Int32("pool-max-conns", 0, "postgres pool max connections (env POOL_MAX_CONNS)")
	f.Int32("pool-min-conns", 0, "postgres pool min connections (env POOL_MIN_CONNS)")
	f.Duration("pool-max-conn-lifetime", 0, "postgres connection lifetime (env POOL_MAX_CONN_LIFETIME)")
	f.Bool("otel", false, "export traces and metrics over OTLP gRPC")
	f.String("audit-log", "", "append executed operations to this NDJSON file (env AUDIT_LOG)")
}

// overridesFrom converts the flags the user actually set into config
// overrides; unset flags leave the environment in charge.
func overridesFrom(cmd *cobra.Command) (config.Overrides, error) {
	f := cmd.Flags()
	var o config.Overrides
	var err error

	str := func(name string) *string {
		if err != nil || !f.Changed(name) {
			return nil
		}
		var v string
		v, err = f.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if err != nil || !f.Changed(name) {
			return nil
		}
		var v int
		v, err = f.GetInt(name)
		return &v
	}
	num32 := func(name string) *int32 {
		if err != nil || !f.Changed(name) {
			return nil
		}
		var v int32
		v, err = f.GetInt32(name)
		return &v
	}
	dur := func(name string) *time.Duration {
		if err != nil || !f.Changed(name) {
			return nil
		}
		var v time.Duration
		v, err = f.GetDuration(name)
		return &v
	}

	o.Source = str("source")
	o.DatasetPath = str("dataset")
	o.DatabaseURL = str("database-url")
	o.DatasetQuery = str("query")
	o.MaxRows = num("max-rows")
	o.QueryTimeout = dur("query-timeout")
	o.CatalogFile = str("catalog")
	o.PageSize = num("page-size")
	o.LLMProvider = str("llm-provider")
	o.LLMModel = str("llm-model")
	o.LLMBaseURL = str("llm-base-url")
	o.LogLevel = str("log-level")
	o.Transport = str("transport")
	o.HTTPAddr = str("http-addr")
	o.HTTPBearerToken = str("http-bearer-token")
	o.PoolMaxConns = num32("pool-max-conns")
	o.PoolMinConns = num32("pool-min-conns")
	o.PoolMaxConnLife = dur("pool-max-conn-lifetime")
	if err != nil {
		return config.Overrides{}, err
	}

	if o.OTelEnabled, err = f.GetBool("otel"); err != nil {
		return config.Overrides{}, err
	}
	if o.AuditLog, err = f.GetString("audit-log"); err != nil {
		return config.Overrides{}, err
	}
	return o, nil
}

// parseFlags parses args against the shared flag set.
func parseFlags(args []string) (config.Overrides, error) {
	cmd := &cobra.Command{Use: "tabletalk"}
	bindFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		return config.Overrides{}, err
	}
	return overridesFrom(cmd)
}

// loadConfig resolves env vars and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides, err := overridesFrom(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
