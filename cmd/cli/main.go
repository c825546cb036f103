package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudlens/advisor/pkg/runtime/terminal"
	"github.com/cloudlens/advisor/pkg/services/analytics"
	"github.com/cloudlens/advisor/pkg/services/cache"
	"github.com/cloudlens/advisor/pkg/services/ingest"
	"github.com/cloudlens/advisor/pkg/services/jobs"
	"github.com/cloudlens/advisor/pkg/services/render"
	reportgen "github.com/cloudlens/advisor/pkg/services/report"
	"github.com/cloudlens/advisor/pkg/services/upload"
	"github.com/cloudlens/advisor/pkg/store/duckdb"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
	recstore "github.com/cloudlens/advisor/pkg/store/duckdb/recommendation"

	"github.com/rs/zerolog"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run() error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: envOr("ADVISOR_DB_PATH", "advisor.db"),
	})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	defer db.Close()

	reports, err := reportstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}
	recommendations, err := recstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create recommendation store: %w", err)
	}

	artifacts, err := render.NewFileArtifactStore(envOr("ADVISOR_ARTIFACTS_DIR", "artifacts"))
	if err != nil {
		return err
	}
	renderer := render.NewRenderer(render.NewExecEngine(envOr("ADVISOR_PDF_BINARY", "wkhtmltopdf")), artifacts)

	// Single-process runs do not share a cache server; every read computes.
	cacheManager := cache.NewManager(cache.NewNoopBackend(), cache.DefaultTTLConfig())

	registry := reportgen.NewRegistry(reportgen.DefaultConfig())
	orchestrator := jobs.NewOrchestrator(reports, recommendations, registry, renderer, cacheManager, jobs.DefaultConfig())
	orchestrator.Start(ctx)

	pipeline := ingest.NewPipeline(
		db,
		upload.NewValidator(upload.DefaultValidatorConfig()),
		upload.NewParser(),
		reports,
		recommendations,
		orchestrator,
		cacheManager,
	)
	aggregator := analytics.NewAggregator(reports, recommendations, cacheManager, analytics.DefaultConfig())

	cli := terminal.NewCLI(terminal.Options{
		Pipeline:  pipeline,
		Analytics: aggregator,
		Output:    os.Stdout,
	})
	return cli.ExecuteContext(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
