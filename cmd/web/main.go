package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudlens/advisor/pkg/server"
	"github.com/cloudlens/advisor/pkg/server/middleware"
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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the advisor web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the advisor config file (optional; env vars apply on top)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadSettings() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("db.path", "advisor.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.s3_bucket", "")
	v.SetDefault("artifacts.s3_prefix", "reports")
	v.SetDefault("pdf.binary", "wkhtmltopdf")
	v.SetDefault("auth.token", "")

	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
		}
	}
	return v, nil
}

func artifactStore(ctx context.Context, settings *viper.Viper) (render.ArtifactStore, error) {
	bucket := settings.GetString("artifacts.s3_bucket")
	if bucket == "" {
		return render.NewFileArtifactStore(settings.GetString("artifacts.dir"))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for artifact bucket: %w", err)
	}
	return render.NewS3ArtifactStore(s3.NewFromConfig(awsCfg), bucket, settings.GetString("artifacts.s3_prefix"))
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: settings.GetString("db.path"),
	})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	reports, err := reportstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}
	recommendations, err := recstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create recommendation store: %w", err)
	}

	var backend cache.Backend
	if addr := settings.GetString("redis.addr"); addr != "" {
		backend = cache.NewRedisBackend(redis.NewClient(&redis.Options{Addr: addr}))
		logger.Info().Str("addr", addr).Msg("caching dashboard reads in redis")
	} else {
		backend = cache.NewNoopBackend()
		logger.Info().Msg("no redis address configured, caching disabled")
	}
	cacheManager := cache.NewManager(backend, cache.DefaultTTLConfig())

	artifacts, err := artifactStore(ctx, settings)
	if err != nil {
		return err
	}
	renderer := render.NewRenderer(render.NewExecEngine(settings.GetString("pdf.binary")), artifacts)

	registry := reportgen.NewRegistry(reportgen.DefaultConfig())
	orchestrator := jobs.NewOrchestrator(reports, recommendations, registry, renderer, cacheManager, jobs.DefaultConfig())
	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	orchestrator.Start(jobsCtx)

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

	var authorizer middleware.Authorizer
	if token := settings.GetString("auth.token"); token != "" {
		expected := "Bearer " + token
		authorizer = func(req *http.Request) error {
			if req.Header.Get("Authorization") != expected {
				return fmt.Errorf("missing or invalid bearer token")
			}
			return nil
		}
	}

	addr := net.JoinHostPort(settings.GetString("server.host"), settings.GetString("server.port"))
	api := server.NewWebAPI(logger, server.Config{
		Addr:       addr,
		Authorizer: authorizer,
		Dependencies: server.Dependencies{
			Pipeline:  pipeline,
			Analytics: aggregator,
		},
	})

	logger.Info().Msgf("starting server on %s", addr)
	if err := api.Start(); err != nil {
		return err
	}

	stopJobs()
	drainCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return orchestrator.Shutdown(drainCtx)
}
