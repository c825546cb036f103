package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	handlers "github.com/cloudlens/advisor/pkg/handlers/reports"
	advisormiddleware "github.com/cloudlens/advisor/pkg/server/middleware"
	"github.com/cloudlens/advisor/pkg/services/analytics"
)

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Pipeline  handlers.Pipeline
	Analytics analytics.Aggregator
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Authorizer      advisormiddleware.Authorizer
	Dependencies    Dependencies
}

func ConfigureRouter(logger zerolog.Logger, config Config) *chi.Mux {
	reportsHandler := handlers.NewHandler(config.Dependencies.Pipeline, config.Dependencies.Analytics)

	router := chi.NewRouter()

	router.Use(advisormiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)
	if config.Authorizer != nil {
		router.Use(advisormiddleware.Auth(config.Authorizer))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", reportsHandler.Submit)
		r.Post("/reports/{reportID}/generate", reportsHandler.Generate)
		r.Get("/reports/{reportID}", reportsHandler.Status)

		r.Get("/dashboard/metrics", reportsHandler.DashboardMetrics)
		r.Get("/dashboard/categories", reportsHandler.CategoryDistribution)
		r.Get("/dashboard/trend", reportsHandler.Trend)
		r.Get("/dashboard/activity", reportsHandler.RecentActivity)

		r.Get("/clients/{clientID}/performance", reportsHandler.ClientPerformance)
	})

	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	router := ConfigureRouter(logger, config)

	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
		shutdownTimeout: timeout,
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
