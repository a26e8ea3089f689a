package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmc/langchaingo/llms/openai"

	"deepsearch/internal/platform/config"
	"deepsearch/internal/platform/events"
	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/platform/httpserver"
	"deepsearch/internal/platform/logger"
	"deepsearch/internal/platform/metrics"
	"deepsearch/internal/platform/middleware"
	platformredis "deepsearch/internal/platform/redis"
	"deepsearch/internal/search/dispatch"
	"deepsearch/internal/search/handler"
	"deepsearch/internal/search/normalize"
	"deepsearch/internal/search/service"
	"deepsearch/internal/search/store/jobs"
	"deepsearch/internal/source"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 30 * time.Second
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()
	m := metrics.New()

	cache, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	fetchClient := fetch.New(log,
		fetch.WithCache(cache, cfg.HTTPCacheTTL),
		fetch.WithHostRate("api.peopledatalabs.com", cfg.PDLRatePerSec),
		fetch.WithHostRate("api.github.com", cfg.GitHubRatePerSec),
		fetch.WithHostRate("html.duckduckgo.com", cfg.SearchRatePerSec),
	)

	registry := source.NewRegistry(
		source.NewEnrichAdapter(fetchClient, cfg.PDLAPIKey, log),
		source.NewIdentifyAdapter(fetchClient, cfg.PDLAPIKey, log),
		source.NewNameSearchAdapter(fetchClient, cfg.PDLAPIKey, log),
		source.NewHandleAdapter(fetchClient, cfg.GitHubToken, log),
		source.NewWebSearchAdapter(fetchClient, log),
	)
	dispatcher, err := dispatch.New(registry, log, dispatch.WithMetrics(m))
	if err != nil {
		return err
	}

	var store jobs.Store = jobs.NewInMemory()
	if cfg.PostgresURL != "" {
		pg, err := jobs.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
	}

	publisher, err := events.NewPublisher(cfg.KafkaBrokers, cfg.EventsTopic, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	extractorOpts := []normalize.Option{}
	if cfg.OpenAIAPIKey != "" {
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return err
		}
		extractorOpts = append(extractorOpts, normalize.WithLLM(llm))
	}
	extractor := normalize.NewExtractor(log, extractorOpts...)

	svc, err := service.New(store, extractor, dispatcher, log,
		service.WithMetrics(m),
		service.WithPublisher(publisher),
		service.WithBudget(time.Duration(cfg.BudgetMS)*time.Millisecond),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(m))
	router.Use(middleware.Timeout(requestTimeout))

	router.Get("/healthz", healthz(cache))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		handler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err.Error())
	}

	// Let running pipelines finish before tearing down their dependencies.
	drainCtx, cancelDrain := context.WithTimeout(ctx, drainTimeout)
	defer cancelDrain()
	if err := svc.Close(drainCtx); err != nil {
		log.Error("job drain failed", "error", err.Error())
	}

	return nil
}

// healthz reports liveness. Redis is optional, so a configured but failing
// cache degrades the response instead of failing it.
func healthz(cache *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				status = "degraded"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	}
}
