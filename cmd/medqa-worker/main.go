// cmd/medqa-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"medqa-workers/internal/common/camunda"
	"medqa-workers/internal/common/config"
	"medqa-workers/internal/common/database"
	httpclient "medqa-workers/internal/common/http"
	"medqa-workers/internal/common/logger"
	"medqa-workers/internal/common/observability"
	"medqa-workers/internal/handlers"
	"medqa-workers/internal/medqa/dispatch"
	"medqa-workers/internal/medqa/orchestrator"
	"medqa-workers/internal/medqa/synthesis"

	ca "medqa-workers/internal/workers/medqa/compare-answers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting medqa worker...",
		zap.String("apiBase", cfg.API.BaseURL),
		zap.String("locale", cfg.App.Locale),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Response cache (optional) ---
	var redis *database.RedisClient
	dispatchOpts := []dispatch.Option{dispatch.WithTracer(obs.Tracer("medqa.dispatch"))}
	if cfg.Cache.Enabled {
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis init failed", zap.Error(err))
		}
		if err := redis.Ping(ctx); err != nil {
			// The cache is an optimisation; run without it rather than refuse to start.
			zapLog.Warn("redis unreachable, response cache disabled", zap.Error(err))
			_ = redis.Close()
			redis = nil
		} else {
			ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
			dispatchOpts = append(dispatchOpts, dispatch.WithCache(database.NewResponseCache(redis, ttl)))
			zapLog.Info("response cache enabled", zap.Duration("ttl", ttl))
		}
	}

	// --- Pipeline ---
	timeout := config.GetDuration(cfg.API.Timeout)
	dispatcher := dispatch.New(httpclient.NewClient(timeout), log, dispatchOpts...)
	synthesizer := synthesis.New(synthesis.MessagesFor(cfg.App.Locale))
	pipeline := orchestrator.NewPipeline(
		orchestrator.Endpoint{APIBase: cfg.API.BaseURL, APIKey: cfg.API.APIKey},
		dispatcher,
		synthesizer,
	)
	orch := orchestrator.New(pipeline, obs, log)

	// --- Zeebe worker (optional) ---
	var (
		zeebe  *camunda.Client
		worker *camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, cfg.Camunda.BrokerAddress, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		wcfg := ca.LoadConfig(cfg)
		if wcfg.Enabled {
			handler := ca.NewHandler(wcfg, pipeline, &compareAnswersLoggerAdapter{log})
			worker = camunda.NewWorker(zeebe.GetClient(), ca.TaskType, wcfg.MaxJobsActive, wcfg.Timeout, handler, zapLog)
			worker.Start()
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", ca.TaskType))
		}
	}

	// --- API, Health & Metrics Server ---
	mux := http.NewServeMux()
	handlers.NewHTTPHandler(orch, log).Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		if zeebe != nil {
			checks["zeebe"] = "ok"
			if err := zeebe.HealthCheck(checkCtx); err != nil {
				checks["zeebe"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if redis != nil {
			checks["redis"] = "ok"
			if err := redis.Ping(checkCtx); err != nil {
				// A missing cache degrades latency, not correctness.
				checks["redis"] = err.Error()
			}
		}
		label := "ready"
		if status != http.StatusOK {
			label = "not ready"
		}
		writeStatus(w, status, label, checks)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if worker != nil {
		worker.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if redis != nil {
		if err := redis.Close(); err != nil {
			zapLog.Error("Error closing Redis client", zap.Error(err))
		}
	}

	zapLog.Info("medqa worker stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// compareAnswersLoggerAdapter narrows With to the worker's own Logger interface.
type compareAnswersLoggerAdapter struct {
	logger.Logger
}

func (a *compareAnswersLoggerAdapter) With(fields map[string]interface{}) ca.Logger {
	return &compareAnswersLoggerAdapter{a.Logger.With(fields)}
}
