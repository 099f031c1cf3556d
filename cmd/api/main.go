package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/amo-events/kb-assistant/internal/adapters/http"
	"github.com/amo-events/kb-assistant/internal/bootstrap"
	"github.com/amo-events/kb-assistant/internal/config"
	"github.com/amo-events/kb-assistant/internal/observability/logging"
	"github.com/amo-events/kb-assistant/internal/observability/metrics"
)

const serviceName = "kb-assistant-api"

func main() {
	cfg := config.Load()
	log := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		app.QueryUC,
		app.IngestUC,
		app.IngestUC,
		app.Mapping,
		app.Index,
		serverMetrics,
		httpadapter.RouterConfig{
			Service:        serviceName,
			RateLimitRPS:   cfg.APIRateLimitRPS,
			RateLimitBurst: cfg.APIRateLimitBurst,
			MaxConcurrent:  cfg.APIMaxConcurrent,
			OverloadWait:   time.Duration(cfg.APIOverloadWaitMS) * time.Millisecond,
		},
		log,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown error", "error", err)
	}
}
