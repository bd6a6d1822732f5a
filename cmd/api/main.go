package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/pathlab-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/pathlab-ai-platform/internal/api/router"
	"github.com/wolfman30/pathlab-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pathlab-ai-platform/internal/config"
	"github.com/wolfman30/pathlab-ai-platform/internal/http/middleware"
	"github.com/wolfman30/pathlab-ai-platform/internal/llm"
	"github.com/wolfman30/pathlab-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting pathlab-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildServer(ctx, cfg, logger, mainconfig.LoadAWSConfig)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	app.StartBackground(ctx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// server is the assembled API process minus the listener.
type server struct {
	Handler http.Handler
	Runtime *bootstrap.ChatRuntime
	Limiter *middleware.RateLimiter

	closers []func()
}

// StartBackground launches the session sweeper and rate limiter eviction.
// Both stop when ctx is cancelled.
func (s *server) StartBackground(ctx context.Context) {
	go s.Runtime.Sweeper.Run(ctx)
	go s.Limiter.Run(ctx)
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, loadAWS bootstrap.AWSConfigLoader) (*server, error) {
	metricsHandler, chatMetrics := setupChatMetrics()

	gateway, closeGateway, err := bootstrap.BuildLLMGateway(ctx, cfg, loadAWS, logger, llm.WithObserver(chatMetrics))
	if err != nil {
		return nil, fmt.Errorf("llm gateway: %w", err)
	}
	s := &server{closers: []func(){closeGateway}}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
	}

	s.Runtime = bootstrap.BuildChat(cfg, bootstrap.ChatDeps{
		Generator: gateway,
		Redis:     redisClient,
		Metrics:   chatMetrics,
	}, logger)
	s.Limiter = middleware.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateBurst)

	s.Handler = router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        s.Runtime.ChatHandler,
		WebChat:            s.Runtime.WebChat,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        s.Limiter,
		Catalog:            s.Runtime.Catalog,
		Models:             gateway.Models(),
	})
	return s, nil
}

func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChatMetrics(reg)
}
