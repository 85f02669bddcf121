package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chainwatch/deposit-watcher/internal/api"
	"github.com/chainwatch/deposit-watcher/internal/config"
	"github.com/chainwatch/deposit-watcher/internal/engine"
	"github.com/chainwatch/deposit-watcher/internal/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "deposit-watcher",
		},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Flush(engine.FlushTimeout)

	logger.InfoCtx(ctx, "starting deposit watcher")

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		logger.FatalCtx(ctx, "failed to construct engine", zap.Error(err))
	}

	httpSrv := startAPIServer(ctx, eng, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go eng.Run(ctx)

	sig := <-sigCh
	logger.InfoCtx(ctx, "received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}

	time.Sleep(time.Second)
	logger.Info("deposit watcher stopped")
}

// startAPIServer starts the read-only listing endpoint (out of scope for
// the core engine, spec.md §1/§6) on a background goroutine.
func startAPIServer(ctx context.Context, eng *engine.Engine, cfg *config.Config) *http.Server {
	if cfg.Server.Port == 0 {
		return nil
	}

	router := api.NewRouter(api.NewHandler(eng.Store()))
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCtx(ctx, fmt.Errorf("api server stopped: %w", err))
		}
	}()

	return srv
}
