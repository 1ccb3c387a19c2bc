package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/shootout-server/internal/config"
	"github.com/park285/shootout-server/internal/obslog"
	"github.com/park285/shootout-server/internal/serverbuilder"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	deps, err := serverbuilder.New(cfg, logger)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", deps.WS)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("admin_listen", zap.String("addr", cfg.AdminAddr))
		if err := deps.Admin.ListenAndServe(cfg.AdminAddr); err != nil {
			errCh <- err
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("listener_error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// hijacked sockets are not tracked by http.Server; close them first
	if err := deps.WS.Shutdown(ctx); err != nil {
		logger.Warn("ws_shutdown_error", zap.Error(err))
	}
	_ = httpSrv.Shutdown(ctx)
	_ = deps.Admin.Shutdown(ctx)
	if err := deps.Close(); err != nil {
		logger.Warn("deps_close_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
