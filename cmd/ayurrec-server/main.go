package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ayurrec/internal/app"
	"ayurrec/internal/config"
	"ayurrec/internal/httpapi"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ayurrec/config.yaml if not provided)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.LoadPath(cfgPath)
	if err != nil {
		config.NewLogger(config.LogConfig{}, os.Stderr).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := httpapi.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}
	if a.Predictor != nil {
		opts.Predictor = a.Predictor
	}
	srv := httpapi.New(a.Service, opts, logger)
	if err := srv.Run(ctx, addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
