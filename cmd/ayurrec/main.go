package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ayurrec/internal/app"
	"ayurrec/internal/config"
	"ayurrec/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, logPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ayurrec/config.yaml if not provided)")
	flag.StringVar(&logPath, "log", "ayurrec.log", "File receiving logs while the TUI owns the terminal")
	flag.Parse()

	cfg, err := config.LoadPath(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer logFile.Close()
	logger := config.NewLogger(cfg.Log, logFile)

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	m := tui.New(a.Service, cfg.Recommend.TopN, time.Duration(cfg.Server.RequestTimeoutSecs)*time.Second)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
