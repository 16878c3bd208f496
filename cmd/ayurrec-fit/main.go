package main

import (
	"flag"
	"fmt"
	"os"

	"ayurrec/internal/config"
	"ayurrec/internal/corpus"
	"ayurrec/internal/embedding/tfidf"
)

func main() {
	var cfgPath, out string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&out, "out", "", "Snapshot output path (defaults to snapshot.path)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: ayurrec-fit [--config=config.yaml] [--out=snapshot.json] dataset.csv")
		os.Exit(1)
	}

	cfg, err := config.LoadPath(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	if out == "" {
		out = cfg.Snapshot.Path
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		logger.Error("open dataset", "error", err)
		os.Exit(1)
	}
	rows, err := corpus.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		logger.Error("read dataset", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	opts := tfidf.Options{TokenPattern: cfg.Vectorizer.TokenPattern, Stopwords: cfg.Vectorizer.Stopwords}
	if cfg.Vectorizer.UseDefaultStopwords {
		opts.Stopwords = append(tfidf.DefaultStopwords(), opts.Stopwords...)
	}
	store, err := corpus.Build(rows, opts)
	if err != nil {
		logger.Error("fit failed", "error", err)
		os.Exit(1)
	}
	if err := corpus.Save(out, store); err != nil {
		logger.Error("write snapshot", "path", out, "error", err)
		os.Exit(1)
	}
	logger.Info("snapshot written",
		"path", out, "rows", store.RowCount(),
		"vocabulary", store.Space().Dimension(), "therapies", len(store.Therapies()))
}
