// Package app assembles the recommender from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"ayurrec/internal/chunker"
	"ayurrec/internal/config"
	"ayurrec/internal/corpus"
	"ayurrec/internal/directory"
	"ayurrec/internal/directory/mongo"
	"ayurrec/internal/directory/postgres"
	"ayurrec/internal/directory/rediscache"
	"ayurrec/internal/domain"
	"ayurrec/internal/predictor"
	"ayurrec/internal/predictor/gemini"
	"ayurrec/internal/predictor/openai"
	"ayurrec/internal/service"
	"ayurrec/internal/vectorstore"
	"ayurrec/internal/vectorstore/memory"
	"ayurrec/internal/vectorstore/qdrant"
)

// App holds the wired components. Predictor is nil when none is configured.
type App struct {
	Store     *corpus.Store
	Service   *service.RecommendServiceImpl
	Predictor *predictor.Service

	closers []func() error
}

// Close releases backend connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build loads the snapshot and connects the configured backends. Snapshot
// failures wrap domain.ErrCorpusLoad.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	store, err := corpus.Load(cfg.Snapshot.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("snapshot loaded",
		"path", cfg.Snapshot.Path, "rows", store.RowCount(),
		"vocabulary", store.Space().Dimension(), "therapies", len(store.Therapies()))

	a := &App{Store: store}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	ranker, err := a.ranker(ctx, cfg.Ranker, logger)
	if err != nil {
		return nil, err
	}
	dir, err := a.directory(ctx, cfg.Directory, logger)
	if err != nil {
		return nil, err
	}
	a.Service = service.NewRecommendService(store, ranker, dir, chunker.NewSymptomChunker(), logger, service.Options{
		DefaultTopN: cfg.Recommend.TopN,
		Role:        cfg.Directory.Role,
	})

	gen, err := generator(ctx, cfg.Predictor, logger)
	if err != nil {
		return nil, err
	}
	if gen != nil {
		a.Predictor = predictor.NewService(gen, store, predictor.Options{
			DefaultTherapy: cfg.Predictor.DefaultTherapy,
			MaxDoctors:     cfg.Predictor.MaxDoctors,
		}, logger)
	}
	ok = true
	return a, nil
}

func (a *App) ranker(ctx context.Context, cfg config.RankerConfig, logger *slog.Logger) (vectorstore.Ranker, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewRanker(a.Store.Space()), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		r, err := qdrant.NewRanker(a.Store.Space(), qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
			BatchSize:  cfg.Qdrant.BatchSize,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		if err := r.Sync(ctx); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown ranker: %s", cfg.Type)
	}
}

func (a *App) directory(ctx context.Context, cfg config.DirectoryConfig, logger *slog.Logger) (domain.DoctorDirectory, error) {
	var dir domain.DoctorDirectory
	switch cfg.Type {
	case "none", "":
		dir = directory.None{}
	case "mongo":
		if cfg.Mongo == nil {
			return nil, errors.New("mongo directory config missing")
		}
		d, err := mongo.Connect(ctx, mongo.Config{
			URI:        os.Getenv(cfg.Mongo.URIEnv),
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return d.Close(context.Background()) })
		dir = d
	case "postgres":
		if cfg.Postgres == nil {
			return nil, errors.New("postgres directory config missing")
		}
		d, err := postgres.Open(ctx, os.Getenv(cfg.Postgres.DSNEnv), cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, d.Close)
		dir = d
	default:
		return nil, fmt.Errorf("unknown directory: %s", cfg.Type)
	}

	if rc := cfg.Redis; rc != nil && rc.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: os.Getenv(rc.PasswordEnv),
			DB:       rc.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			// the cache falls through on every failure, so a cold redis is not fatal
			logger.Warn("redis unreachable, continuing", "addr", rc.Addr, "error", err)
		}
		a.closers = append(a.closers, rdb.Close)
		dir = rediscache.New(rdb, dir, rediscache.Options{
			TTL:         time.Duration(rc.TTLSecs) * time.Second,
			NegativeTTL: time.Duration(rc.NegativeTTLSecs) * time.Second,
			Prefix:      rc.Prefix,
		}, logger)
	}
	return directory.WithTimeout(dir, time.Duration(cfg.TimeoutSecs)*time.Second), nil
}

func generator(ctx context.Context, cfg config.PredictorConfig, logger *slog.Logger) (predictor.Generator, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "gemini":
		gc := config.GeminiConfig{}
		if cfg.Gemini != nil {
			gc = *cfg.Gemini
		}
		return gemini.New(ctx, gemini.Config{
			APIKeyEnv: gc.APIKeyEnv,
			Model:     gc.Model,
			Timeout:   time.Duration(gc.TimeoutSecs) * time.Second,
		}, logger)
	case "openai":
		oc := config.OpenAIConfig{}
		if cfg.OpenAI != nil {
			oc = *cfg.OpenAI
		}
		return openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown predictor: %s", cfg.Type)
	}
}
