package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ayurrec/internal/domain"
)

const (
	defaultTTL    = 10 * time.Minute
	defaultPrefix = "ayurrec:doctor:"
)

// Options tune the cache. Zero values pick defaults; a zero NegativeTTL
// reuses TTL for misses.
type Options struct {
	TTL         time.Duration
	NegativeTTL time.Duration
	Prefix      string
}

// Directory is a read-through cache in front of another directory.
// Misses are cached as JSON null. Redis failures are logged and the
// wrapped directory answers instead.
type Directory struct {
	rdb    redis.UniversalClient
	next   domain.DoctorDirectory
	opts   Options
	logger *slog.Logger
}

var _ domain.DoctorDirectory = (*Directory)(nil)

// New wraps next with a cache stored in rdb.
func New(rdb redis.UniversalClient, next domain.DoctorDirectory, opts Options, logger *slog.Logger) *Directory {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = opts.TTL
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{rdb: rdb, next: next, opts: opts, logger: logger.With("component", "redis-cache")}
}

// Lookup implements domain.DoctorDirectory.
func (d *Directory) Lookup(ctx context.Context, name, role string) (*domain.DoctorProfile, error) {
	k := d.key(name, role)

	if p, hit, err := d.get(ctx, k); err != nil {
		d.logger.WarnContext(ctx, "cache read failed", "key", k, "error", err)
	} else if hit {
		return p, nil
	}

	p, err := d.next.Lookup(ctx, name, role)
	if err != nil {
		return nil, err
	}
	if err := d.set(ctx, k, p); err != nil {
		d.logger.WarnContext(ctx, "cache write failed", "key", k, "error", err)
	}
	return p, nil
}

func (d *Directory) key(name, role string) string {
	return d.opts.Prefix + role + ":" + name
}

func (d *Directory) get(ctx context.Context, k string) (*domain.DoctorProfile, bool, error) {
	val, err := d.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p *domain.DoctorProfile
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (d *Directory) set(ctx context.Context, k string, p *domain.DoctorProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := d.opts.TTL
	if p == nil {
		ttl = d.opts.NegativeTTL
	}
	return d.rdb.Set(ctx, k, b, ttl).Err()
}
