package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
	"ayurrec/internal/vectorstore"
)

var (
	ErrMissingCollection  = errors.New("qdrant: collection name is required")
	ErrInvalidURL         = errors.New("qdrant: invalid URL provided")
	ErrDimensionMismatch  = errors.New("qdrant: vector dimension mismatch")
	ErrCollectionNotFound = errors.New("qdrant: collection not found")
	ErrNotSynced          = errors.New("qdrant: ranker used before Sync")
)

const (
	defaultPort      = 6334
	defaultTimeout   = 15 * time.Second
	defaultBatchSize = 256
)

// Config points the ranker at a Qdrant gRPC endpoint.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	BatchSize  int
}

// Ranker ranks corpus rows with Qdrant's cosine search. Row vectors are
// stored as points whose numeric id is the row index.
type Ranker struct {
	client     *qdrant.Client
	space      *tfidf.Space
	collection string
	timeout    time.Duration
	batchSize  int
	logger     *slog.Logger
	synced     bool
}

var _ vectorstore.Ranker = (*Ranker)(nil)

// NewRanker dials Qdrant. Call Sync before Rank.
func NewRanker(space *tfidf.Space, cfg Config, logger *slog.Logger) (*Ranker, error) {
	if cfg.Collection == "" {
		return nil, ErrMissingCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	r := &Ranker{
		client:     client,
		space:      space,
		collection: cfg.Collection,
		timeout:    cfg.Timeout,
		batchSize:  cfg.BatchSize,
		logger:     logger.With("component", "qdrant"),
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	return r, nil
}

func newClient(cfg Config, logger *slog.Logger) (*qdrant.Client, error) {
	host, port := "localhost", defaultPort
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Hostname() == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.URL)
		}
		host = u.Hostname()
		if p := u.Port(); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid port %q: %w", ErrInvalidURL, p, err)
			}
		}
	}
	logger.Debug("creating qdrant client", "host", host, "port", port)
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port, APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("qdrant client creation failed: %w", err)
	}
	return client, nil
}

// Close releases the gRPC connection.
func (r *Ranker) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Sync creates the collection when missing and upserts every non-zero row
// vector. An existing collection of a different size is an error.
func (r *Ranker) Sync(ctx context.Context) error {
	dim := r.space.Dimension()
	start := time.Now()

	exists, size, err := r.collectionInfo(ctx)
	if err != nil {
		return err
	}
	if exists && size != uint64(dim) {
		return fmt.Errorf("%w: collection %q has size %d, vocabulary has %d",
			ErrDimensionMismatch, r.collection, size, dim)
	}
	if !exists {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		_, err = r.client.GetCollectionsClient().Create(cctx, &qdrant.CreateCollection{
			CollectionName: r.collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(dim),
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create qdrant collection: %w", err)
		}
		r.logger.InfoContext(ctx, "collection created", "name", r.collection, "dimension", dim)
	}

	points := r.points()
	for i := 0; i < len(points); i += r.batchSize {
		end := min(i+r.batchSize, len(points))
		if err := r.upsert(ctx, points[i:end]); err != nil {
			return err
		}
	}
	r.synced = true
	r.logger.InfoContext(ctx, "rows synced",
		"collection", r.collection, "points", len(points), "duration", time.Since(start))
	return nil
}

func (r *Ranker) collectionInfo(ctx context.Context) (bool, uint64, error) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, err := r.client.GetCollectionsClient().Get(cctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		if stat, ok := status.FromError(err); ok && stat.Code() == codes.NotFound {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to check collection: %w", err)
	}
	size := resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	return true, size, nil
}

// points skips zero rows; cosine against them is defined as 0 and Rank
// fills those in locally.
func (r *Ranker) points() []*qdrant.PointStruct {
	dim := r.space.Dimension()
	out := make([]*qdrant.PointStruct, 0, r.space.RowCount())
	for i := 0; i < r.space.RowCount(); i++ {
		row := r.space.Row(i)
		if row.IsZero() {
			continue
		}
		out = append(out, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: uint64(i)}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: row.Dense(dim)}}},
		})
	}
	return out
}

func (r *Ranker) upsert(ctx context.Context, points []*qdrant.PointStruct) error {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	wait := true
	_, err := r.client.GetPointsClient().Upsert(cctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Rank implements vectorstore.Ranker. It asks Qdrant for every row and
// re-sorts locally so ties resolve by row index.
func (r *Ranker) Rank(ctx context.Context, query tfidf.Vector, topN int) ([]domain.Match, error) {
	n := r.space.RowCount()
	topN = vectorstore.ClampTopN(topN, n)
	if topN == 0 {
		return []domain.Match{}, nil
	}
	if query.Norm() == 0 {
		return vectorstore.ZeroMatches(n, topN), nil
	}
	if !r.synced {
		return nil, ErrNotSynced
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, err := r.client.GetPointsClient().Search(cctx, &qdrant.SearchPoints{
		CollectionName: r.collection,
		Vector:         query.Dense(r.space.Dimension()),
		Limit:          uint64(n),
	})
	if err != nil {
		if stat, ok := status.FromError(err); ok && stat.Code() == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, r.collection)
		}
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}
	return collect(resp.GetResult(), n, topN), nil
}

// collect turns search hits into a full ranking: rows Qdrant did not return
// score 0.
func collect(hits []*qdrant.ScoredPoint, rowCount, topN int) []domain.Match {
	matches := make([]domain.Match, rowCount)
	for i := range matches {
		matches[i].Row = i
	}
	for _, h := range hits {
		id := h.GetId().GetNum()
		if id >= uint64(rowCount) {
			continue
		}
		matches[id].Score = float64(h.GetScore())
	}
	vectorstore.SortMatches(matches)
	return matches[:vectorstore.ClampTopN(topN, rowCount)]
}
