package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ayurrec/internal/directory"
	"ayurrec/internal/domain"
)

// Config selects the users collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Directory looks doctors up in a MongoDB users collection by name and role.
type Directory struct {
	client *mongo.Client
	col    *mongo.Collection
	logger *slog.Logger
}

var _ domain.DoctorDirectory = (*Directory)(nil)

// Connect dials MongoDB and pings it before returning.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Directory, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, errors.New("mongo directory: uri and database are required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "users"
	}
	if logger == nil {
		logger = slog.Default()
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger = logger.With("component", "mongo-directory")
	logger.Info("connected", "database", cfg.Database, "collection", cfg.Collection)
	return &Directory{
		client: client,
		col:    client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger,
	}, nil
}

// Close disconnects the client.
func (d *Directory) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Lookup implements domain.DoctorDirectory.
func (d *Directory) Lookup(ctx context.Context, name, role string) (*domain.DoctorProfile, error) {
	var doc bson.M
	err := d.col.FindOne(ctx, bson.M{"name": name, "role": role}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, directory.LookupError(name, err)
	}
	p := toProfile(doc)
	return &p, nil
}

// toProfile maps a users document onto a profile. doctorId wins over _id.
func toProfile(doc bson.M) domain.DoctorProfile {
	p := domain.DoctorProfile{
		Name:           stringField(doc["name"]),
		Email:          stringField(doc["email"]),
		Phone:          stringField(doc["phone"]),
		Specialization: stringField(doc["specialization"]),
		Hospital:       stringField(doc["hospital"]),
		Experience:     stringField(doc["experience"]),
		Address:        mapField(doc["address"]),
		Profile:        mapField(doc["profile"]),
	}
	if id := stringField(doc["doctorId"]); id != "" {
		p.ID = id
	} else {
		p.ID = stringField(doc["_id"])
	}
	return p
}

func stringField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func mapField(v any) map[string]any {
	switch x := v.(type) {
	case bson.M:
		return normalize(x)
	case bson.D:
		return normalize(x.Map())
	default:
		return nil
	}
}

// normalize converts nested BSON values into JSON-friendly ones.
func normalize(m bson.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case bson.M, bson.D:
			out[k] = mapField(x)
		case bson.A:
			arr := make([]any, len(x))
			for i, e := range x {
				if sub := mapField(e); sub != nil {
					arr[i] = sub
				} else {
					arr[i] = e
				}
			}
			out[k] = arr
		case primitive.ObjectID:
			out[k] = x.Hex()
		default:
			out[k] = v
		}
	}
	return out
}
