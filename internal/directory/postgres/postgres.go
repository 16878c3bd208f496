package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ayurrec/internal/directory"
	"ayurrec/internal/domain"
)

// Directory looks doctors up in a Postgres table with columns
// doctor_id, name, role, email, phone, specialization, hospital,
// experience, address (jsonb) and profile (jsonb).
type Directory struct {
	db    *sql.DB
	query string
}

var _ domain.DoctorDirectory = (*Directory)(nil)

// Open connects with the lib/pq driver and pings the server.
func Open(ctx context.Context, dsn, table string) (*Directory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return New(db, table), nil
}

// New wraps an existing handle. An empty table defaults to "users".
func New(db *sql.DB, table string) *Directory {
	return &Directory{db: db, query: lookupQuery(table)}
}

// Close closes the underlying handle.
func (d *Directory) Close() error { return d.db.Close() }

func lookupQuery(table string) string {
	if table == "" {
		table = "users"
	}
	return `SELECT doctor_id, name, email, phone, specialization, hospital, experience, address, profile FROM ` +
		pq.QuoteIdentifier(table) + ` WHERE name = $1 AND role = $2 LIMIT 1`
}

// Lookup implements domain.DoctorDirectory.
func (d *Directory) Lookup(ctx context.Context, name, role string) (*domain.DoctorProfile, error) {
	var (
		id, pname, email, phone, spec, hospital, exp sql.NullString
		address, profile                            []byte
	)
	err := d.db.QueryRowContext(ctx, d.query, name, role).
		Scan(&id, &pname, &email, &phone, &spec, &hospital, &exp, &address, &profile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, directory.LookupError(name, err)
	}
	p := &domain.DoctorProfile{
		ID:             id.String,
		Name:           pname.String,
		Email:          email.String,
		Phone:          phone.String,
		Specialization: spec.String,
		Hospital:       hospital.String,
		Experience:     exp.String,
	}
	if p.Address, err = jsonObject(address); err != nil {
		return nil, directory.LookupError(name, fmt.Errorf("address: %w", err))
	}
	if p.Profile, err = jsonObject(profile); err != nil {
		return nil, directory.LookupError(name, fmt.Errorf("profile: %w", err))
	}
	return p, nil
}

// jsonObject decodes a nullable jsonb column. NULL and JSON null give nil.
func jsonObject(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
