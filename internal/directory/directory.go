// Package directory provides doctor directory backends and decorators.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ayurrec/internal/domain"
)

// Static is an in-memory directory keyed by role and name.
type Static struct {
	mu       sync.RWMutex
	profiles map[string]domain.DoctorProfile
}

var _ domain.DoctorDirectory = (*Static)(nil)

// NewStatic returns a directory holding profiles under role.
func NewStatic(role string, profiles ...domain.DoctorProfile) *Static {
	s := &Static{profiles: make(map[string]domain.DoctorProfile, len(profiles))}
	for _, p := range profiles {
		s.Add(role, p)
	}
	return s
}

// Add stores p under role, replacing any profile with the same name.
func (s *Static) Add(role string, p domain.DoctorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[key(p.Name, role)] = p
}

// Lookup implements domain.DoctorDirectory. Names match exactly.
func (s *Static) Lookup(ctx context.Context, name, role string) (*domain.DoctorProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[key(name, role)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func key(name, role string) string { return role + "\x00" + name }

// None is a directory that never finds anyone. Every doctor resolves to a
// name-only record.
type None struct{}

// Lookup implements domain.DoctorDirectory.
func (None) Lookup(context.Context, string, string) (*domain.DoctorProfile, error) {
	return nil, nil
}

type timeoutDirectory struct {
	next    domain.DoctorDirectory
	timeout time.Duration
}

// WithTimeout bounds every lookup on next by timeout. A non-positive timeout
// returns next unchanged.
func WithTimeout(next domain.DoctorDirectory, timeout time.Duration) domain.DoctorDirectory {
	if timeout <= 0 {
		return next
	}
	return &timeoutDirectory{next: next, timeout: timeout}
}

func (d *timeoutDirectory) Lookup(ctx context.Context, name, role string) (*domain.DoctorProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.next.Lookup(ctx, name, role)
}

// LookupError wraps err with domain.ErrDirectoryLookup and the doctor name.
func LookupError(name string, err error) error {
	return fmt.Errorf("%w: %q: %w", domain.ErrDirectoryLookup, strings.TrimSpace(name), err)
}
