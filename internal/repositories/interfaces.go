package repositories

import (
	"context"
	"errors"

	"github.com/hanko-field/bizdoc/internal/domain"
)

// DraftKeyPrefix namespaces draft entries in shared caches.
const DraftKeyPrefix = "bizdoc:draft:"

// ErrDraftNotFound is returned when no draft is cached for a kind.
var ErrDraftNotFound = errors.New("drafts: not found")

// DraftKey returns the cache key holding the autosaved draft for a kind.
func DraftKey(kind domain.DocumentKind) string {
	return DraftKeyPrefix + string(kind)
}

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Drafts() DraftRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// DraftRepository mirrors the live editor document into a local cache, one entry per kind.
type DraftRepository interface {
	Load(ctx context.Context, kind domain.DocumentKind) (domain.BusinessDocument, error)
	Save(ctx context.Context, doc domain.BusinessDocument) error
	Delete(ctx context.Context, kind domain.DocumentKind) error
}

// CounterRepository provides monotonically increasing sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
