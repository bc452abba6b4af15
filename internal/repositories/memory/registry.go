// Package memory provides process-local repositories. Drafts vanish with the process.
package memory

import (
	"context"
	"sync"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/repositories"
)

// Registry bundles the in-memory repositories.
type Registry struct {
	drafts   *DraftRepository
	counters *CounterRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		drafts:   NewDraftRepository(),
		counters: NewCounterRepository(),
		health:   repositories.NewDependencyHealthRepository(nil),
	}
}

// Close is a no-op; nothing is held open.
func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Drafts() repositories.DraftRepository { return r.drafts }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// DraftRepository keeps one cloned document per kind.
type DraftRepository struct {
	mu     sync.RWMutex
	drafts map[domain.DocumentKind]domain.BusinessDocument
}

// NewDraftRepository constructs an empty draft cache.
func NewDraftRepository() *DraftRepository {
	return &DraftRepository{drafts: make(map[domain.DocumentKind]domain.BusinessDocument)}
}

func (r *DraftRepository) Load(ctx context.Context, kind domain.DocumentKind) (domain.BusinessDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.BusinessDocument{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.drafts[kind]
	if !ok {
		return domain.BusinessDocument{}, repositories.ErrDraftNotFound
	}
	return doc.Clone(), nil
}

func (r *DraftRepository) Save(ctx context.Context, doc domain.BusinessDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[doc.Kind] = doc.Clone()
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, kind domain.DocumentKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, kind)
	return nil
}

type counterState struct {
	value int64
	step  int64
	max   *int64
}

// CounterRepository implements repositories.CounterRepository with a mutex-guarded map.
type CounterRepository struct {
	mu       sync.Mutex
	counters map[string]counterState
}

// NewCounterRepository constructs an empty counter store.
func NewCounterRepository() *CounterRepository {
	return &CounterRepository{counters: make(map[string]counterState)}
}

func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := repositories.NormalizeCounterID(counterID, step)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.counters[id]
	next, used, err := repositories.AdvanceCounter(id, state.value, state.step, state.max, step)
	if err != nil {
		return 0, err
	}
	state.value = next
	state.step = used
	r.counters[id] = state
	return next, nil
}

func (r *CounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := repositories.NormalizeCounterID(counterID, 0)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.counters[id]
	if cfg.Step > 0 {
		state.step = cfg.Step
	}
	if cfg.MaxValue != nil {
		max := *cfg.MaxValue
		state.max = &max
	}
	if cfg.InitialValue != nil {
		state.value = *cfg.InitialValue
	}
	r.counters[id] = state
	return nil
}
