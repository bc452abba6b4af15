// Package localfs persists drafts and counters as JSON files under a local directory.
// Nothing leaves the machine.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/repositories"
)

const (
	draftsDir    = "drafts"
	countersFile = "counters.json"
)

// Options configures the file-backed registry.
type Options struct {
	Dir string
	// TTL expires drafts whose file is older than the duration. Zero disables expiry.
	TTL   time.Duration
	Clock func() time.Time
}

// Registry bundles the file-backed repositories.
type Registry struct {
	drafts   *DraftRepository
	counters *CounterRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry creates the directory layout and returns the registry.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Dir == "" {
		return nil, errors.New("localfs registry: dir is required")
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, draftsDir), 0o700); err != nil {
		return nil, fmt.Errorf("localfs registry: create dir: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	drafts := &DraftRepository{dir: filepath.Join(opts.Dir, draftsDir), ttl: opts.TTL, now: clock}
	counters := &CounterRepository{path: filepath.Join(opts.Dir, countersFile)}
	health := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "drafts_dir",
			Check: func(context.Context) error {
				info, err := os.Stat(drafts.dir)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					return fmt.Errorf("%s is not a directory", drafts.dir)
				}
				return nil
			},
		},
	})
	return &Registry{drafts: drafts, counters: counters, health: health}, nil
}

// Close is a no-op; files are closed after every write.
func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Drafts() repositories.DraftRepository { return r.drafts }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// DraftRepository stores one JSON file per document kind.
type DraftRepository struct {
	mu  sync.Mutex
	dir string
	ttl time.Duration
	now func() time.Time
}

func (r *DraftRepository) path(kind domain.DocumentKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("drafts: unknown kind %q", kind)
	}
	return filepath.Join(r.dir, string(kind)+".json"), nil
}

func (r *DraftRepository) Load(ctx context.Context, kind domain.DocumentKind) (domain.BusinessDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.BusinessDocument{}, err
	}
	path, err := r.path(kind)
	if err != nil {
		return domain.BusinessDocument{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.BusinessDocument{}, repositories.ErrDraftNotFound
	}
	if err != nil {
		return domain.BusinessDocument{}, fmt.Errorf("drafts: stat %s: %w", kind, err)
	}
	if r.ttl > 0 && r.now().Sub(info.ModTime()) > r.ttl {
		_ = os.Remove(path)
		return domain.BusinessDocument{}, repositories.ErrDraftNotFound
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.BusinessDocument{}, fmt.Errorf("drafts: read %s: %w", kind, err)
	}
	var doc domain.BusinessDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.BusinessDocument{}, fmt.Errorf("drafts: decode %s: %w", kind, err)
	}
	return doc, nil
}

func (r *DraftRepository) Save(ctx context.Context, doc domain.BusinessDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(doc.Kind)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("drafts: encode %s: %w", doc.Kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeFileAtomic(path, raw)
}

func (r *DraftRepository) Delete(ctx context.Context, kind domain.DocumentKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(kind)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("drafts: delete %s: %w", kind, err)
	}
	return nil
}

type counterRecord struct {
	Value    int64  `json:"value"`
	Step     int64  `json:"step"`
	MaxValue *int64 `json:"maxValue,omitempty"`
}

// CounterRepository keeps every counter in a single JSON file rewritten on each increment.
type CounterRepository struct {
	mu   sync.Mutex
	path string
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

	records, err := r.read()
	if err != nil {
		return 0, err
	}
	rec := records[id]
	next, used, err := repositories.AdvanceCounter(id, rec.Value, rec.Step, rec.MaxValue, step)
	if err != nil {
		return 0, err
	}
	rec.Value = next
	rec.Step = used
	records[id] = rec
	if err := r.write(records); err != nil {
		return 0, err
	}
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

	records, err := r.read()
	if err != nil {
		return err
	}
	rec := records[id]
	if cfg.Step > 0 {
		rec.Step = cfg.Step
	}
	if cfg.MaxValue != nil {
		max := *cfg.MaxValue
		rec.MaxValue = &max
	}
	if cfg.InitialValue != nil {
		rec.Value = *cfg.InitialValue
	}
	records[id] = rec
	return r.write(records)
}

func (r *CounterRepository) read() (map[string]counterRecord, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]counterRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("counters: read: %w", err)
	}
	records := make(map[string]counterRecord)
	if len(raw) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("counters: decode: %w", err)
	}
	return records, nil
}

func (r *CounterRepository) write(records map[string]counterRecord) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("counters: encode: %w", err)
	}
	return writeFileAtomic(r.path, raw)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("localfs: create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("localfs: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("localfs: close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("localfs: rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
