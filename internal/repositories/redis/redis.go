// Package redis backs drafts and counters with a Redis instance, typically a local one
// shared by several editor processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/repositories"
)

const counterKeyPrefix = "bizdoc:counter:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// DraftTTL expires drafts after the duration. Zero keeps them until deleted.
	DraftTTL time.Duration
}

// Registry bundles the Redis-backed repositories around one client.
type Registry struct {
	client   *goredis.Client
	drafts   *DraftRepository
	counters *CounterRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry dials Redis and verifies the connection with PING.
func NewRegistry(ctx context.Context, opts Options) (*Registry, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("redis registry: addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis registry: ping %s: %w", addr, err)
	}
	return NewRegistryFromClient(client, opts.DraftTTL), nil
}

// NewRegistryFromClient wraps an existing client. The registry takes ownership and closes it.
func NewRegistryFromClient(client *goredis.Client, draftTTL time.Duration) *Registry {
	return &Registry{
		client:   client,
		drafts:   &DraftRepository{client: client, ttl: draftTTL},
		counters: &CounterRepository{client: client},
		health: repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
			{
				Name: "redis",
				Check: func(ctx context.Context) error {
					return client.Ping(ctx).Err()
				},
			},
		}),
	}
}

// Close releases the underlying client.
func (r *Registry) Close(context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *Registry) Drafts() repositories.DraftRepository { return r.drafts }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// DraftRepository stores the JSON-encoded document under bizdoc:draft:<kind>.
type DraftRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

func (r *DraftRepository) Load(ctx context.Context, kind domain.DocumentKind) (domain.BusinessDocument, error) {
	raw, err := r.client.Get(ctx, repositories.DraftKey(kind)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.BusinessDocument{}, repositories.ErrDraftNotFound
	}
	if err != nil {
		return domain.BusinessDocument{}, fmt.Errorf("drafts: get %s: %w", kind, err)
	}
	var doc domain.BusinessDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.BusinessDocument{}, fmt.Errorf("drafts: decode %s: %w", kind, err)
	}
	return doc, nil
}

func (r *DraftRepository) Save(ctx context.Context, doc domain.BusinessDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("drafts: encode %s: %w", doc.Kind, err)
	}
	if err := r.client.Set(ctx, repositories.DraftKey(doc.Kind), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("drafts: set %s: %w", doc.Kind, err)
	}
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, kind domain.DocumentKind) error {
	if err := r.client.Del(ctx, repositories.DraftKey(kind)).Err(); err != nil {
		return fmt.Errorf("drafts: delete %s: %w", kind, err)
	}
	return nil
}

// nextScript increments a counter hash atomically. Returns -1 when the max value would be exceeded.
var nextScript = goredis.NewScript(`
local step = tonumber(ARGV[1])
if step <= 0 then
  local stored = redis.call('HGET', KEYS[1], 'step')
  if stored then step = tonumber(stored) else step = 1 end
  if step <= 0 then step = 1 end
end
local current = tonumber(redis.call('HGET', KEYS[1], 'value') or '0')
local nextValue = current + step
local max = redis.call('HGET', KEYS[1], 'max')
if max and nextValue > tonumber(max) then
  return -1
end
redis.call('HSET', KEYS[1], 'value', nextValue, 'step', step)
return nextValue
`)

// CounterRepository keeps each counter in a hash at bizdoc:counter:<id>.
type CounterRepository struct {
	client *goredis.Client
}

func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id, err := repositories.NormalizeCounterID(counterID, step)
	if err != nil {
		return 0, err
	}
	value, err := nextScript.Run(ctx, r.client, []string{counterKeyPrefix + id}, step).Int64()
	if err != nil {
		return 0, fmt.Errorf("counters: next %s: %w", id, err)
	}
	if value < 0 {
		max, _ := r.client.HGet(ctx, counterKeyPrefix+id, "max").Int64()
		return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, max), nil)
	}
	return value, nil
}

func (r *CounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	id, err := repositories.NormalizeCounterID(counterID, 0)
	if err != nil {
		return err
	}
	fields := make(map[string]any, 3)
	if cfg.Step > 0 {
		fields["step"] = cfg.Step
	}
	if cfg.MaxValue != nil {
		fields["max"] = *cfg.MaxValue
	}
	if cfg.InitialValue != nil {
		fields["value"] = *cfg.InitialValue
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, counterKeyPrefix+id, fields).Err(); err != nil {
		return fmt.Errorf("counters: configure %s: %w", id, err)
	}
	return nil
}
