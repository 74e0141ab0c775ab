package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/easyyaml/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapter writes.
const DefaultPrefix = "easyyaml:draft:"

// DraftStore implements ports.DraftStore using Redis.
// Drafts are JSON strings; a ZSET index scored by expiry backs List.
type DraftStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*DraftStore)

// WithTTL sets the expiration for drafts.
func WithTTL(ttl time.Duration) Option {
	return func(s *DraftStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for drafts.
func WithPrefix(prefix string) Option {
	return func(s *DraftStore) {
		s.prefix = prefix
	}
}

// New creates a Redis draft store with its own client.
func New(address, password string, db int, opts ...Option) *DraftStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis draft store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *DraftStore {
	store := &DraftStore{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *DraftStore) Client() *backend.Client {
	return s.client
}

func (s *DraftStore) key(id string) string {
	return s.prefix + id
}

func (s *DraftStore) indexKey() string {
	return s.prefix + "index"
}

// Save persists the draft to Redis.
func (s *DraftStore) Save(ctx context.Context, id string, draft *domain.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	pipe := s.client.Pipeline()

	// Use 0 for no expiration if ttl is not set.
	pipe.Set(ctx, s.key(id), data, s.ttl)

	// Score = Now + TTL. If TTL = 0, Score = far future.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: id,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the draft from Redis.
func (s *DraftStore) Load(ctx context.Context, id string) (*domain.Draft, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var draft domain.Draft
	if err := json.Unmarshal([]byte(val), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Delete removes the draft.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns stored draft ids, pruning expired entries from the index first.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired drafts: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *DraftStore) Close() error {
	return s.client.Close()
}
