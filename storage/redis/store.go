package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/ilumina-session/storage"
	backend "github.com/redis/go-redis/v9"
)

// Store keeps the session record in Redis under prefix+key. A TTL bounds
// how long an abandoned tab's record survives.
type Store struct {
	client *backend.Client
	prefix string
	key    string
	ttl    time.Duration
}

var _ storage.Store = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration for stored records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to address and stores the record under key.
func New(address, key string, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: address}), key, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, key string, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "ilumina:tab:",
		key:    key,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) redisKey() string {
	return s.prefix + s.key
}

func (s *Store) Load(ctx context.Context) (*storage.Record, error) {
	val, err := s.client.Get(ctx, s.redisKey()).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load from redis: %w", err)
	}

	var record storage.Record
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &record, nil
}

func (s *Store) Save(ctx context.Context, record storage.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	// A ttl of 0 means no expiration.
	if err := s.client.Set(ctx, s.redisKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.redisKey()).Err(); err != nil {
		return fmt.Errorf("failed to remove from redis: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
