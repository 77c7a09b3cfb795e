package routecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"remitroute/internal/domain"
)

// RedisClient abstracts the Redis operations needed by RedisStore.
// This allows a real go-redis client or a mock to be used interchangeably.
type RedisClient interface {
	// Get retrieves the value of a key. ok is false when the key does not
	// exist; a missing key is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// SetEX sets key to value with an expiry.
	SetEX(ctx context.Context, key string, value string, expiration time.Duration) error
	// Close shuts down the client.
	Close() error
}

// RedisStore persists route lists in Redis as JSON values with server-side
// TTL, sharing cache entries across router nodes.
type RedisStore struct {
	client RedisClient
	prefix string
}

// NewRedisStore creates a store over client. Keys are namespaced under
// "remitroute:routes:".
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client, prefix: "remitroute:routes:"}
}

// Get returns the stored list and whether a live entry existed. Redis
// expires entries itself, so any present key is live.
func (s *RedisStore) Get(ctx context.Context, key string) ([]domain.CandidateRoute, bool, error) {
	value, ok, err := s.client.Get(ctx, s.prefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var routes []domain.CandidateRoute
	if err := json.Unmarshal([]byte(value), &routes); err != nil {
		return nil, false, fmt.Errorf("decode cached routes for %q: %w", key, err)
	}
	return routes, true, nil
}

// Set stores routes under key for ttl. An empty list is a valid entry and is
// stored so negative results are cached too.
func (s *RedisStore) Set(ctx context.Context, key string, routes []domain.CandidateRoute, ttl time.Duration) error {
	data, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("encode routes for %q: %w", key, err)
	}
	if err := s.client.SetEX(ctx, s.prefix+key, string(data), ttl); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
