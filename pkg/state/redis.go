package state

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	// DefaultNamespace is the hash all state scalars are stored under.
	DefaultNamespace = "atlas:state"

	defaultTimeout = 2 * time.Second
)

// RedisStore keeps state scalars as fields of one Redis hash.
type RedisStore struct {
	cli       *redis.Client
	namespace string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRedisStore wraps an existing client. An empty namespace selects
// DefaultNamespace.
func NewRedisStore(cli *redis.Client, namespace string, logger *zap.Logger) (*RedisStore, error) {
	if cli == nil {
		return nil, errors.New("state: no redis client")
	}

	if namespace == "" {
		namespace = DefaultNamespace
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisStore{
		cli:       cli,
		namespace: namespace,
		timeout:   defaultTimeout,
		logger:    logger.With(zap.String("namespace", namespace)),
	}, nil
}

// DialRedis parses a redis:// URL, pings the server and returns a store.
func DialRedis(ctx context.Context, url, namespace string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	cli := redis.NewClient(opts)

	if err = cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()

		return nil, err
	}

	return NewRedisStore(cli, namespace, logger)
}

// Load reads the key's field from the namespace hash. A missing field is
// not an error.
func (s *RedisStore) Load(key string) (float64, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.cli.HGet(ctx, s.namespace, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, err
	}

	v, err := cast.ToFloat64E(raw)
	if err != nil {
		s.logger.Warn("invalid state value", zap.String("key", key), zap.String("raw", raw))

		return 0, false, err
	}

	return v, true, nil
}

// Save writes the key's field in the namespace hash.
func (s *RedisStore) Save(key string, v float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.cli.HSet(ctx, s.namespace, key, v).Err()
}

// Keys returns the hash fields.
func (s *RedisStore) Keys() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.cli.HKeys(ctx, s.namespace).Result()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.cli.Close()
}
