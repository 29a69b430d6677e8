package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore keeps checkpoints in one hash per run and locks in SET NX keys
type RedisStore struct {
	rdb    *redis.Client
	logger ectologger.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig, logger ectologger.Logger) (*RedisStore, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)

	return NewRedisStoreFromClient(rdb, cfg, logger), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(rdb *redis.Client, cfg RedisConfig, logger ectologger.Logger) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "clover:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, logger: logger, prefix: cfg.KeyPrefix, ttl: cfg.TTL}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) runKey(runID string) string {
	return s.prefix + "checkpoint:" + runID
}

func (s *RedisStore) Offset(ctx context.Context, runID, state string) (int, error) {
	raw, err := s.rdb.HGet(ctx, s.runKey(runID), state).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read checkpoint %s/%s: %w", runID, state, err)
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt checkpoint %s/%s: %w", runID, state, err)
	}
	return offset, nil
}

func (s *RedisStore) Save(ctx context.Context, runID, state string, offset int) error {
	key := s.runKey(runID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, state, offset)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", runID, state, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, runID string) error {
	return s.rdb.Del(ctx, s.runKey(runID)).Err()
}

// Lock takes the partition lock using SET NX with a random owner value
func (s *RedisStore) Lock(ctx context.Context, state string, ttl time.Duration) (Lock, error) {
	key := s.prefix + "lock:" + state
	value := uuid.New().String()

	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	s.logger.WithContext(ctx).Debugf("Acquired lock: %s", state)

	return &redisLock{store: s, key: key, value: value}, nil
}

var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	extendScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

type redisLock struct {
	store *RedisStore
	key   string
	value string
}

func (l *redisLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.store.rdb, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	l.store.logger.WithContext(ctx).Debugf("Released lock: %s", l.key)
	return nil
}

func (l *redisLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.store.rdb, []string{l.key}, l.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
