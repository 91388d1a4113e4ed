// Package lock keeps two scraper processes off the same store at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"judge_mirror/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Deletes or extends the key only while it still holds our token.
var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	refreshScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

var errLockLost = errors.New("scrape lock lost")

type RedisLock struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	token string
	log   zerolog.Logger
}

func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration, log zerolog.Logger) *RedisLock {
	return &RedisLock{
		rdb:   rdb,
		key:   key,
		ttl:   ttl,
		token: uuid.NewString(),
		log:   log,
	}
}

func (l *RedisLock) Token() string { return l.token }

// Acquire takes the lock with SET NX PX. It fails with common.ErrLockHeld
// when another run holds it.
func (l *RedisLock) Acquire(ctx context.Context) error {
	ok, err := l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("lock %s: %w", l.key, common.ErrLockHeld)
	}
	l.log.Info().Str("key", l.key).Str("token", l.token).Dur("ttl", l.ttl).Msg("acquired scrape lock")
	return nil
}

// Refresh extends the TTL if the lock is still ours.
func (l *RedisLock) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to refresh lock %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s: %w", l.key, errLockLost)
	}
	return nil
}

// Release deletes the lock if it is still ours. Releasing an expired or
// stolen lock only logs a warning.
func (l *RedisLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n == 1 {
		l.log.Info().Str("key", l.key).Msg("released scrape lock")
	} else {
		l.log.Warn().Str("key", l.key).Msg("scrape lock already expired or taken by another run")
	}
	return nil
}

// KeepAlive refreshes the lock every TTL/3 until ctx ends. If the lock is
// lost, onLost is called once and KeepAlive returns.
func (l *RedisLock) KeepAlive(ctx context.Context, onLost func(error)) {
	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.Error().Err(err).Str("key", l.key).Msg("scrape lock refresh failed")
				if onLost != nil {
					onLost(err)
				}
				return
			}
		}
	}
}
