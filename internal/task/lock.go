package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLocked = errors.New("task already running")

// Locker keeps two runs of the same task from overlapping.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

// LocalLocker only guards against overlap inside this process.
type LocalLocker struct {
	mu      sync.Mutex
	running map[string]bool
}

func NewLocalLocker() *LocalLocker { return &LocalLocker{running: map[string]bool{}} }

func (l *LocalLocker) Acquire(_ context.Context, name string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running[name] {
		return nil, ErrLocked
	}
	l.running[name] = true
	return func() {
		l.mu.Lock()
		delete(l.running, name)
		l.mu.Unlock()
	}, nil
}

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// RedisLocker shares locks between every process using the same Redis.
type RedisLocker struct {
	Client redisClient
	Prefix string
}

func NewRedisLocker(c *redis.Client) *RedisLocker {
	return &RedisLocker{Client: c, Prefix: "ltienrol:task:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := l.Prefix + name
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// the run context may already be cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Client.Eval(rctx, releaseScript, []string{key}, token).Err()
	}, nil
}
