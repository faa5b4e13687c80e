package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard keeps two batches from running at the same time.
// When acquired is false the tick must be skipped. release is safe to call more than once.
type Guard interface {
	TryAcquire(ctx context.Context, token string) (release func(), acquired bool, err error)
}

// LocalGuard guards a single process.
type LocalGuard struct {
	running atomic.Bool
}

func (g *LocalGuard) TryAcquire(_ context.Context, _ string) (func(), bool, error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, false, nil
	}
	return sync.OnceFunc(func() { g.running.Store(false) }), true, nil
}

const DefaultLockKey = "pricewatch:batch:lock"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard guards every replica sharing one Redis.
// The lock expires after ttl so a crashed holder cannot block ticks forever.
// A batch that outlives ttl loses the lock, and another replica may then start
// an overlapping batch. Size ttl above the longest expected pass.
type RedisGuard struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisGuard(client redis.UniversalClient, key string, ttl time.Duration) *RedisGuard {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisGuard{client: client, key: key, ttl: ttl, log: slog.Default()}
}

// WithLogger sets the logger used to report lock releases.
func (g *RedisGuard) WithLogger(l *slog.Logger) *RedisGuard {
	if l != nil {
		g.log = l
	}
	return g
}

func (g *RedisGuard) TryAcquire(ctx context.Context, token string) (func(), bool, error) {
	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", g.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := sync.OnceFunc(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := releaseScript.Run(ctx, g.client, []string{g.key}, token).Int()
		switch {
		case err != nil:
			g.log.Warn("batch lock release failed", "key", g.key, "token", token, "err", err)
		case n == 0:
			g.log.Warn("batch lock expired before release", "key", g.key, "token", token, "ttl", g.ttl)
		default:
			g.log.Debug("batch lock released", "key", g.key, "token", token)
		}
	})
	return release, true, nil
}

// RedisConfig locates the Redis used by RedisGuard. Empty Addr disables it.
// LockTTL must exceed the longest batch, see RedisGuard.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
	LockKey  string `mapstructure:"lock_key" json:"lock_key"`
	LockTTL  int    `mapstructure:"lock_ttl_sec" json:"lock_ttl_sec"`
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
