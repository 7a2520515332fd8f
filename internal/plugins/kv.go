package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"
)

// KVName is the registry name of the Redis key/value capability.
const KVName = "kv"

// redisConn is the subset of go-redis used by KV. It is implemented by the
// real client wrapper and by test doubles.
type redisConn interface {
	PingResult(ctx context.Context) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// realRedisConn adapts *redis.Client to redisConn so tests can inject a fake
// without building *redis.StatusCmd values.
type realRedisConn struct {
	client *redis.Client
}

func (r *realRedisConn) PingResult(ctx context.Context) (string, error) {
	return r.client.Ping(ctx).Result()
}

func (r *realRedisConn) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *realRedisConn) Close() error {
	return r.client.Close()
}

// KVPlugin registers the kv capability.
type KVPlugin struct {
	cfg config.RedisConfig
}

// NewKVPlugin returns a plugin backed by the Redis instance in cfg.
func NewKVPlugin(cfg config.RedisConfig) *KVPlugin {
	return &KVPlugin{cfg: cfg}
}

func (p *KVPlugin) Name() string { return KVName }

// Register provides a lazily connecting KV capability. No connection is opened.
func (p *KVPlugin) Register(r *Registry) {
	r.Provide(KVName, NewKV(p.cfg, NewCircuitBreaker(KVName)))
}

// KV is a Redis-backed key/value capability wrapped in a circuit breaker.
type KV struct {
	cfg  config.RedisConfig
	cb   *gobreaker.CircuitBreaker
	dial func() redisConn
}

// NewKV creates a KV. A Redis client is built per operation and closed
// afterwards.
func NewKV(cfg config.RedisConfig, cb *gobreaker.CircuitBreaker) *KV {
	kv := &KV{cfg: cfg, cb: cb}
	kv.dial = kv.realDial
	return kv
}

// Probe sends PING and validates the PONG response. After 3 consecutive
// failures the breaker opens and calls return "circuit open" immediately.
func (k *KV) Probe(ctx context.Context) health.ProbeResult {
	start := time.Now()

	_, err := k.cb.Execute(func() (any, error) {
		conn := k.dial()
		defer conn.Close() //nolint:errcheck

		val, err := conn.PingResult(ctx)
		if err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		if val != "PONG" {
			return nil, fmt.Errorf("unexpected PING response: %q", val)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()
	if err != nil {
		return health.ProbeResult{Name: KVName, OK: false, LatencyMs: latency, Error: breakerMessage(err)}
	}
	return health.ProbeResult{Name: KVName, OK: true, LatencyMs: latency}
}

// Announce stores report under "<prefix>:launch:<id>" and "<prefix>:launch:last".
func (k *KV) Announce(ctx context.Context, report *launch.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding launch report: %w", err)
	}

	_, err = k.cb.Execute(func() (any, error) {
		conn := k.dial()
		defer conn.Close() //nolint:errcheck

		for _, key := range []string{k.Key(report.ID.String()), k.Key("last")} {
			if err := conn.Set(ctx, key, payload, k.cfg.TTL); err != nil {
				return nil, fmt.Errorf("set %s: %w", key, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("kv announce: %w", err)
	}
	return nil
}

// Key returns the namespaced Redis key for a launch record.
func (k *KV) Key(suffix string) string {
	prefix := k.cfg.KeyPrefix
	if prefix == "" {
		prefix = "launchpad"
	}
	return prefix + ":launch:" + suffix
}

func (k *KV) realDial() redisConn {
	return &realRedisConn{
		client: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", k.cfg.Host, k.cfg.Port),
			Password: k.cfg.Password,
			DB:       k.cfg.DB,
		}),
	}
}
