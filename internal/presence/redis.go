package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "presence"

// KEYS[1] identity -> conn hash, KEYS[2] conn -> identity hash.
// ARGV[1] identity, ARGV[2] conn id.
var bindScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[2], ARGV[2])
if old and old ~= ARGV[1] and redis.call('HGET', KEYS[1], old) == ARGV[2] then
  redis.call('HDEL', KEYS[1], old)
end
local prev = redis.call('HGET', KEYS[1], ARGV[1])
if prev and prev ~= ARGV[2] then
  redis.call('HDEL', KEYS[2], prev)
else
  prev = ''
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
return prev
`)

// KEYS as for bindScript, ARGV[1] conn id.
var unbindScript = redis.NewScript(`
local identity = redis.call('HGET', KEYS[2], ARGV[1])
if not identity then
  return false
end
redis.call('HDEL', KEYS[2], ARGV[1])
if redis.call('HGET', KEYS[1], identity) == ARGV[1] then
  redis.call('HDEL', KEYS[1], identity)
end
return identity
`)

// RedisRegistry keeps bindings in two Redis hashes so several processes
// can share one view of presence. Each mutation is a single Lua script and
// therefore atomic.
type RedisRegistry struct {
	client   redis.Cmdable
	usersKey string
	connsKey string
}

func NewRedisRegistry(client redis.Cmdable, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &RedisRegistry{
		client:   client,
		usersKey: prefix + ":users",
		connsKey: prefix + ":conns",
	}
}

func (r *RedisRegistry) keys() []string {
	return []string{r.usersKey, r.connsKey}
}

func (r *RedisRegistry) Bind(ctx context.Context, identity, connId string) (string, error) {
	previous, err := bindScript.Run(ctx, r.client, r.keys(), identity, connId).Text()
	if err != nil {
		return "", fmt.Errorf("redis bind: %w", err)
	}

	return previous, nil
}

func (r *RedisRegistry) Unbind(ctx context.Context, connId string) (string, bool, error) {
	identity, err := unbindScript.Run(ctx, r.client, r.keys(), connId).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis unbind: %w", err)
	}

	return identity, true, nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, identity string) (string, bool, error) {
	connId, err := r.client.HGet(ctx, r.usersKey, identity).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis lookup: %w", err)
	}

	return connId, true, nil
}
