package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// windowScript faz a verificação e o incremento numa única ida ao Redis.
//
// KEYS[1] = chave da janela, ARGV[1] = máximo, ARGV[2] = janela em ms.
// Retorna {count, ttl_ms, allowed}. Quando bloqueia, não incrementa.
var windowScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local ttl = redis.call('PTTL', KEYS[1])
if count == 0 or ttl < 0 then
  redis.call('SET', KEYS[1], '1', 'PX', ARGV[2])
  return {1, tonumber(ARGV[2]), 1}
end
if count >= max then
  return {count, ttl, 0}
end
redis.call('INCR', KEYS[1])
return {count + 1, ttl, 1}
`)

// RedisStore é a janela fixa compartilhada entre instâncias.
type RedisStore struct {
	rdb    *redis.Client
	policy domain.Policy
	prefix string
	now    func() time.Time
}

type RedisStoreOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(rdb *redis.Client, policy domain.Policy, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		policy: policy.Normalize(),
		prefix: "contact:ratelimit",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Policy() domain.Policy { return s.policy }

// CheckAndIncrement implementa domain.WindowStore.
func (s *RedisStore) CheckAndIncrement(ctx context.Context, key domain.Key) (domain.Decision, error) {
	windowMs := s.policy.Window.Milliseconds()
	res, err := windowScript.Run(ctx, s.rdb,
		[]string{s.prefix + ":" + string(key)},
		strconv.Itoa(s.policy.Max), strconv.FormatInt(windowMs, 10),
	).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis window script: %w", err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("redis window script: unexpected reply %v", res)
	}

	count, ttl, allowed := int(res[0]), time.Duration(res[1])*time.Millisecond, res[2] == 1
	dec := domain.Decision{
		Allowed: allowed,
		ResetAt: s.now().Add(ttl),
	}
	if allowed {
		dec.Remaining = s.policy.Max - count
	}
	return dec, nil
}
