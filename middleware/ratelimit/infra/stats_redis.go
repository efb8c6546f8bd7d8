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

const (
	fieldAllowed = "allowed"
	fieldDenied  = "denied"
)

// bucketLayouts define a granularidade da série temporal.
var bucketLayouts = map[string]string{
	"minute": "200601021504",
	"hour":   "2006010215",
}

// RedisStatsStore soma as decisões de todas as instâncias no Redis. Cada
// contador é um hash com os campos allowed/denied:
//
//	<prefix>:total                cumulativo, sem TTL
//	<prefix>:routes               set com as rotas já vistas
//	<prefix>:route:<METHOD /path> por rota, sem TTL
//	<prefix>:<bucket>:<stamp>     série por minuto ou hora, expira em ttl
//	<prefix>:key:<ip>             por cliente (WithStatsTrackKeys), expira em ttl
type RedisStatsStore struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	bucket    string
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsBucket aceita "minute", "hour" ou "none".
func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "contact:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	field := fieldDenied
	if ev.Allowed {
		field = fieldAllowed
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, s.key("total"), field, 1)

		if route := ev.Route(); route != "" {
			p.SAdd(ctx, s.key("routes"), route)
			p.HIncrBy(ctx, s.key("route", route), field, 1)
		}
		if layout, ok := bucketLayouts[s.bucket]; ok {
			s.incrExpiring(ctx, p, s.key(s.bucket, at.UTC().Format(layout)), field)
		}
		if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
			s.incrExpiring(ctx, p, s.key("key", k), field)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record stats: %w", err)
	}
	return nil
}

func (s *RedisStatsStore) incrExpiring(ctx context.Context, p redis.Pipeliner, key, field string) {
	p.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		p.Expire(ctx, key, s.ttl)
	}
}

// Snapshot lê os totais e os contadores por rota (sem os por cliente).
func (s *RedisStatsStore) Snapshot(ctx context.Context) (StatsSnapshot, error) {
	routes, err := s.rdb.SMembers(ctx, s.key("routes")).Result()
	if err != nil {
		return StatsSnapshot{}, fmt.Errorf("read stats routes: %w", err)
	}

	pipe := s.rdb.Pipeline()
	total := pipe.HGetAll(ctx, s.key("total"))
	perRoute := make(map[string]*redis.MapStringStringCmd, len(routes))
	for _, r := range routes {
		perRoute[r] = pipe.HGetAll(ctx, s.key("route", r))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return StatsSnapshot{}, fmt.Errorf("read stats: %w", err)
	}

	snap := StatsSnapshot{
		Total:   countersFromHash(total.Val()),
		ByRoute: make(map[string]Counters, len(routes)),
	}
	for r, cmd := range perRoute {
		snap.ByRoute[r] = countersFromHash(cmd.Val())
	}
	return snap, nil
}

func countersFromHash(h map[string]string) Counters {
	allowed, _ := strconv.ParseInt(h[fieldAllowed], 10, 64)
	denied, _ := strconv.ParseInt(h[fieldDenied], 10, 64)
	return Counters{Allowed: allowed, Denied: denied}
}
