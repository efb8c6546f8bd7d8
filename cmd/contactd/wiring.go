package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/internal/config"
	"github.com/Gilmore369/tesis-profesorg/internal/contact"
	"github.com/Gilmore369/tesis-profesorg/internal/notify"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/infra"
)

const pingTimeout = 2 * time.Second

// janitor é implementado por MemoryStore e BoltStore.
type janitor interface {
	StartJanitor(ctx infra.DoneContext)
}

// resources guarda o que precisa ser fechado no shutdown.
type resources struct {
	closers []io.Closer
}

func (r *resources) add(c io.Closer) { r.closers = append(r.closers, c) }

func (r *resources) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// buildWindowStore cria o backend do limitador escolhido na configuração e
// inicia o janitor quando o backend tem um.
func buildWindowStore(ctx context.Context, cfg config.Config, res *resources) (domain.WindowStore, error) {
	policy := cfg.Policy()

	switch cfg.RateLimit.Backend {
	case config.BackendMemory:
		s := infra.NewMemoryStore(policy)
		startJanitor(ctx, s)
		return s, nil

	case config.BackendBolt:
		s, err := infra.OpenBoltStore(cfg.RateLimit.BoltPath, policy)
		if err != nil {
			return nil, err
		}
		res.add(s)
		startJanitor(ctx, s)
		return s, nil

	case config.BackendRedis:
		rdb, err := newRedisClient(ctx, cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
		if err != nil {
			return nil, err
		}
		res.add(rdb)
		return infra.NewRedisStore(rdb, policy, infra.WithRedisPrefix(cfg.RateLimit.RedisPrefix)), nil
	}
	return nil, fmt.Errorf("%w: unsupported rate limit backend %q", config.ErrInvalid, cfg.RateLimit.Backend)
}

func startJanitor(ctx context.Context, s janitor) { s.StartJanitor(ctx) }

// statsSet guarda os stores concretos que o /healthz lê.
type statsSet struct {
	local   *infra.MemoryStatsStore
	cluster *infra.RedisStatsStore
}

// buildStats sempre inclui os contadores em memória; com stats habilitado
// também grava no Redis, somando todas as instâncias.
func buildStats(ctx context.Context, cfg config.Config, res *resources) (statsSet, domain.StatsStore, error) {
	var memOpts []infra.MemoryStatsOption
	if cfg.Stats.TrackKeys {
		memOpts = append(memOpts, infra.WithKeyLimit(cfg.Stats.KeyLimit))
	}
	set := statsSet{local: infra.NewMemoryStatsStore(memOpts...)}
	if !cfg.Stats.Enabled {
		return set, set.local, nil
	}

	rdb, err := newRedisClient(ctx, cfg.Stats.RedisAddr, cfg.Stats.RedisPassword, cfg.Stats.RedisDB)
	if err != nil {
		return statsSet{}, nil, fmt.Errorf("stats: %w", err)
	}
	res.add(rdb)

	set.cluster = infra.NewRedisStatsStore(
		rdb,
		infra.WithStatsPrefix(cfg.Stats.Prefix),
		infra.WithStatsTTL(cfg.Stats.TTL),
		infra.WithStatsBucket(cfg.Stats.Bucket),
		infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
	)
	return set, infra.MultiStatsStore{set.local, set.cluster}, nil
}

// buildNotifier escolhe entre SMTP real e o dispatcher de log (dry-run).
func buildNotifier(cfg config.Config, logger *zap.Logger) (contact.Notifier, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("mail timezone: %w", err)
	}

	if cfg.Mail.DryRun {
		return notify.LogDispatcher{Logger: logger, To: cfg.SMTP.To, Location: loc}, nil
	}

	return notify.NewSMTPDispatcher(
		notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		},
		notify.DeliveryPolicy{
			Timeout:       cfg.Mail.Timeout,
			MaxAttempts:   cfg.Mail.MaxAttempts,
			Backoff:       cfg.Mail.RetryBackoff,
			RatePerMinute: cfg.Mail.RatePerMinute,
			Burst:         cfg.Mail.Burst,
		},
		notify.WithLocation(loc),
		notify.WithLogger(logger),
	), nil
}
