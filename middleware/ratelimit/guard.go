package ratelimit

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/application"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

type GuardOptions struct {
	Store             domain.WindowStore
	Stats             domain.StatsStore
	KeyFn             KeyFunc
	TrustProxyHeaders bool
	// AddRateLimitHeaders escreve X-RateLimit-Limit/Remaining/Reset.
	AddRateLimitHeaders bool
	Logger              *zap.Logger
	Now                 func() time.Time
}

// policyInfo é implementado pelos stores de infra.
type policyInfo interface {
	Policy() domain.Policy
}

// Guard aplica o rate limit dentro de um handler (e não como middleware),
// para que o preflight e o 405 respondam antes de contar a requisição.
type Guard struct {
	svc     application.Service
	stats   domain.StatsStore
	keyFn   KeyFunc
	headers bool
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

func NewGuard(opts GuardOptions) *Guard {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientAddr(opts.TrustProxyHeaders)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &Guard{
		svc:     application.Service{Store: opts.Store, Now: opts.Now},
		stats:   opts.Stats,
		keyFn:   opts.KeyFn,
		headers: opts.AddRateLimitHeaders,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if pi, ok := opts.Store.(policyInfo); ok {
		g.limit = pi.Policy().Max
	}
	return g
}

// Check resolve o cliente, pede a decisão e grava a estatística.
//
// Erro no store não bloqueia o cliente: é logado e a requisição segue
// (fail-open). Quando bloqueia, escreve Retry-After.
func (g *Guard) Check(w http.ResponseWriter, r *http.Request) (domain.Key, domain.Decision) {
	key := domain.Key(g.keyFn(r))

	dec, err := g.svc.Decide(r.Context(), key)
	if err != nil {
		g.logger.Warn("rate limit store unavailable, allowing request",
			zap.String("client", string(key)),
			zap.Error(err))
		return key, domain.Decision{Allowed: true}
	}

	if g.stats != nil {
		err := g.stats.Record(r.Context(), domain.StatsEvent{
			Key:     key,
			Allowed: dec.Allowed,
			Method:  r.Method,
			Path:    r.URL.Path,
			At:      g.now(),
		})
		if err != nil {
			g.logger.Debug("rate limit stats not recorded", zap.Error(err))
		}
	}

	if g.headers {
		h := w.Header()
		if g.limit > 0 {
			h.Set("X-RateLimit-Limit", formatInt(g.limit))
		}
		h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
		if !dec.ResetAt.IsZero() {
			h.Set("X-RateLimit-Reset", formatInt64(dec.ResetAt.Unix()))
		}
	}
	if !dec.Allowed {
		w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
	}

	return key, dec
}
