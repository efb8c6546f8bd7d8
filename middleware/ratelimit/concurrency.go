package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/application"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max            int
	AcquireTimeout time.Duration
	// OnReject escreve a resposta quando não há vaga. Nil responde 503 em texto.
	OnReject http.HandlerFunc
	Logger   *zap.Logger
}

// ConcurrencyLimiter segura o excesso de requisições simultâneas antes de
// chegar ao handler e expõe a ocupação para o /healthz.
type ConcurrencyLimiter struct {
	svc      application.ConcurrencyService
	onReject http.HandlerFunc
	logger   *zap.Logger
}

func NewConcurrencyLimiter(opts ConcurrencyOptions) *ConcurrencyLimiter {
	l := &ConcurrencyLimiter{
		onReject: opts.OnReject,
		logger:   opts.Logger,
	}
	if l.onReject == nil {
		l.onReject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if opts.Max > 0 {
		l.svc = application.ConcurrencyService{
			Pool:           infra.NewSlotPool(opts.Max),
			AcquireTimeout: opts.AcquireTimeout,
		}
	}
	return l
}

func (l *ConcurrencyLimiter) Wrap(next http.Handler) http.Handler {
	if l.svc.Pool == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, err := l.svc.Acquire(r.Context())
		if err != nil {
			if !errors.Is(err, domain.ErrNoSlot) {
				// cliente desistiu enquanto esperava
				return
			}
			l.logger.Warn("no free slot, rejecting request",
				zap.String("path", r.URL.Path),
				zap.Int("inFlight", l.InFlight()))
			l.onReject(w, r)
			return
		}
		defer release()

		next.ServeHTTP(w, r)
	})
}

// InFlight é 0 quando o limite está desligado.
func (l *ConcurrencyLimiter) InFlight() int {
	if l.svc.Pool == nil {
		return 0
	}
	return l.svc.Pool.InFlight()
}

func (l *ConcurrencyLimiter) Capacity() int {
	if l.svc.Pool == nil {
		return 0
	}
	return l.svc.Pool.Capacity()
}

// ConcurrencyMiddleware é NewConcurrencyLimiter(opts).Wrap.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	return NewConcurrencyLimiter(opts).Wrap
}
