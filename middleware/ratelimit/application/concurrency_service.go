package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// ConcurrencyService reserva vagas de processamento sem saber nada de HTTP.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout > 0 limita a espera por uma vaga; <= 0 espera o ctx.
	AcquireTimeout time.Duration
}

// Acquire devolve o release da vaga. Sem pool nunca bloqueia.
//
// Se o prazo de espera acabar antes do ctx do chamador, o erro é
// domain.ErrNoSlot; se o próprio ctx acabou, é ctx.Err().
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	waitCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, err := s.Pool.Acquire(waitCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSlot, err)
	}
	return release, nil
}
