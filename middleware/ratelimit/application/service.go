package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// MinRetryAfter é o menor Retry-After sugerido ao bloquear.
const MinRetryAfter = time.Second

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store domain.WindowStore
	// Now permite controlar o relógio nos testes. Nil usa time.Now.
	Now func() time.Time
}

// Decide consulta o store e completa a decisão com o Retry-After
// (tempo até o fim da janela, nunca menor que MinRetryAfter).
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true}, nil
	}

	dec, err := s.Store.CheckAndIncrement(ctx, key)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("rate limit store: %w", err)
	}
	if dec.Allowed {
		return dec, nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	retry := dec.ResetAt.Sub(now())
	if retry < MinRetryAfter {
		retry = MinRetryAfter
	}
	dec.RetryAfter = retry
	return dec, nil
}
