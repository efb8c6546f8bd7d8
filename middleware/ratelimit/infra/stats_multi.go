package infra

import (
	"context"
	"errors"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// MultiStatsStore repassa cada evento para todos os stores (ex.: memória para
// o /healthz e Redis para o painel). Nils são ignorados.
type MultiStatsStore []domain.StatsStore

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
