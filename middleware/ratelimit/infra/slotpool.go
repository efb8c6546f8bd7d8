package infra

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

type weightedPool struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
}

// NewSlotPool cria um SlotPool com `capacity` vagas.
func NewSlotPool(capacity int) domain.SlotPool {
	return &weightedPool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

func (p *weightedPool) Acquire(ctx context.Context) (func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.inFlight.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
		})
	}, nil
}

func (p *weightedPool) InFlight() int { return int(p.inFlight.Load()) }

func (p *weightedPool) Capacity() int { return p.capacity }
