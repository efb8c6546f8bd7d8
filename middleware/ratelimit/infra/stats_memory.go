package infra

import (
	"context"
	"sync"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// OtherKey agrupa os clientes que passaram do limite de chaves rastreadas.
const OtherKey = "_other"

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c Counters) Total() int64 { return c.Allowed + c.Denied }

func bump(c Counters, allowed bool) Counters {
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	return c
}

// StatsSnapshot é a foto dos contadores servida no /healthz.
type StatsSnapshot struct {
	Total   Counters            `json:"total"`
	ByRoute map[string]Counters `json:"byRoute"`
	ByKey   map[string]Counters `json:"byKey,omitempty"`
}

// MemoryStatsStore conta as decisões do limitador no próprio processo.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	// 0 desliga a contagem por cliente
	keyLimit int
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithKeyLimit liga a contagem por cliente para até `n` endereços; os
// demais caem em OtherKey.
func WithKeyLimit(n int) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.keyLimit = n }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{byRoute: make(map[string]Counters)}
	for _, opt := range opts {
		opt(s)
	}
	if s.keyLimit > 0 {
		s.byKey = make(map[string]Counters)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Route()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = bump(s.total, ev.Allowed)
	s.byRoute[route] = bump(s.byRoute[route], ev.Allowed)

	if s.byKey != nil {
		k := string(ev.Key)
		if _, seen := s.byKey[k]; !seen && len(s.byKey) >= s.keyLimit {
			k = OtherKey
		}
		s.byKey[k] = bump(s.byKey[k], ev.Allowed)
	}
	return nil
}

// Snapshot copia os contadores; o chamador pode alterar o resultado.
func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Total:   s.total,
		ByRoute: make(map[string]Counters, len(s.byRoute)),
	}
	for k, v := range s.byRoute {
		snap.ByRoute[k] = v
	}
	if s.byKey != nil {
		snap.ByKey = make(map[string]Counters, len(s.byKey))
		for k, v := range s.byKey {
			snap.ByKey[k] = v
		}
	}
	return snap
}
