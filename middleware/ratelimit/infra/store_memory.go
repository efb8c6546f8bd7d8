package infra

import (
	"context"
	"sync"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// MemoryStore guarda as janelas por chave em memória.
//
// Serve para uma instância só (desenvolvimento, testes, deploy único): o
// estado se perde ao reiniciar e não é compartilhado entre processos.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[domain.Key]domain.Record
	policy  domain.Policy
	opts    storeOptions
}

func NewMemoryStore(policy domain.Policy, opts ...StoreOption) *MemoryStore {
	return &MemoryStore{
		entries: make(map[domain.Key]domain.Record),
		policy:  policy.Normalize(),
		opts:    newStoreOptions(opts),
	}
}

func (s *MemoryStore) Policy() domain.Policy { return s.policy }

// CheckAndIncrement implementa domain.WindowStore.
func (s *MemoryStore) CheckAndIncrement(_ context.Context, key domain.Key) (domain.Decision, error) {
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.entries[key]
	next, dec := s.policy.Apply(rec, found, now)
	if dec.Allowed {
		s.entries[key] = next
	}
	return dec, nil
}

// Len devolve quantas chaves estão guardadas.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove as chaves cuja janela já terminou.
func (s *MemoryStore) Cleanup() {
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.entries {
		if rec.Expired(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa janelas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.opts.cleanupEvery, s.Cleanup)
}
