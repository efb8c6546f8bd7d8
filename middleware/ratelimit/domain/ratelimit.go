package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

const (
	DefaultWindow = 15 * time.Minute
	DefaultMax    = 5
)

// Key identifica o cliente limitado (normalmente o endereço IP).
type Key string

// Policy descreve a janela fixa: no máximo Max requisições aceitas por Window.
type Policy struct {
	Window time.Duration
	Max    int
}

// DefaultPolicy devolve 5 requisições a cada 15 minutos.
func DefaultPolicy() Policy {
	return Policy{Window: DefaultWindow, Max: DefaultMax}
}

// Normalize substitui valores não positivos pelos padrões.
func (p Policy) Normalize() Policy {
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	if p.Max <= 0 {
		p.Max = DefaultMax
	}
	return p
}

// Record é o estado de uma chave dentro da janela corrente.
type Record struct {
	Count   int
	ResetAt time.Time
}

// Expired informa se a janela do registro já passou em `now`.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ResetAt)
}

type Decision struct {
	Allowed bool
	// Remaining é quantas requisições ainda cabem na janela.
	Remaining int
	// ResetAt é o instante em que a janela atual termina.
	ResetAt time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Apply aplica uma requisição ao registro `rec` (found=false quando a chave
// nunca foi vista) e devolve o registro atualizado e a decisão.
//
// Quando bloqueia, o registro volta inalterado: Count nunca passa de Max.
func (p Policy) Apply(rec Record, found bool, now time.Time) (Record, Decision) {
	p = p.Normalize()

	if !found || rec.Expired(now) {
		next := Record{Count: 1, ResetAt: now.Add(p.Window)}
		return next, Decision{Allowed: true, Remaining: p.Max - 1, ResetAt: next.ResetAt}
	}

	if rec.Count < p.Max {
		rec.Count++
		return rec, Decision{Allowed: true, Remaining: p.Max - rec.Count, ResetAt: rec.ResetAt}
	}

	return rec, Decision{Allowed: false, Remaining: 0, ResetAt: rec.ResetAt}
}

// WindowStore verifica e incrementa o contador de uma chave numa única
// operação atômica (memória com mutex, transação bbolt, script no Redis).
type WindowStore interface {
	CheckAndIncrement(ctx context.Context, key Key) (Decision, error)
}
