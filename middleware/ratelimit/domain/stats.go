package domain

import (
	"context"
	"strings"
	"time"
)

// StatsEvent registra uma decisão do limitador de envios de contato.
//
// Route é "METHOD /path" e Key o endereço do cliente. Cuidado com a
// cardinalidade ao guardar Key por cliente (ver WithKeyLimit e WithStatsTrackKeys).
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// Route devolve "METHOD /path" sem espaços sobrando.
func (e StatsEvent) Route() string {
	return strings.TrimSpace(strings.TrimSpace(e.Method) + " " + strings.TrimSpace(e.Path))
}

// StatsStore persiste contadores de permitidas/bloqueadas.
//
// Quem chama trata erro como best-effort (nunca derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
