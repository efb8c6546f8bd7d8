package domain

import (
	"context"
	"errors"
)

// ErrNoSlot indica que nenhuma vaga abriu dentro do prazo de espera.
var ErrNoSlot = errors.New("no free slot")

// SlotPool limita quantas requisições são processadas em paralelo.
//
// Acquire espera uma vaga até o ctx encerrar. O release devolvido pode ser
// chamado mais de uma vez; só a primeira chamada devolve a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), err error)
	InFlight() int
	Capacity() int
}
