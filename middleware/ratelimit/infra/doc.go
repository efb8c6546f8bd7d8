// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Stores de janela fixa (domain.WindowStore):
//   - MemoryStore: mapa com mutex e limpeza periódica; uma instância só.
//   - BoltStore: arquivo bbolt, sobrevive a reinícios de uma instância.
//   - RedisStore: script Lua atômico com expiração; compartilhado entre instâncias.
//
// Também: NewSlotPool (semáforo de x/sync para o limite de concorrência) e os
// StatsStore em memória, no Redis e o fan-out MultiStatsStore.
package infra
