// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A regra da janela fixa (Policy.Apply) é pura: recebe o registro atual e o
// instante, devolve o novo registro e a decisão. Os stores de infra só cuidam
// de persistir o registro de forma atômica.
package domain
