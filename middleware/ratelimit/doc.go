// Package ratelimit é o adapter HTTP (net/http) do rate limit de envios e do
// limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e a regra da janela fixa (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: stores concretos (memória, bbolt, Redis), semáforo e estatísticas
//   - ratelimit (este pacote): extração do endereço do cliente, Guard e middlewares
//
// Fluxo no handler de contato:
//
//  1. Extrai o endereço do cliente (X-Forwarded-For / X-Real-IP / RemoteAddr)
//  2. Guard.Check chama a camada application e grava a estatística
//  3. Escreve os headers X-RateLimit-* (e Retry-After quando bloqueia)
//  4. O handler decide a resposta (429 com resetTime ou segue para a validação)
//
// Confiança nos headers de proxy: X-Forwarded-For e X-Real-IP só devem ser
// usados quando há um proxy terminador controlado na frente do serviço. Sem
// ele, o cliente escolhe o próprio endereço e escapa do limite.
package ratelimit
