package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// FallbackAddr é usado quando a requisição não traz nenhum endereço.
const FallbackAddr = "127.0.0.1"

type KeyFunc func(r *http.Request) string

// ClientAddr resolve o endereço do cliente para o rate limit.
//
// Com trustProxy=true a ordem é: primeiro IP do X-Forwarded-For, X-Real-IP,
// host do RemoteAddr e, por fim, FallbackAddr. Com trustProxy=false os
// headers são ignorados.
func ClientAddr(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return ip
			}
		}

		remote := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
			return host
		}
		if remote != "" {
			return remote
		}
		return FallbackAddr
	}
}
