package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientAddr_TrustedUsesFirstForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/api/contact", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", " 1.2.3.4 , 5.6.7.8")
	r.Header.Set("X-Real-IP", "9.9.9.9")

	assert.Equal(t, "1.2.3.4", ClientAddr(true)(r))
}

func TestClientAddr_TrustedFallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Real-IP", " 9.9.9.9 ")

	assert.Equal(t, "9.9.9.9", ClientAddr(true)(r))
}

func TestClientAddr_UntrustedIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	r.Header.Set("X-Real-IP", "9.9.9.9")

	assert.Equal(t, "10.0.0.9", ClientAddr(false)(r))
}

func TestClientAddr_RemoteAddrWithoutPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9"

	assert.Equal(t, "10.0.0.9", ClientAddr(true)(r))
}

func TestClientAddr_FallbackLoopback(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = ""

	assert.Equal(t, FallbackAddr, ClientAddr(true)(r))
}
