package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// envReader sobrescreve campos com variáveis de ambiente. Variável ausente ou
// vazia mantém o valor atual; valor que não converte vira erro.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(k, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, k, v, err))
}

func (e *envReader) str(k string, dst *string) {
	if v, ok := e.lookup(k); ok {
		*dst = v
	}
}

func (e *envReader) int(k string, dst *int) {
	v, ok := e.lookup(k)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, err)
		return
	}
	*dst = i
}

func (e *envReader) int64(k string, dst *int64) {
	v, ok := e.lookup(k)
	if !ok {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(k, v, err)
		return
	}
	*dst = i
}

func (e *envReader) float(k string, dst *float64) {
	v, ok := e.lookup(k)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, err)
		return
	}
	*dst = f
}

func (e *envReader) bool(k string, dst *bool) {
	v, ok := e.lookup(k)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(k string, dst *time.Duration) {
	v, ok := e.lookup(k)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, err)
		return
	}
	*dst = d
}

func (e *envReader) err() error { return errors.Join(e.errs...) }
