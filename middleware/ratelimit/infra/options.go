package infra

import "time"

type storeOptions struct {
	now          func() time.Time
	cleanupEvery time.Duration
}

// StoreOption ajusta MemoryStore e BoltStore.
type StoreOption func(*storeOptions)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) { o.now = now }
}

// WithCleanupEvery define o intervalo do janitor. Zero desliga.
func WithCleanupEvery(d time.Duration) StoreOption {
	return func(o *storeOptions) { o.cleanupEvery = d }
}

func newStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{now: time.Now, cleanupEvery: 2 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}

// startJanitor roda `fn` a cada `every` até o ctx encerrar.
func startJanitor(ctx DoneContext, every time.Duration, fn func()) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}
