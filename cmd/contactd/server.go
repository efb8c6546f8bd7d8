package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Gilmore369/tesis-profesorg/internal/config"
	"github.com/Gilmore369/tesis-profesorg/internal/contact"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit"
)

const shutdownTimeout = 10 * time.Second

// newMux registra o formulário em /api/contact (e /contact, caminho antigo do
// site) e o /healthz.
func newMux(contactHandler http.Handler, health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/contact", contactHandler)
	mux.Handle("/contact", contactHandler)
	mux.HandleFunc("GET /healthz", health)
	return mux
}

// buildHandler monta toda a cadeia HTTP. O chamador fecha `res`.
func buildHandler(ctx context.Context, cfg config.Config, logger *zap.Logger, res *resources) (http.Handler, error) {
	store, err := buildWindowStore(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	statsStores, stats, err := buildStats(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	guard := ratelimit.NewGuard(ratelimit.GuardOptions{
		Store:               store,
		Stats:               stats,
		TrustProxyHeaders:   cfg.RateLimit.TrustProxyHeaders,
		AddRateLimitHeaders: true,
		Logger:              logger.Named("ratelimit"),
	})

	contactHandler := contact.NewHandler(contact.Options{
		Limiter:      guard,
		Notifier:     notifier,
		Logger:       logger.Named("contact"),
		AllowOrigin:  cfg.Server.AllowOrigin,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	conc := ratelimit.NewConcurrencyLimiter(ratelimit.ConcurrencyOptions{
		Max:            cfg.Server.ConcurrencyMax,
		AcquireTimeout: cfg.Server.ConcurrencyTimeout,
		OnReject:       contact.WriteServiceUnavailable,
		Logger:         logger.Named("concurrency"),
	})

	h := conc.Wrap(newMux(contactHandler, healthHandler(statsStores, conc, logger)))
	return h, nil
}

// writeTimeout cobre o pior caso do envio: espera no throttle (até Timeout),
// todas as tentativas e o backoff linear entre elas (B·N(N-1)/2), com folga.
func writeTimeout(m config.MailConfig) time.Duration {
	n := time.Duration(m.MaxAttempts)
	if n < 1 {
		n = 1
	}
	throttle := time.Duration(0)
	if m.RatePerMinute > 0 {
		throttle = m.Timeout
	}
	return throttle + m.Timeout*n + m.RetryBackoff*n*(n-1)/2 + 15*time.Second
}

func serve(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res := &resources{}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
	}()

	h, err := buildHandler(ctx, cfg, logger, res)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(cfg.Mail),
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("contactd listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("backend", cfg.RateLimit.Backend),
		zap.Duration("window", cfg.Policy().Window),
		zap.Int("max", cfg.Policy().Max),
		zap.Bool("trustProxyHeaders", cfg.RateLimit.TrustProxyHeaders),
		zap.Bool("statsRedis", cfg.Stats.Enabled),
		zap.Bool("dryRun", cfg.Mail.DryRun),
		zap.Int("concurrencyMax", cfg.Server.ConcurrencyMax))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", cfg.Server.ListenAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
