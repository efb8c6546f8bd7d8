package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/Gilmore369/tesis-profesorg/internal/contact"
)

// ErrThrottled indica que o limite global de e-mails de saída foi atingido.
var ErrThrottled = errors.New("notify: outbound mail throttled")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From é o remetente; vazio usa Username.
	From string
	// To é a caixa operacional que recebe as consultas.
	To string
}

// DeliveryPolicy torna explícitos timeout, novas tentativas e o teto de envios.
type DeliveryPolicy struct {
	// Timeout vale para cada tentativa e para a espera por um token do throttle.
	Timeout time.Duration
	// MaxAttempts >= 1. 1 significa uma única tentativa, sem retry.
	MaxAttempts int
	// Backoff é multiplicado pelo número da tentativa (linear).
	Backoff time.Duration
	// RatePerMinute <= 0 desliga o throttle.
	RatePerMinute float64
	Burst         int
}

func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		Timeout:       15 * time.Second,
		MaxAttempts:   1,
		Backoff:       2 * time.Second,
		RatePerMinute: 30,
		Burst:         5,
	}
}

// Sender entrega uma mensagem pronta (por padrão Dialer.DialAndSend do gomail).
type Sender func(m *gomail.Message) error

type SMTPDispatcher struct {
	cfg     SMTPConfig
	policy  DeliveryPolicy
	loc     *time.Location
	send    Sender
	limiter *rate.Limiter
	logger  *zap.Logger
}

type Option func(*SMTPDispatcher)

func WithSender(s Sender) Option {
	return func(d *SMTPDispatcher) { d.send = s }
}

func WithLocation(loc *time.Location) Option {
	return func(d *SMTPDispatcher) { d.loc = loc }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *SMTPDispatcher) { d.logger = l }
}

func NewSMTPDispatcher(cfg SMTPConfig, policy DeliveryPolicy, opts ...Option) *SMTPDispatcher {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultDeliveryPolicy().Timeout
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	d := &SMTPDispatcher{
		cfg:    cfg,
		policy: policy,
		loc:    time.UTC,
		logger: zap.NewNop(),
	}
	if policy.RatePerMinute > 0 {
		burst := policy.Burst
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(policy.RatePerMinute/60), burst)
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.send == nil {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		d.send = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	}
	return d
}

// Message monta a mensagem gomail com Reply-To apontando para quem escreveu.
func (d *SMTPDispatcher) Message(s contact.Sanitized) *gomail.Message {
	subject, body := Compose(s, d.loc)

	m := gomail.NewMessage()
	m.SetHeader("From", d.cfg.From)
	m.SetHeader("To", d.cfg.To)
	m.SetAddressHeader("Reply-To", s.Correo, s.Nombre)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

// Notify envia um e-mail por chamada, respeitando o throttle, o timeout por
// tentativa e o número de tentativas da DeliveryPolicy.
func (d *SMTPDispatcher) Notify(ctx context.Context, s contact.Sanitized) error {
	if d.limiter != nil {
		wctx, cancel := context.WithTimeout(ctx, d.policy.Timeout)
		err := d.limiter.Wait(wctx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrThrottled, err)
		}
	}

	msg := d.Message(s)

	var err error
	attempt := 1
	for ; ; attempt++ {
		err = d.sendOnce(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt >= d.policy.MaxAttempts || ctx.Err() != nil {
			break
		}

		wait := d.policy.Backoff * time.Duration(attempt)
		d.logger.Warn("smtp send failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("send notification: %w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
	return fmt.Errorf("send notification after %d attempt(s): %w", attempt, err)
}

// sendOnce limita uma tentativa a policy.Timeout. O gomail não aceita
// context; ao estourar o prazo a goroutine termina sozinha quando o dial/envio
// desistir (o canal tem buffer).
func (d *SMTPDispatcher) sendOnce(ctx context.Context, m *gomail.Message) error {
	actx, cancel := context.WithTimeout(ctx, d.policy.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.send(m) }()

	select {
	case err := <-done:
		return err
	case <-actx.Done():
		return fmt.Errorf("smtp send: %w", actx.Err())
	}
}
