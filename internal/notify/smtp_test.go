package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

var errRelay = errors.New("relay unavailable")

type fakeSender struct {
	mu    sync.Mutex
	fails int
	calls int
	last  *gomail.Message
}

func (f *fakeSender) send(m *gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = m
	if f.calls <= f.fails {
		return errRelay
	}
	return nil
}

func (f *fakeSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() SMTPConfig {
	return SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "bot@example.com",
		Password: "secret",
		To:       "contacto@example.com",
	}
}

func fastPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		Timeout:     time.Second,
		MaxAttempts: 1,
		Backoff:     time.Millisecond,
	}
}

func TestSMTPDispatcher_Headers(t *testing.T) {
	f := &fakeSender{}
	d := NewSMTPDispatcher(testConfig(), fastPolicy(), WithSender(f.send))

	require.NoError(t, d.Notify(context.Background(), sampleSanitized()))
	require.Equal(t, 1, f.Calls())

	m := f.last
	// From vazio cai para o usuário SMTP
	assert.Equal(t, []string{"bot@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"contacto@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Nueva consulta de Ana Torres - tesis"}, m.GetHeader("Subject"))

	replyTo := m.GetHeader("Reply-To")
	require.Len(t, replyTo, 1)
	assert.Contains(t, replyTo[0], "ana@example.com")
}

func TestSMTPDispatcher_ExplicitFrom(t *testing.T) {
	f := &fakeSender{}
	cfg := testConfig()
	cfg.From = "no-reply@example.com"
	d := NewSMTPDispatcher(cfg, fastPolicy(), WithSender(f.send))

	require.NoError(t, d.Notify(context.Background(), sampleSanitized()))
	assert.Equal(t, []string{"no-reply@example.com"}, f.last.GetHeader("From"))
}

func TestSMTPDispatcher_RetriesThenSucceeds(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := &fakeSender{fails: 1}
	p := fastPolicy()
	p.MaxAttempts = 3
	d := NewSMTPDispatcher(testConfig(), p, WithSender(f.send), WithLogger(zap.New(core)))

	require.NoError(t, d.Notify(context.Background(), sampleSanitized()))
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, 1, logs.FilterMessage("smtp send failed, retrying").Len())
}

func TestSMTPDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	f := &fakeSender{fails: 100}
	p := fastPolicy()
	p.MaxAttempts = 3
	d := NewSMTPDispatcher(testConfig(), p, WithSender(f.send))

	err := d.Notify(context.Background(), sampleSanitized())
	require.Error(t, err)
	assert.ErrorIs(t, err, errRelay)
	assert.Equal(t, 3, f.Calls())
}

func TestSMTPDispatcher_SingleAttemptByDefault(t *testing.T) {
	f := &fakeSender{fails: 100}
	p := fastPolicy()
	p.MaxAttempts = 0
	d := NewSMTPDispatcher(testConfig(), p, WithSender(f.send))

	require.Error(t, d.Notify(context.Background(), sampleSanitized()))
	assert.Equal(t, 1, f.Calls())
}

func TestSMTPDispatcher_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	blocking := func(*gomail.Message) error {
		<-release
		return nil
	}
	p := fastPolicy()
	p.Timeout = 20 * time.Millisecond
	d := NewSMTPDispatcher(testConfig(), p, WithSender(blocking))

	start := time.Now()
	err := d.Notify(context.Background(), sampleSanitized())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSMTPDispatcher_Throttle(t *testing.T) {
	f := &fakeSender{}
	p := fastPolicy()
	p.Timeout = 50 * time.Millisecond
	p.RatePerMinute = 0.01 // próximo token só daqui a ~100min
	p.Burst = 1
	d := NewSMTPDispatcher(testConfig(), p, WithSender(f.send))

	require.NoError(t, d.Notify(context.Background(), sampleSanitized()))

	err := d.Notify(context.Background(), sampleSanitized())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, 1, f.Calls())
}

func TestSMTPDispatcher_CanceledContextStopsRetries(t *testing.T) {
	f := &fakeSender{fails: 100}
	p := fastPolicy()
	p.MaxAttempts = 5
	p.Backoff = time.Hour
	d := NewSMTPDispatcher(testConfig(), p, WithSender(f.send))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := d.Notify(ctx, sampleSanitized())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.Calls())
}
