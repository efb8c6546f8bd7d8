package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/internal/contact"
)

// LogDispatcher só escreve a notificação no log (modo dry-run).
type LogDispatcher struct {
	Logger   *zap.Logger
	To       string
	Location *time.Location
}

func (d LogDispatcher) Notify(_ context.Context, s contact.Sanitized) error {
	subject, body := Compose(s, d.Location)
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("dry-run notification",
		zap.String("to", d.To),
		zap.String("reply_to", s.Correo),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
