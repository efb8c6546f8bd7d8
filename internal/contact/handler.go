package contact

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// DefaultMaxBodyBytes limita o corpo do POST.
const DefaultMaxBodyBytes = 64 << 10

// Notifier entrega a notificação de um envio válido.
type Notifier interface {
	Notify(ctx context.Context, s Sanitized) error
}

// Limiter decide se o cliente ainda pode enviar (ratelimit.Guard).
type Limiter interface {
	Check(w http.ResponseWriter, r *http.Request) (domain.Key, domain.Decision)
}

type Options struct {
	Limiter  Limiter
	Notifier Notifier
	Logger   *zap.Logger
	// AllowOrigin vai em Access-Control-Allow-Origin. Vazio usa "*".
	AllowOrigin  string
	MaxBodyBytes int64
	Now          func() time.Time
}

type Handler struct {
	limiter     Limiter
	notifier    Notifier
	logger      *zap.Logger
	allowOrigin string
	maxBody     int64
	now         func() time.Time
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		limiter:     opts.Limiter,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		allowOrigin: opts.AllowOrigin,
		maxBody:     opts.MaxBodyBytes,
		now:         opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.allowOrigin == "" {
		h.allowOrigin = "*"
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", h.allowOrigin)
	hdr.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")

	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	hdr.Set("X-Request-ID", reqID)
	log := h.logger.With(zap.String("request_id", reqID))

	// 1) método
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		hdr.Set("Allow", "POST, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, ErrorBody{Code: CodeMethodNotAllowed, Message: msgMethodNotAllowed})
		return
	}

	// 2) rate limit
	var client domain.Key
	if h.limiter != nil {
		key, dec := h.limiter.Check(w, r)
		client = key
		if !dec.Allowed {
			log.Info("contact submission rate limited",
				zap.String("client", string(key)),
				zap.Time("reset_at", dec.ResetAt))
			writeError(w, http.StatusTooManyRequests, ErrorBody{
				Code:      CodeRateLimitExceeded,
				Message:   msgRateLimited,
				ResetTime: dec.ResetAt.UnixMilli(),
			})
			return
		}
	}
	log = log.With(zap.String("client", string(client)))

	// 3) validação
	sub, err := DecodeSubmission(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		log.Debug("contact submission body rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, ErrorBody{
			Code:    CodeValidationError,
			Message: msgInvalid,
			Details: []string{msgBadPayload},
		})
		return
	}

	clean, err := Validate(sub, h.now())
	if err != nil {
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			verrs = ValidationErrors{{Message: msgBadPayload}}
		}
		log.Debug("contact submission invalid", zap.Strings("details", verrs.Messages()))
		writeError(w, http.StatusBadRequest, ErrorBody{
			Code:    CodeValidationError,
			Message: msgInvalid,
			Details: verrs.Messages(),
		})
		return
	}

	// 4) envio
	if h.notifier != nil {
		if err := h.notifier.Notify(r.Context(), clean); err != nil {
			log.Error("contact notification failed",
				zap.String("tipo", clean.Tipo),
				zap.String("source", clean.Source),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, ErrorBody{Code: CodeInternalError, Message: msgInternal})
			return
		}
	}

	// 5) sucesso
	log.Info("contact submission delivered",
		zap.String("tipo", clean.Tipo),
		zap.String("source", clean.Source))
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success:   true,
		Message:   msgSuccess,
		Timestamp: clean.ISOTimestamp(),
	})
}
