package contact

import (
	"encoding/json"
	"net/http"
)

// Códigos de erro do envelope JSON.
const (
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Mensagens mostradas ao visitante do site.
const (
	msgMethodNotAllowed   = "Método no permitido"
	msgRateLimited        = "Demasiadas solicitudes. Por favor, intenta más tarde."
	msgInvalid            = "Datos inválidos"
	msgBadPayload         = "El cuerpo de la solicitud debe ser un objeto JSON válido"
	msgInternal           = "Error interno del servidor. Por favor, intenta más tarde o contáctanos por WhatsApp."
	msgServiceUnavailable = "El servicio está ocupado. Por favor, intenta nuevamente en unos segundos."
	msgSuccess            = "Mensaje enviado correctamente. Nos pondremos en contacto contigo pronto."
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ResetTime é o fim da janela em milissegundos Unix (só no 429).
	ResetTime int64    `json:"resetTime,omitempty"`
	Details   []string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type SuccessResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body ErrorBody) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: body})
}

// WriteServiceUnavailable responde 503 no mesmo envelope do handler; usado
// pelo limite de concorrência.
func WriteServiceUnavailable(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusServiceUnavailable, ErrorBody{
		Code:    CodeServiceUnavailable,
		Message: msgServiceUnavailable,
	})
}
