package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Tipos de trabalho aceitos no campo "tipo".
const (
	TipoTesis    = "tesis"
	TipoInforme  = "informe"
	TipoArticulo = "articulo"
	TipoOtro     = "otro"
)

const (
	DefaultSource = "website_contact_form"

	MaxFieldLen   = 100
	MaxMessageLen = 1000
	MinNameLen    = 2
	MinMessageLen = 10

	// TimestampLayout é o ISO-8601 em UTC com milissegundos (2026-10-18T12:00:00.000Z).
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var validTipos = map[string]struct{}{
	TipoTesis:    {},
	TipoInforme:  {},
	TipoArticulo: {},
	TipoOtro:     {},
}

// emailPattern recusa qualquer espaço, inclusive os Unicode (NBSP, em space,
// separadores de linha) e o BOM; o \s do RE2 só cobre ASCII.
var emailPattern = regexp.MustCompile(`^[^\s\p{Z}\x{FEFF}@]+@[^\s\p{Z}\x{FEFF}@]+\.[^\s\p{Z}\x{FEFF}@]+$`)

// Submission é o formulário como chegou do cliente. Campos ausentes ou que
// não são string ficam vazios.
type Submission struct {
	Nombre      string
	Correo      string
	Mensaje     string
	Universidad string
	Carrera     string
	Tipo        string
	Source      string
}

// ErrBadPayload indica um corpo que não é um objeto JSON.
var ErrBadPayload = errors.New("contact: body is not a JSON object")

// DecodeSubmission lê um objeto JSON arbitrário e extrai os campos do formulário.
func DecodeSubmission(r io.Reader) (Submission, error) {
	var raw map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if raw == nil {
		return Submission{}, ErrBadPayload
	}
	return SubmissionFromMap(raw), nil
}

// SubmissionFromMap converte um mapa sem tipo em Submission.
func SubmissionFromMap(m map[string]any) Submission {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Submission{
		Nombre:      str("nombre"),
		Correo:      str("correo"),
		Mensaje:     str("mensaje"),
		Universidad: str("universidad"),
		Carrera:     str("carrera"),
		Tipo:        str("tipo"),
		Source:      str("source"),
	}
}

// Sanitized é o envio já validado, pronto para notificar.
type Sanitized struct {
	Nombre      string    `json:"nombre"`
	Correo      string    `json:"correo"`
	Mensaje     string    `json:"mensaje"`
	Universidad string    `json:"universidad"`
	Carrera     string    `json:"carrera"`
	Tipo        string    `json:"tipo"`
	Timestamp   time.Time `json:"-"`
	Source      string    `json:"source"`
}

// ISOTimestamp formata Timestamp com TimestampLayout.
func (s Sanitized) ISOTimestamp() string {
	return s.Timestamp.UTC().Format(TimestampLayout)
}

// FieldError é uma violação de um campo.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors lista todas as violações encontradas num envio.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	return "invalid submission: " + strings.Join(v.Messages(), "; ")
}

// Messages devolve só as mensagens, na ordem dos campos.
func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, fe := range v {
		out[i] = fe.Message
	}
	return out
}

// Has informa se algum erro se refere a `field`.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate aplica todas as regras ao envio e devolve ou o registro sanitizado
// completo (err == nil) ou um ValidationErrors com todas as violações e um
// Sanitized vazio. Nenhuma regra interrompe as outras.
func Validate(sub Submission, now time.Time) (Sanitized, error) {
	var (
		errs ValidationErrors
		out  Sanitized
	)

	nombre := strings.TrimSpace(sub.Nombre)
	if utf8.RuneCountInString(nombre) < MinNameLen {
		errs = append(errs, FieldError{Field: "nombre", Message: "El nombre debe tener al menos 2 caracteres"})
	} else {
		out.Nombre = truncate(nombre, MaxFieldLen)
	}

	correo := strings.TrimSpace(sub.Correo)
	if !emailPattern.MatchString(correo) {
		errs = append(errs, FieldError{Field: "correo", Message: "Por favor, ingresa un email válido"})
	} else {
		out.Correo = truncate(strings.ToLower(correo), MaxFieldLen)
	}

	mensaje := strings.TrimSpace(sub.Mensaje)
	if utf8.RuneCountInString(mensaje) < MinMessageLen {
		errs = append(errs, FieldError{Field: "mensaje", Message: "El mensaje debe tener al menos 10 caracteres"})
	} else {
		out.Mensaje = truncate(mensaje, MaxMessageLen)
	}

	if len(errs) > 0 {
		return Sanitized{}, errs
	}

	out.Universidad = truncate(strings.TrimSpace(sub.Universidad), MaxFieldLen)
	out.Carrera = truncate(strings.TrimSpace(sub.Carrera), MaxFieldLen)

	out.Tipo = TipoOtro
	if _, ok := validTipos[sub.Tipo]; ok {
		out.Tipo = sub.Tipo
	}

	out.Source = truncate(strings.TrimSpace(sub.Source), MaxFieldLen)
	if out.Source == "" {
		out.Source = DefaultSource
	}

	out.Timestamp = now.UTC()
	return out, nil
}

// truncate corta em `n` caracteres (runes), não bytes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
