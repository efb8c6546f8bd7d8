// Package notify monta e entrega o e-mail operacional de cada envio do
// formulário de contato.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Gilmore369/tesis-profesorg/internal/contact"
)

// LocalTimeLayout imita o toLocaleString("es-PE") do site original.
const LocalTimeLayout = "02/01/2006, 15:04:05"

const notSpecified = "No especificada"

// Compose gera assunto e corpo em texto puro. O resultado depende só de `s` e `loc`.
func Compose(s contact.Sanitized, loc *time.Location) (subject, body string) {
	if loc == nil {
		loc = time.UTC
	}

	subject = fmt.Sprintf("Nueva consulta de %s - %s", s.Nombre, s.Tipo)

	var b strings.Builder
	b.WriteString("Nueva consulta desde el sitio web de El Profesor G\n\n")
	b.WriteString("Datos del contacto:\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", s.Nombre)
	fmt.Fprintf(&b, "- Email: %s\n", s.Correo)
	fmt.Fprintf(&b, "- Universidad: %s\n", orNotSpecified(s.Universidad))
	fmt.Fprintf(&b, "- Carrera: %s\n", orNotSpecified(s.Carrera))
	fmt.Fprintf(&b, "- Tipo de trabajo: %s\n\n", s.Tipo)
	b.WriteString("Mensaje:\n")
	b.WriteString(s.Mensaje)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Enviado el: %s\n", s.Timestamp.In(loc).Format(LocalTimeLayout))
	fmt.Fprintf(&b, "Fuente: %s\n", s.Source)

	return subject, b.String()
}

func orNotSpecified(v string) string {
	if v == "" {
		return notSpecified
	}
	return v
}
