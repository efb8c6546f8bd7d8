package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Gilmore369/tesis-profesorg/internal/contact"
)

func sampleSanitized() contact.Sanitized {
	return contact.Sanitized{
		Nombre:    "Ana Torres",
		Correo:    "ana@example.com",
		Mensaje:   "Necesito ayuda con mi tesis de maestría",
		Tipo:      contact.TipoTesis,
		Source:    contact.DefaultSource,
		Timestamp: time.Date(2026, 10, 18, 17, 4, 5, 0, time.UTC),
	}
}

func TestCompose_SubjectAndBody(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)

	subject, body := Compose(sampleSanitized(), lima)

	assert.Equal(t, "Nueva consulta de Ana Torres - tesis", subject)
	assert.Contains(t, body, "- Nombre: Ana Torres\n")
	assert.Contains(t, body, "- Email: ana@example.com\n")
	assert.Contains(t, body, "- Universidad: No especificada\n")
	assert.Contains(t, body, "- Carrera: No especificada\n")
	assert.Contains(t, body, "- Tipo de trabajo: tesis\n")
	assert.Contains(t, body, "Mensaje:\nNecesito ayuda con mi tesis de maestría\n")
	assert.Contains(t, body, "Enviado el: 18/10/2026, 12:04:05\n")
	assert.Contains(t, body, "Fuente: website_contact_form\n")
}

func TestCompose_OptionalFieldsPresent(t *testing.T) {
	s := sampleSanitized()
	s.Universidad = "UNMSM"
	s.Carrera = "Ingeniería"

	_, body := Compose(s, nil)

	assert.Contains(t, body, "- Universidad: UNMSM\n")
	assert.Contains(t, body, "- Carrera: Ingeniería\n")
	assert.NotContains(t, body, notSpecified)
	// nil location cai para UTC
	assert.Contains(t, body, "Enviado el: 18/10/2026, 17:04:05\n")
}

func TestCompose_Deterministic(t *testing.T) {
	s1, b1 := Compose(sampleSanitized(), time.UTC)
	s2, b2 := Compose(sampleSanitized(), time.UTC)
	assert.Equal(t, s1, s2)
	assert.Equal(t, b1, b2)
}
