package contact

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validateNow = time.Date(2026, 10, 18, 17, 4, 5, 123e6, time.FixedZone("PET", -5*3600))

func validSubmission() Submission {
	return Submission{
		Nombre:  "Ana Lopez",
		Correo:  "ana@test.com",
		Mensaje: "Necesito ayuda con mi tesis de titulación.",
	}
}

func validationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	return verrs
}

func TestValidate_AcceptsMinimalSubmissionWithDefaults(t *testing.T) {
	got, err := Validate(validSubmission(), validateNow)
	require.NoError(t, err)

	assert.Equal(t, "Ana Lopez", got.Nombre)
	assert.Equal(t, "ana@test.com", got.Correo)
	assert.Equal(t, "", got.Universidad)
	assert.Equal(t, "", got.Carrera)
	assert.Equal(t, TipoOtro, got.Tipo)
	assert.Equal(t, DefaultSource, got.Source)
	assert.Equal(t, "2026-10-18T22:04:05.123Z", got.ISOTimestamp())
}

func TestValidate_ShortOrMissingName(t *testing.T) {
	for _, name := range []string{"", " ", "A", "  B  "} {
		sub := validSubmission()
		sub.Nombre = name

		got, err := Validate(sub, validateNow)
		verrs := validationErrors(t, err)
		assert.True(t, verrs.Has("nombre"), "name %q", name)
		assert.Len(t, verrs, 1)
		assert.Empty(t, got.Nombre)
	}
}

func TestValidate_Email(t *testing.T) {
	rejected := []string{"", "ana", "ana@test", "ana@@test.com", "an a@test.com", "@test.com", "ana@.", "ana@test."}
	for _, email := range rejected {
		sub := validSubmission()
		sub.Correo = email
		_, err := Validate(sub, validateNow)
		verrs := validationErrors(t, err)
		assert.True(t, verrs.Has("correo"), "email %q should be rejected", email)
	}

	unicodeSpaces := []string{
		"ana\u00a0x@test.com",
		"ana@te\u2003st.com",
		"ana@test.c\u2028om",
		"ana\ufeffx@test.com",
		"ana@test\u3000.com",
	}
	for _, email := range unicodeSpaces {
		sub := validSubmission()
		sub.Correo = email
		_, err := Validate(sub, validateNow)
		verrs := validationErrors(t, err)
		assert.True(t, verrs.Has("correo"), "email %q should be rejected", email)
	}

	accepted := map[string]string{
		"  Ana.Lopez@Test.COM ": "ana.lopez@test.com",
		"x@y.pe":                "x@y.pe",
		"ALUMNO@UNI.EDU.PE":     "alumno@uni.edu.pe",
	}
	for in, want := range accepted {
		sub := validSubmission()
		sub.Correo = in
		got, err := Validate(sub, validateNow)
		require.NoError(t, err, "email %q", in)
		assert.Equal(t, want, got.Correo)
	}
}

func TestValidate_ShortMessage(t *testing.T) {
	sub := validSubmission()
	sub.Mensaje = "  corto   "

	_, err := Validate(sub, validateNow)
	verrs := validationErrors(t, err)
	assert.True(t, verrs.Has("mensaje"))
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	_, err := Validate(Submission{Nombre: "A", Correo: "bad", Mensaje: "hola"}, validateNow)
	verrs := validationErrors(t, err)

	require.Len(t, verrs, 3)
	assert.Equal(t, []string{
		"El nombre debe tener al menos 2 caracteres",
		"Por favor, ingresa un email válido",
		"El mensaje debe tener al menos 10 caracteres",
	}, verrs.Messages())
	assert.Contains(t, err.Error(), "invalid submission")
}

func TestValidate_TruncatesLongFields(t *testing.T) {
	sub := validSubmission()
	sub.Universidad = strings.Repeat("u", 300)
	sub.Carrera = "  " + strings.Repeat("ñ", 150) + "  "
	sub.Nombre = strings.Repeat("n", 120)
	sub.Mensaje = strings.Repeat("m", 1500)

	got, err := Validate(sub, validateNow)
	require.NoError(t, err)

	assert.Len(t, got.Universidad, 100)
	assert.Equal(t, 100, utf8.RuneCountInString(got.Carrera))
	assert.Len(t, got.Nombre, 100)
	assert.Len(t, got.Mensaje, 1000)
}

func TestValidate_Tipo(t *testing.T) {
	for in, want := range map[string]string{
		"tesis":    TipoTesis,
		"informe":  TipoInforme,
		"articulo": TipoArticulo,
		"otro":     TipoOtro,
		"TESIS":    TipoOtro,
		"":         TipoOtro,
		"hack":     TipoOtro,
	} {
		sub := validSubmission()
		sub.Tipo = in
		got, err := Validate(sub, validateNow)
		require.NoError(t, err)
		assert.Equal(t, want, got.Tipo, "tipo %q", in)
	}
}

func TestValidate_SourcePassThrough(t *testing.T) {
	sub := validSubmission()
	sub.Source = "landing_campaign"

	got, err := Validate(sub, validateNow)
	require.NoError(t, err)
	assert.Equal(t, "landing_campaign", got.Source)
}

func TestValidate_SourceTrimmedAndCapped(t *testing.T) {
	sub := validSubmission()
	sub.Source = "  " + strings.Repeat("s", MaxFieldLen+50) + " "

	got, err := Validate(sub, validateNow)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("s", MaxFieldLen), got.Source)

	sub.Source = "   "
	got, err = Validate(sub, validateNow)
	require.NoError(t, err)
	assert.Equal(t, DefaultSource, got.Source)
}

func TestDecodeSubmission(t *testing.T) {
	sub, err := DecodeSubmission(strings.NewReader(`{"nombre":"Ana","correo":42,"tipo":"tesis","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "Ana", sub.Nombre)
	assert.Empty(t, sub.Correo, "non-string values are treated as absent")
	assert.Equal(t, "tesis", sub.Tipo)

	for _, body := range []string{``, `not json`, `null`, `[1,2]`, `"text"`} {
		_, err := DecodeSubmission(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrBadPayload, "body %q", body)
	}
}
