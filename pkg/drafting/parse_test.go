package drafting_test

import (
	"testing"

	"github.com/digpatho/crm-backend/pkg/drafting"
)

func TestParseDraftResponse_WellFormed(t *testing.T) {
	text := "**Asunto:** Seguimiento validación HER2\n\n" +
		"**Cuerpo:**\nEstimado Dr. Gómez:\n\nLe escribo para retomar la conversación.\n\nSaludos\n\n" +
		"**Notas internas:** Mencionó interés en el piloto."

	p := drafting.ParseDraftResponse(text)

	if p.Subject != "Seguimiento validación HER2" {
		t.Fatalf("subject = %q", p.Subject)
	}
	if p.Body == "" || p.Body[:len("Estimado")] != "Estimado" {
		t.Fatalf("body = %q", p.Body)
	}
	if p.Notes != "Mencionó interés en el piloto." {
		t.Fatalf("notes = %q", p.Notes)
	}
}

func TestParseDraftResponse_WithoutAsterisks(t *testing.T) {
	text := "Asunto: Hola\nCuerpo: Texto del mensaje\nNotas internas: nada"

	p := drafting.ParseDraftResponse(text)

	if p.Subject != "Hola" {
		t.Fatalf("subject = %q", p.Subject)
	}
	if p.Body != "Texto del mensaje" {
		t.Fatalf("body = %q", p.Body)
	}
	if p.Notes != "nada" {
		t.Fatalf("notes = %q", p.Notes)
	}
}

func TestParseDraftResponse_MissingBodyMarkerFallsBack(t *testing.T) {
	text := "**Asunto:** Hola\n\nEstimado Luis,\n\neste es el mensaje completo."

	p := drafting.ParseDraftResponse(text)

	if p.Subject != "Hola" {
		t.Fatalf("subject = %q", p.Subject)
	}
	if p.Body != "Estimado Luis,\n\neste es el mensaje completo." {
		t.Fatalf("body = %q", p.Body)
	}
	if p.Notes != "" {
		t.Fatalf("notes should be empty, got %q", p.Notes)
	}
}

func TestParseDraftResponse_NoMarkersAtAll(t *testing.T) {
	text := "Solo un párrafo sin formato alguno."

	p := drafting.ParseDraftResponse(text)

	if p.Subject != "" {
		t.Fatalf("subject should be empty, got %q", p.Subject)
	}
	if p.Body != text {
		t.Fatalf("body should be the whole text, got %q", p.Body)
	}
}

func TestParseDraftResponse_NotesExcludedFromBody(t *testing.T) {
	text := "Asunto: A\nCuerpo: el cuerpo\nNotas internas: secreto"

	p := drafting.ParseDraftResponse(text)

	if p.Body != "el cuerpo" {
		t.Fatalf("body leaked notes: %q", p.Body)
	}
}
