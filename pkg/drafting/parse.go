package drafting

import (
	"regexp"
	"strings"
)

// ParsedDraft is the structured form of a model response.
type ParsedDraft struct {
	Subject string
	Body    string
	Notes   string
}

// The model is instructed to answer with **Asunto**, **Cuerpo** and
// **Notas internas** sections, but models drift: asterisks and colons are
// treated as optional.
var (
	subjectRe = regexp.MustCompile(`(?i)\*{0,2}\s*Asunto\s*:?\s*\*{0,2}\s*:?\s*(.+)`)
	bodyRe    = regexp.MustCompile(`(?is)\*{0,2}\s*Cuerpo\s*:?\s*\*{0,2}\s*:?\s*(.*?)(?:\*{0,2}\s*Notas internas|$)`)
	notesRe   = regexp.MustCompile(`(?is)\*{0,2}\s*Notas internas\s*:?\s*\*{0,2}\s*:?\s*(.*)$`)
	asuntoRe  = regexp.MustCompile(`(?i)\*{0,2}\s*Asunto\s*:?\s*\*{0,2}\s*:?.*\n?`)
)

// ParseDraftResponse splits a model response into subject, body and internal
// notes. A response missing the body marker falls back to everything after
// the subject line.
func ParseDraftResponse(text string) ParsedDraft {
	var p ParsedDraft

	if m := subjectRe.FindStringSubmatch(text); m != nil {
		// The subject is a single line.
		p.Subject = strings.TrimSpace(strings.SplitN(m[1], "\n", 2)[0])
	}

	if m := bodyRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		p.Body = strings.TrimSpace(m[1])
	} else {
		p.Body = strings.TrimSpace(asuntoRe.ReplaceAllString(text, ""))
	}

	if m := notesRe.FindStringSubmatch(text); m != nil {
		p.Notes = strings.TrimSpace(m[1])
	}

	return p
}
