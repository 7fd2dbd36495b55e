package mailer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"

	"github.com/Abraxas-365/manifesto/pkg/notifx"
)

// BuildRaw renders msg into the base64url "raw" payload the provider's send
// endpoint expects. It is a pure function: no network, no persistence, and
// deterministic output (the multipart boundary is derived from the recipient
// and subject rather than randomness).
//
// The signature, when present, is appended to the text body as a classic
// "--" separated block. An attachment turns the message into multipart/mixed
// with base64 binary parts; otherwise a single text/plain part is emitted.
func BuildRaw(msg notifx.EmailMessage, signature string) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	body := msg.TextBody
	if signature != "" {
		body += "\n\n--\n" + signature
	}

	headers := []string{
		"From: " + msg.From,
		"To: " + strings.Join(msg.To, ", "),
	}
	if len(msg.CC) > 0 {
		headers = append(headers, "Cc: "+strings.Join(msg.CC, ", "))
	}
	headers = append(headers,
		"Subject: "+mime.BEncoding.Encode("UTF-8", msg.Subject),
		"MIME-Version: 1.0",
	)

	var wire string
	if len(msg.Attachments) > 0 {
		wire = multipartBody(headers, body, msg)
	} else {
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
		wire = strings.Join(headers, "\r\n") + "\r\n\r\n" + body
	}

	return base64.RawURLEncoding.EncodeToString([]byte(wire)), nil
}

func validate(msg notifx.EmailMessage) error {
	if len(msg.To) == 0 || !strings.Contains(msg.To[0], "@") {
		return mailerErrors.New(ErrBuildFailed).WithDetail("reason", "missing or malformed recipient")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return mailerErrors.New(ErrBuildFailed).WithDetail("reason", "empty subject")
	}
	if strings.TrimSpace(msg.TextBody) == "" {
		return mailerErrors.New(ErrBuildFailed).WithDetail("reason", "empty body")
	}
	return nil
}

func multipartBody(headers []string, body string, msg notifx.EmailMessage) string {
	boundary := boundaryFor(msg)
	headers = append(headers, fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", boundary))

	var b strings.Builder
	b.WriteString(strings.Join(headers, "\r\n"))
	b.WriteString("\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString([]byte(body)))
	b.WriteString("\r\n")

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(fmt.Sprintf("Content-Type: %s; name=%q\r\n", contentType, att.Filename))
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", att.Filename))
		b.WriteString(base64.StdEncoding.EncodeToString(att.Data))
		b.WriteString("\r\n")
	}

	b.WriteString("--" + boundary + "--")
	return b.String()
}

func boundaryFor(msg notifx.EmailMessage) string {
	sum := sha256.Sum256([]byte(msg.To[0] + "\x00" + msg.Subject))
	return "=_dp_" + hex.EncodeToString(sum[:])[:24]
}
