package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// ErrNoAttachments is returned for a delivery email without reports.
var ErrNoAttachments = errors.New("no attachments")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Envelope holds the addressing of a message.
type Envelope struct {
	From string
	To   []string
}

// Validate checks that sender and recipients parse as addresses.
func (e Envelope) Validate() error {
	if _, err := mail.ParseAddress(e.From); err != nil {
		return fmt.Errorf("%w: invalid sender %q: %w", common.ErrInvalidConfig, e.From, err)
	}
	if len(e.To) == 0 {
		return fmt.Errorf("%w: no recipients", common.ErrMissingConfig)
	}
	for _, to := range e.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("%w: invalid recipient %q: %w", common.ErrInvalidConfig, to, err)
		}
	}
	return nil
}

// BuildMessage renders a multipart/mixed message with text and HTML
// alternatives and every attachment base64 encoded.
func BuildMessage(env Envelope, email service.Email, now time.Time) ([]byte, error) {
	if len(email.Attachments) == 0 {
		return nil, fmt.Errorf("%w: %w", common.ErrEmailSend, ErrNoAttachments)
	}
	for _, path := range email.Attachments {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: attachment %s: %w", common.ErrEmailSend, path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: attachment %s is a directory", common.ErrEmailSend, path)
		}
	}

	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	headers := []struct{ key, value string }{
		{"From", env.From},
		{"To", strings.Join(env.To, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", email.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mixed.Boundary())},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	if err := writeAlternative(mixed, email); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrEmailSend, err)
	}

	for _, path := range email.Attachments {
		if err := writeAttachment(mixed, path); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrEmailSend, err)
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrEmailSend, err)
	}
	return buf.Bytes(), nil
}

func writeAlternative(mixed *multipart.Writer, email service.Email) error {
	var altBuf bytes.Buffer
	alt := multipart.NewWriter(&altBuf)

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", email.Body},
		{"text/html; charset=utf-8", email.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := alt.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return err
		}
		if err := writeBase64(w, []byte(p.body)); err != nil {
			return err
		}
	}
	if err := alt.Close(); err != nil {
		return err
	}

	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary())},
	})
	if err != nil {
		return err
	}
	_, err = w.Write(altBuf.Bytes())
	return err
}

func writeAttachment(mixed *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read attachment %s: %w", path, err)
	}

	name := filepath.Base(path)
	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("%s; name=%q", attachmentType(name), name)},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
	})
	if err != nil {
		return err
	}
	return writeBase64(w, data)
}

func attachmentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".xlsx" {
		return xlsxContentType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// writeBase64 writes data base64 encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := fmt.Fprintf(w, "%s\r\n", encoded)
	return err
}
