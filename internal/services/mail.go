package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// MailSourceType tags documents that arrived as mailbox messages.
const MailSourceType = "automated_email_ingestion"

// MailMessage is a decoded mailbox message.
type MailMessage struct {
	Subject string
	From    string
	To      string
	Body    string
}

// ParseMail decodes an RFC 5322 message. Encoded-word headers are decoded and
// for multipart bodies text/plain is preferred over text/html.
func ParseMail(data []byte) (*MailMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail message: %w", err)
	}
	body, err := mailBody(msg.Header.Get("Content-Type"), transferDecoder(msg.Header.Get("Content-Transfer-Encoding"), msg.Body))
	if err != nil {
		return nil, err
	}
	return &MailMessage{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    decodeHeader(msg.Header.Get("From")),
		To:      decodeHeader(msg.Header.Get("To")),
		Body:    strings.TrimSpace(body),
	}, nil
}

// Render produces the text handed to the dispatcher.
func (m *MailMessage) Render() string {
	return fmt.Sprintf("Subject: %s\n\nFrom: %s\n\n%s", m.Subject, m.From, m.Body)
}

func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

func mailBody(contentType string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(r, params["boundary"]), nil
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read mail body: %w", err)
	}
	if mediaType == "text/html" {
		return stripTags(string(body)), nil
	}
	return string(body), nil
}

func multipartBody(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}
	var plain, html []string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		mediaType, params, perr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if perr != nil {
			mediaType = "text/plain"
		}
		// NextPart already decodes quoted-printable parts.
		content, rerr := io.ReadAll(transferDecoder(part.Header.Get("Content-Transfer-Encoding"), part))
		_ = part.Close()
		if rerr != nil || part.FileName() != "" {
			continue
		}
		switch {
		case mediaType == "text/plain":
			plain = append(plain, string(content))
		case mediaType == "text/html":
			html = append(html, stripTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested := multipartBody(bytes.NewReader(content), params["boundary"]); nested != "" {
				plain = append(plain, nested)
			}
		}
	}
	if len(plain) > 0 {
		return strings.Join(plain, "\n")
	}
	return strings.Join(html, "\n")
}

// transferDecoder undoes a base64 or quoted-printable Content-Transfer-Encoding.
func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
