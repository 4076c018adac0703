package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMail_Plain(t *testing.T) {
	raw := "From: sender@example.com\r\nTo: ops@example.com\r\nSubject: =?UTF-8?B?UmVjbGFtYXRpb24=?=\r\n\r\nThe shipment was damaged.\r\n"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Reclamation", msg.Subject)
	assert.Equal(t, "sender@example.com", msg.From)
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, "The shipment was damaged.", msg.Body)
	assert.Equal(t, "Subject: Reclamation\n\nFrom: sender@example.com\n\nThe shipment was damaged.", msg.Render())
}

func TestParseMail_MultipartPrefersPlainText(t *testing.T) {
	raw := "From: a@b.com\r\n" +
		"Subject: Order\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>Order <b>42</b> confirmed</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Order 42 confirmed\r\n" +
		"--XYZ--\r\n"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Order 42 confirmed", msg.Body)
}

func TestParseMail_HTMLOnly(t *testing.T) {
	raw := "From: a@b.com\r\nContent-Type: text/html\r\n\r\n<html><body><p>Hello</p>\n<p>World</p></body></html>"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", msg.Body)
}

func TestParseMail_Base64Body(t *testing.T) {
	raw := "From: a@b.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"UGxlYXNlIHBheSBp\r\nbnZvaWNlIDQy\r\n"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Please pay invoice 42", msg.Body)
}

func TestParseMail_QuotedPrintableBody(t *testing.T) {
	raw := "From: a@b.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=C3=A9 order =\r\ncontinues\r\n"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Café order continues", msg.Body)
}

func TestParseMail_Base64Part(t *testing.T) {
	raw := "From: a@b.com\r\n" +
		"Content-Type: multipart/mixed; boundary=B1\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: BASE64\r\n" +
		"\r\n" +
		"T3JkZXIgNDIgc2hpcHBlZA==\r\n" +
		"--B1--\r\n"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Order 42 shipped", msg.Body)
}

func TestParseMail_Invalid(t *testing.T) {
	_, err := ParseMail([]byte("no headers here"))
	assert.Error(t, err)
}
