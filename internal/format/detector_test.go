package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		sample   Sample
		filename string
		want     models.Format
	}{
		{"record in memory", Sample{Record: map[string]any{}}, "", models.FormatStructured},
		{"json object text", Sample{Text: `{"invoice_id": "I1"}`}, "", models.FormatStructured},
		{"json wins over pdf hint", Sample{Text: `{"a": 1}`}, "scan.pdf", models.FormatStructured},
		{"json array is not a record", Sample{Text: `[1, 2]`, DeclaredText: true}, "", models.FormatUnstructuredText},
		{"pdf hint", Sample{}, "Report.PDF", models.FormatPageDocument},
		{"json hint", Sample{}, "invoice.json", models.FormatStructured},
		{"correspondence markers", Sample{Text: "From: a@b.com\nHello"}, "", models.FormatCorrespondenceText},
		{"markers without at sign", Sample{Text: "Subject: hi\nno address", DeclaredText: true}, "", models.FormatUnstructuredText},
		{"pdf hint beats markers", Sample{Text: "To: x@y.z"}, "doc.pdf", models.FormatPageDocument},
		{"eml hint", Sample{}, "message.eml", models.FormatCorrespondenceText},
		{"txt hint", Sample{}, "notes.txt", models.FormatUnstructuredText},
		{"declared text", Sample{Text: "please quote 100 widgets", DeclaredText: true}, "", models.FormatUnstructuredText},
		{"undeclared text", Sample{Text: "please quote 100 widgets"}, "blob.bin", models.FormatUnknown},
		{"nothing", Sample{}, "", models.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.sample, tt.filename))
		})
	}
}

func TestFromName(t *testing.T) {
	assert.Equal(t, models.FormatPageDocument, FromName("a.pdf"))
	assert.Equal(t, models.FormatUnknown, FromName("a.bin"))
	assert.Equal(t, models.FormatUnknown, FromName(""))
}

func TestDecodeText(t *testing.T) {
	text, ok := DecodeText([]byte("From: a@b.com\r\n\tbody"))
	assert.True(t, ok)
	assert.Equal(t, "From: a@b.com\r\n\tbody", text)

	_, ok = DecodeText([]byte{0x00, 0x01, 0xff, 0xfe})
	assert.False(t, ok)

	_, ok = DecodeText([]byte("abc\x00def"))
	assert.False(t, ok)

	_, ok = DecodeText(nil)
	assert.False(t, ok)
}

func TestDecodeText_ByteOrderMark(t *testing.T) {
	text, ok := DecodeText([]byte("\xEF\xBB\xBFFrom: a@b.com\nSubject: hi"))
	assert.True(t, ok)
	assert.Equal(t, "From: a@b.com\nSubject: hi", text)
	assert.Equal(t, models.FormatCorrespondenceText, Detect(Sample{Text: text}, "notes.dat"))

	_, ok = DecodeText([]byte("\xEF\xBB\xBF"))
	assert.False(t, ok)
}

func TestDetect_Idempotent(t *testing.T) {
	samples := []string{
		`{"k": "v"}`,
		"From: a@b.com\nSubject: hi",
		"plain words",
	}
	for _, text := range samples {
		first := Detect(Sample{Text: text, DeclaredText: true}, "")
		second := Detect(Sample{Text: text, DeclaredText: true}, "")
		assert.Equal(t, first, second)
	}
}
