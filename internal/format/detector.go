// Package format infers a document's encoding category from its content and
// an optional filename hint.
package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

var (
	pageExtensions           = []string{".pdf"}
	structuredExtensions     = []string{".json"}
	correspondenceExtensions = []string{".eml"}
	textExtensions           = []string{".txt"}
	headerMarkers            = []string{"Subject:", "From:", "To:"}
)

// Sample is what detection may look at. A metadata-only pass leaves it empty.
type Sample struct {
	// Record is set when the input is already a decoded structured record.
	Record map[string]any
	// Text is decoded textual content, never raw undecoded bytes.
	Text string
	// DeclaredText marks input that arrived as text, as opposed to text
	// decoded from an untyped file.
	DeclaredText bool
}

// Detect returns the first matching format in priority order.
func Detect(s Sample, filename string) models.Format {
	name := strings.ToLower(strings.TrimSpace(filename))

	switch {
	case s.Record != nil:
		return models.FormatStructured
	case IsStructuredText(s.Text):
		return models.FormatStructured
	case hasSuffix(name, pageExtensions):
		return models.FormatPageDocument
	case hasSuffix(name, structuredExtensions):
		return models.FormatStructured
	case looksLikeCorrespondence(s.Text):
		return models.FormatCorrespondenceText
	case hasSuffix(name, correspondenceExtensions):
		return models.FormatCorrespondenceText
	case hasSuffix(name, textExtensions):
		return models.FormatUnstructuredText
	case s.DeclaredText:
		return models.FormatUnstructuredText
	default:
		return models.FormatUnknown
	}
}

// FromName is the metadata-only pass used for binary and file inputs.
func FromName(filename string) models.Format {
	return Detect(Sample{}, filename)
}

// IsStructuredText reports whether text is a serialised JSON object.
func IsStructuredText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var obj map[string]any
	return json.Unmarshal([]byte(trimmed), &obj) == nil
}

// DecodeText returns data as text when it is valid UTF-8 made of printable
// characters and whitespace. A leading byte order mark is dropped. Binary
// payloads are rejected.
func DecodeText(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(data) == 0 || !utf8.Valid(data) {
		return "", false
	}
	text := string(data)
	for _, r := range text {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return "", false
		}
	}
	return text, true
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func looksLikeCorrespondence(text string) bool {
	if !strings.Contains(text, "@") {
		return false
	}
	for _, marker := range headerMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func hasSuffix(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
