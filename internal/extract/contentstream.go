package extract

import (
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DecodeContentStream recovers the text shown by a PDF page content stream.
// Only literal and hex strings passed to Tj, TJ, ' and " are kept; text
// positioning operators become spaces or line breaks.
func DecodeContentStream(stream string) string {
	var out strings.Builder
	var pending []string

	newline := func() {
		s := out.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}
	}
	space := func() {
		s := out.String()
		if s != "" && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
			out.WriteByte(' ')
		}
	}

	for i := 0; i < len(stream); {
		c := stream[i]
		switch {
		case c == '(':
			s, next := readLiteral(stream, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(stream) && stream[i+1] != '<':
			s, next := readHex(stream, i)
			pending = append(pending, s)
			i = next
		case c == '%':
			for i < len(stream) && stream[i] != '\n' && stream[i] != '\r' {
				i++
			}
		case c == '\'' || c == '"':
			newline()
			out.WriteString(strings.Join(pending, ""))
			pending = nil
			i++
		case isOperatorStart(c):
			j := i
			for j < len(stream) && (isOperatorStart(stream[j]) || stream[j] == '*') {
				j++
			}
			switch stream[i:j] {
			case "Tj", "TJ":
				out.WriteString(strings.Join(pending, ""))
			case "T*", "ET":
				newline()
			case "Td", "TD", "Tm":
				space()
			}
			pending = nil
			i = j
		default:
			i++
		}
	}
	return strings.TrimSpace(out.String())
}

func isOperatorStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// readLiteral parses a balanced literal string starting at stream[start]=='('.
func readLiteral(stream string, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for i < len(stream) {
		c := stream[i]
		switch c {
		case '\\':
			if i+1 >= len(stream) {
				return b.String(), len(stream)
			}
			i++
			switch e := stream[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\n', '\r':
			default:
				if e >= '0' && e <= '7' {
					v, n := 0, 0
					for n < 3 && i < len(stream) && stream[i] >= '0' && stream[i] <= '7' {
						v = v*8 + int(stream[i]-'0')
						i++
						n++
					}
					b.WriteByte(byte(v))
					continue
				}
				b.WriteByte(e)
			}
			i++
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return printable(b.String()), i
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return printable(b.String()), i
}

func readHex(stream string, start int) (string, int) {
	end := strings.IndexByte(stream[start:], '>')
	if end < 0 {
		return "", len(stream)
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, stream[start+1:start+end])
	if len(digits)%2 == 1 {
		digits += "0"
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return "", start + end + 1
	}
	return printable(string(raw)), start + end + 1
}

// printable drops bytes that are not displayable text, which is what
// CID-encoded glyph strings mostly decode to.
func printable(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, s)
}
