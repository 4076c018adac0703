package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildPDF writes a minimal PDF with one text line per page.
func buildPDF(pages []string) []byte {
	n := len(pages)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var kids []string
	for i, text := range pages {
		pageObj := 4 + 2*i
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageObj+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestDisabled(t *testing.T) {
	text := Disabled{}.Extract(context.Background(), []byte("%PDF-1.4"))
	assert.Equal(t, SkippedText, text)
	assert.True(t, IsPlaceholder(text))
}

func TestPDF_ExtractsPagesInOrder(t *testing.T) {
	var pages []string
	for i := 1; i <= 12; i++ {
		pages = append(pages, fmt.Sprintf("Page %d text", i))
	}

	text := NewPDF().Extract(context.Background(), buildPDF(pages))
	assert.False(t, IsPlaceholder(text), text)
	assert.Equal(t, strings.Join(pages, "\n"), text)
}

func TestPDF_NoTextYieldsPlaceholder(t *testing.T) {
	text := NewPDF().Extract(context.Background(), buildPDF([]string{""}))
	assert.Equal(t, NoTextFound, text)
}

func TestPDF_InvalidBytesYieldPlaceholder(t *testing.T) {
	text := NewPDF().Extract(context.Background(), []byte("definitely not a pdf"))
	assert.True(t, strings.HasPrefix(text, errorTextPrefix), text)
	assert.True(t, IsPlaceholder(text))
}

func TestPDF_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	text := NewPDF().Extract(ctx, []byte("%PDF-1.4"))
	assert.True(t, IsPlaceholder(text))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(NoTextFound))
	assert.False(t, IsPlaceholder("Invoice INV-1 total 100"))
}

func TestDecodeContentStream(t *testing.T) {
	stream := `BT
/F1 12 Tf
72 712 Td
(Invoice INV-001) Tj
0 -14 Td
[(Total:) -250 (\(USD\) 100)] TJ
T*
<48656C6C6F> Tj
ET
% a comment (ignored) Tj
BT (Second block) ' ET`

	got := DecodeContentStream(stream)
	assert.Equal(t, "Invoice INV-001 Total:(USD) 100\nHello\nSecond block", got)
}

func TestDecodeContentStream_Escapes(t *testing.T) {
	assert.Equal(t, "a(b)c", DecodeContentStream(`(a(b)c) Tj`))
	assert.Equal(t, "A", DecodeContentStream(`(\101) Tj`))
	assert.Equal(t, "", DecodeContentStream(`0 0 m 10 10 l S`))
}

func TestSortByPage(t *testing.T) {
	files := []string{"page_Content_page_10.txt", "page_Content_page_2.txt", "page_Content_page_1.txt"}
	sortByPage(files)
	assert.Equal(t, []string{"page_Content_page_1.txt", "page_Content_page_2.txt", "page_Content_page_10.txt"}, files)
}
