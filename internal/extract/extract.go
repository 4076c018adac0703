// Package extract turns page documents into plain text. Extraction is best
// effort: it never returns an error, only text or an explicit placeholder.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/documentrouter/internal/logger"
)

// Placeholders returned instead of text.
const (
	NoTextFound     = "No text found in PDF."
	SkippedText     = "PDF text extraction skipped (extractor not available)."
	errorTextPrefix = "Error extracting PDF text: "
)

// Extractor converts page-document bytes to text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) string
}

// IsPlaceholder reports whether text is one of the placeholders rather than
// extracted content.
func IsPlaceholder(text string) bool {
	return text == NoTextFound || text == SkippedText || strings.HasPrefix(text, errorTextPrefix)
}

// Disabled is the degraded extractor used when no PDF support is configured.
type Disabled struct{}

// Extract returns the skipped placeholder.
func (Disabled) Extract(context.Context, []byte) string { return SkippedText }

// PDF extracts text with pdfcpu: it validates the document in relaxed mode,
// dumps every page content stream and decodes the text-showing operators.
type PDF struct {
	logger *slog.Logger
}

// NewPDF creates a pdfcpu-backed extractor.
func NewPDF() *PDF {
	return &PDF{logger: logger.WithComponent("extract")}
}

var pageFilePattern = regexp.MustCompile(`_(\d+)\.txt$`)

// Extract never fails; problems are reported inside the returned text.
func (p *PDF) Extract(ctx context.Context, data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("PDF extraction panicked", "panic", r)
			text = fmt.Sprintf("%s%v", errorTextPrefix, r)
		}
	}()

	text, err := p.extract(ctx, data)
	if err != nil {
		p.logger.Warn("Error extracting text from PDF", "error", err)
		return errorTextPrefix + err.Error()
	}
	if text == "" {
		return NoTextFound
	}
	p.logger.Info("Extracted text from PDF.", "chars", len(text))
	return text
}

func (p *PDF) extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, conf)
	if err != nil {
		return "", fmt.Errorf("failed to read page count: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	tempDir, err := os.MkdirTemp("", "page-extract-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractContent(rs, tempDir, "page", nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract content streams: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(tempDir, "*.txt"))
	if err != nil {
		return "", err
	}
	sortByPage(files)
	p.logger.Debug("Content streams extracted.", "pageCount", pageCount, "streams", len(files))

	var pages []string
	for _, f := range files {
		stream, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read content stream %s: %w", filepath.Base(f), err)
		}
		if pageText := DecodeContentStream(string(stream)); pageText != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

func sortByPage(files []string) {
	page := func(name string) int {
		m := pageFilePattern.FindStringSubmatch(name)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(files, func(i, j int) bool {
		pi, pj := page(files[i]), page(files[j])
		if pi != pj {
			return pi < pj
		}
		return files[i] < files[j]
	})
}
