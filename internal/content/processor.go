// Package content handles free-text documents: correspondence, plain text and
// text extracted from page documents.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Lllllllleong/documentrouter/internal/logger"
	"github.com/Lllllllleong/documentrouter/internal/models"
	"github.com/Lllllllleong/documentrouter/internal/oracle"
)

// UnknownSender is reported when neither the headers nor the oracle name one.
const UnknownSender = "Unknown"

const previewLimit = 200

// fromHeader matches a From: header line with a non-empty value.
var fromHeader = regexp.MustCompile(`(?im)^From:[ \t]*(\S[^\r\n]*)`)

// Appender is the part of the audit store the processor needs.
type Appender interface {
	Append(ctx context.Context, rec models.AuditRecord) (models.AuditEntry, error)
}

// Processor extracts sender, urgency and a summary from free text.
type Processor struct {
	oracle *oracle.Client
	audit  Appender
	logger *slog.Logger
}

// NewProcessor creates a processor. A nil client runs fully degraded.
func NewProcessor(client *oracle.Client, audit Appender) *Processor {
	if client == nil {
		client = oracle.NewClient(nil)
	}
	return &Processor{
		oracle: client,
		audit:  audit,
		logger: logger.WithComponent(models.AgentContentProcessor),
	}
}

// Process analyses text and appends the terminal audit entry to threadID.
// Each step degrades on its own; only an audit persistence failure is
// returned as an error.
func (p *Processor) Process(ctx context.Context, text, sourceID, sourceType, threadID string, format models.Format, intent models.Intent) (models.Result, error) {
	logCtx := p.logger.With("threadId", threadID, "source", sourceID, "intent", string(intent))
	logCtx.Info("Processing text content.")

	sender := p.sender(ctx, text)

	urgency, reply := p.oracle.AssessUrgency(ctx, text)
	if !reply.OK() {
		logCtx.Warn("Urgency assessment degraded, using default.", "failure", string(reply.Failure), "urgency", urgency)
	}

	var summary string
	if reply := p.oracle.Summarize(ctx, text, intent); reply.OK() {
		summary = reply.Text
	} else {
		summary = oracle.ErrorText(reply)
		logCtx.Warn("Summary generation failed.", "failure", string(reply.Failure), "error", reply.Err)
	}

	fields := map[string]any{
		"sender":                   sender,
		"intent":                   string(intent),
		"urgency":                  urgency,
		"crm_summary":              summary,
		"original_content_preview": Preview(text),
	}
	entry, err := p.audit.Append(ctx, models.AuditRecord{
		ThreadID:         threadID,
		SourceIdentifier: sourceID,
		SourceType:       sourceType,
		Format:           format,
		Intent:           intent,
		Agent:            models.AgentContentProcessor,
		Data:             fields,
		Notes:            "Processed by ContentProcessor.",
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to log content processing: %w", err)
	}

	logCtx.Info("Content processed.", "sender", sender, "urgency", urgency)
	return models.Result{Status: models.StatusRouted, Agent: models.AgentContentProcessor, Fields: fields, Entry: entry}, nil
}

func (p *Processor) sender(ctx context.Context, text string) string {
	if s, ok := SenderFromHeaders(text); ok {
		return s
	}
	reply := p.oracle.ExtractSender(ctx, text)
	if !reply.OK() {
		return UnknownSender
	}
	s := strings.Trim(reply.Text, "\"'` ")
	if s == "" || strings.EqualFold(s, UnknownSender) {
		return UnknownSender
	}
	return s
}

// SenderFromHeaders returns the value of the first "From:" header line.
func SenderFromHeaders(text string) (string, bool) {
	m := fromHeader.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	s := strings.TrimSpace(m[1])
	return s, s != ""
}

// Preview returns the first 200 characters of text, marked with "..." when cut.
func Preview(text string) string {
	if runes := []rune(text); len(runes) > previewLimit {
		return string(runes[:previewLimit]) + "..."
	}
	return text
}
