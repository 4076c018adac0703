// Package dispatch drives a document from intake to its terminal audit entry:
// normalise, detect the format, classify the intent, route, log.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Lllllllleong/documentrouter/internal/content"
	"github.com/Lllllllleong/documentrouter/internal/extract"
	"github.com/Lllllllleong/documentrouter/internal/format"
	"github.com/Lllllllleong/documentrouter/internal/logger"
	"github.com/Lllllllleong/documentrouter/internal/metrics"
	"github.com/Lllllllleong/documentrouter/internal/models"
	"github.com/Lllllllleong/documentrouter/internal/oracle"
	"github.com/Lllllllleong/documentrouter/internal/schema"
)

const (
	notesInitial    = "Initial classification"
	notesUnknown    = "Unknown format, not routed."
	notesParseError = "JSON parsing error before routing"
	parseErrorText  = "Failed to parse JSON content"
)

// Appender is the audit store as seen by the pipeline.
type Appender interface {
	Append(ctx context.Context, rec models.AuditRecord) (models.AuditEntry, error)
}

// Dispatcher is the single entry point every ingestion surface calls.
type Dispatcher struct {
	audit     Appender
	oracle    *oracle.Client
	extractor extract.Extractor
	validator *schema.Validator
	processor *content.Processor
	metrics   *metrics.Metrics
	registry  schema.Registry
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithExtractor replaces the pdfcpu extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(d *Dispatcher) { d.extractor = e }
}

// WithMetrics records per-document metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRegistry replaces the default schema registry.
func WithRegistry(r schema.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// New wires a dispatcher and its processors around one audit store.
func New(store Appender, client *oracle.Client, opts ...Option) *Dispatcher {
	if client == nil {
		client = oracle.NewClient(nil)
	}
	d := &Dispatcher{
		audit:  store,
		oracle: client,
		logger: logger.WithComponent(models.AgentDispatcher),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.extractor == nil {
		d.extractor = extract.NewPDF()
	}
	d.validator = schema.NewValidator(d.registry, store)
	d.processor = content.NewProcessor(client, store)
	return d
}

// normalized is a document after the Normalized and FormatClassified states.
type normalized struct {
	text     string
	record   map[string]any
	format   models.Format
	hint     string
	parseErr *models.ParseError
}

// Process runs one document through the pipeline and returns its thread id and
// result. Transport, parse and schema problems are reported in the result;
// only a failure to write the audit log is returned as an error. An empty
// threadID starts a new thread.
func (d *Dispatcher) Process(ctx context.Context, in models.Input, sourceID, sourceType, threadID string) (string, models.Result, error) {
	start := time.Now()
	logCtx := d.logger.With("source", sourceID, "sourceType", sourceType, "input", in.Kind.String())
	logCtx.Info("Received document.")

	doc, err := d.normalize(ctx, in, sourceID)
	if err != nil {
		return threadID, models.Result{}, err
	}

	cls := d.oracle.Classify(ctx, doc.text, doc.format)
	notes := notesInitial
	if cls.Failure != oracle.FailureNone {
		notes = fmt.Sprintf("%s (oracle %s failure)", notesInitial, cls.Failure)
	}

	initial, err := d.audit.Append(ctx, models.AuditRecord{
		ThreadID:         threadID,
		SourceIdentifier: sourceID,
		SourceType:       sourceType,
		Format:           doc.format,
		Intent:           cls.Intent,
		Agent:            models.AgentDispatcher,
		Notes:            notes,
	})
	if err != nil {
		d.metrics.AuditFailure()
		logCtx.Error("Failed to log initial classification.", "error", err)
		return threadID, models.Result{}, fmt.Errorf("failed to log initial classification: %w", err)
	}
	threadID = initial.ThreadID
	logCtx = logCtx.With("threadId", threadID, "format", string(doc.format), "intent", string(cls.Intent))
	logCtx.Info("Document classified.")

	result, err := d.route(ctx, doc, sourceID, sourceType, threadID, cls.Intent)
	if err != nil {
		d.metrics.AuditFailure()
		logCtx.Error("Failed to log routing outcome.", "error", err)
		return threadID, models.Result{}, err
	}

	d.metrics.ObserveDocument(string(doc.format), string(cls.Intent), string(result.Status), time.Since(start))
	logCtx.Info("Document processed.", "status", string(result.Status), "agent", result.Agent)
	return threadID, result, nil
}

func (d *Dispatcher) route(ctx context.Context, doc *normalized, sourceID, sourceType, threadID string, intent models.Intent) (models.Result, error) {
	switch {
	case doc.parseErr != nil:
		data := map[string]any{"error": parseErrorText}
		entry, err := d.audit.Append(ctx, models.AuditRecord{
			ThreadID:         threadID,
			SourceIdentifier: sourceID,
			SourceType:       sourceType,
			Format:           doc.format,
			Intent:           intent,
			Agent:            models.AgentDispatcher,
			Data:             data,
			Notes:            notesParseError,
		})
		if err != nil {
			return models.Result{}, fmt.Errorf("failed to log parse failure: %w", err)
		}
		return models.Result{Status: models.StatusParseFailure, Agent: models.AgentDispatcher, Fields: data, Entry: entry, Failure: doc.parseErr}, nil

	case doc.format == models.FormatStructured:
		result, err := d.validator.Process(ctx, doc.record, sourceID, sourceType, threadID, intent)
		if err != nil {
			return models.Result{}, err
		}
		if anomalies, ok := result.Fields["anomalies"].([]string); ok {
			d.metrics.Anomalies(string(intent), len(anomalies))
		}
		return result, nil

	case doc.format.IsText():
		return d.processor.Process(ctx, doc.text, sourceID, sourceType, threadID, doc.format, intent)

	default:
		data := map[string]any{"status": fmt.Sprintf("Unknown format: %s", doc.format)}
		entry, err := d.audit.Append(ctx, models.AuditRecord{
			ThreadID:         threadID,
			SourceIdentifier: sourceID,
			SourceType:       sourceType,
			Format:           doc.format,
			Intent:           intent,
			Agent:            models.AgentDispatcher,
			Data:             data,
			Notes:            notesUnknown,
		})
		if err != nil {
			return models.Result{}, fmt.Errorf("failed to log unrouted document: %w", err)
		}
		return models.Result{Status: models.StatusUnrouted, Agent: models.AgentDispatcher, Fields: data, Entry: entry}, nil
	}
}

func (d *Dispatcher) normalize(ctx context.Context, in models.Input, sourceID string) (*normalized, error) {
	switch in.Kind {
	case models.InputRawText:
		return normalizeText(in, sourceID), nil
	case models.InputRecord:
		return normalizeRecord(in.Record), nil
	case models.InputFile:
		return d.normalizeFile(ctx, in.Name, in.Data), nil
	case models.InputPath:
		data, err := os.ReadFile(in.Path)
		if err != nil {
			d.logger.Warn("Could not read input file.", "path", in.Path, "error", err)
			return unreadable(in.Path, err), nil
		}
		return d.normalizeFile(ctx, in.Path, data), nil
	default:
		return nil, fmt.Errorf("%w: unknown input kind %d", models.ErrInvalidInput, in.Kind)
	}
}

func normalizeText(in models.Input, sourceID string) *normalized {
	hint := in.Name
	if lower := strings.ToLower(sourceID); strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".eml") {
		hint = sourceID
	}
	doc := &normalized{text: in.Text, hint: hint}
	doc.format = format.Detect(format.Sample{Text: in.Text, DeclaredText: true}, hint)
	if doc.format == models.FormatStructured {
		doc.record, doc.parseErr = parseRecord(hint, []byte(in.Text))
	}
	return doc
}

func normalizeRecord(record map[string]any) *normalized {
	if record == nil {
		record = map[string]any{}
	}
	text, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprint(record))
	}
	return &normalized{
		text:   string(text),
		record: record,
		format: format.Detect(format.Sample{Record: record}, ""),
	}
}

// normalizeFile detects from the name first and only then looks at the bytes.
// A metadata-only Unknown gets a second pass against the decoded text.
func (d *Dispatcher) normalizeFile(ctx context.Context, name string, data []byte) *normalized {
	doc := &normalized{hint: name, format: format.FromName(name)}

	switch doc.format {
	case models.FormatPageDocument:
		doc.text = d.extractor.Extract(ctx, data)
		if extract.IsPlaceholder(doc.text) {
			d.logger.Warn("Page document yielded no text.", "name", name, "placeholder", doc.text)
		}
	case models.FormatStructured:
		doc.text = string(bytes.ToValidUTF8(data, replacementChar))
		doc.record, doc.parseErr = parseRecord(name, data)
		if doc.parseErr == nil {
			if pretty, err := json.MarshalIndent(doc.record, "", "  "); err == nil {
				doc.text = string(pretty)
			}
		}
	case models.FormatUnknown:
		text, ok := format.DecodeText(data)
		if !ok {
			doc.text = fmt.Sprintf("Undecodable binary content (%d bytes).", len(data))
			return doc
		}
		doc.text = text
		doc.format = format.Detect(format.Sample{Text: text}, name)
		if doc.format == models.FormatStructured {
			doc.record, doc.parseErr = parseRecord(name, []byte(text))
		}
	default:
		doc.text = string(bytes.ToValidUTF8(data, replacementChar))
	}
	return doc
}

func unreadable(path string, err error) *normalized {
	doc := &normalized{
		text:   fmt.Sprintf("Error reading file %s: %v", path, err),
		hint:   path,
		format: format.FromName(path),
	}
	switch doc.format {
	case models.FormatStructured:
		doc.parseErr = &models.ParseError{Source: path, Err: err}
	case models.FormatUnknown:
		doc.format = format.Detect(format.Sample{Text: doc.text}, path)
	}
	return doc
}

var replacementChar = []byte("\uFFFD")

var errNotObject = errors.New("structured record is not an object")

func parseRecord(source string, data []byte) (map[string]any, *models.ParseError) {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &models.ParseError{Source: source, Err: err}
	}
	if record == nil {
		return nil, &models.ParseError{Source: source, Err: errNotObject}
	}
	return record, nil
}
