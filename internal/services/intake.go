// Package services hosts the intake surfaces that feed documents to the
// dispatcher over HTTP and from storage events.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/Lllllllleong/documentrouter/internal/config"
	"github.com/Lllllllleong/documentrouter/internal/models"
)

// Default source types per intake channel.
const (
	SourceTypeAPI    = "api_submission"
	SourceTypeUpload = "file_upload"
	SourceTypeGCS    = "gcs_upload"
)

// DefaultMaxRequestBytes caps an HTTP intake request body.
const DefaultMaxRequestBytes int64 = 32 << 20

// Dispatcher is the pipeline entry point.
type Dispatcher interface {
	Process(ctx context.Context, in models.Input, sourceID, sourceType, threadID string) (string, models.Result, error)
}

// ObjectStore reads uploads and archives results.
type ObjectStore interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Save(ctx context.Context, bucket, object, content string) error
}

// Handoff starts downstream processing of a routed document.
type Handoff interface {
	Trigger(ctx context.Context, payload models.HandoffPayload) (string, error)
}

// GCSEvent is the payload of a storage object-finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// IntakeFunction adapts intake requests and storage events to the dispatcher.
type IntakeFunction struct {
	dispatcher    Dispatcher
	objects       ObjectStore
	handoff       Handoff
	resultsBucket string
	resultsPrefix string
	maxBytes      int64
	rt            *Runtime
}

// IntakeOption configures an IntakeFunction.
type IntakeOption func(*IntakeFunction)

// WithObjectStore enables reading uploads and archiving results to bucket.
func WithObjectStore(objects ObjectStore, bucket, prefix string) IntakeOption {
	return func(f *IntakeFunction) {
		f.objects = objects
		f.resultsBucket = bucket
		f.resultsPrefix = prefix
	}
}

// WithHandoff triggers h for every routed document.
func WithHandoff(h Handoff) IntakeOption {
	return func(f *IntakeFunction) { f.handoff = h }
}

// WithMaxRequestBytes overrides DefaultMaxRequestBytes.
func WithMaxRequestBytes(n int64) IntakeOption {
	return func(f *IntakeFunction) { f.maxBytes = n }
}

// NewIntakeFunction wraps a dispatcher.
func NewIntakeFunction(d Dispatcher, opts ...IntakeOption) *IntakeFunction {
	f := &IntakeFunction{dispatcher: d, maxBytes: DefaultMaxRequestBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewIntake builds an IntakeFunction from the environment configuration.
func NewIntake(ctx context.Context) (*IntakeFunction, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	rt, err := NewRuntime(ctx, cfg)
	if err != nil {
		return nil, err
	}
	objects, err := rt.Objects(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	opts := []IntakeOption{WithObjectStore(objects, cfg.Storage.ResultsBucket, cfg.Storage.ResultsPrefix)}
	if rt.Workflow != nil {
		opts = append(opts, WithHandoff(rt.Workflow))
	}
	f := NewIntakeFunction(rt.Dispatcher, opts...)
	f.rt = rt
	return f, nil
}

// Close releases the runtime built by NewIntake.
func (f *IntakeFunction) Close() error {
	if f.rt == nil {
		return nil
	}
	return f.rt.Close()
}

// Process dispatches one intake request.
func (f *IntakeFunction) Process(ctx context.Context, req *models.IntakeRequest) (*models.IntakeResponse, error) {
	in, sourceType, err := requestInput(req)
	if err != nil {
		return nil, err
	}
	if req.SourceType != "" {
		sourceType = req.SourceType
	}
	sourceID := req.SourceIdentifier
	if sourceID == "" {
		sourceID = req.Filename
	}
	if sourceID == "" {
		sourceID = "http_request"
	}
	return f.dispatch(ctx, in, sourceID, sourceType, req.ThreadID)
}

// ProcessObject dispatches an uploaded storage object.
func (f *IntakeFunction) ProcessObject(ctx context.Context, event GCSEvent) (*models.IntakeResponse, error) {
	if f.objects == nil {
		return nil, errors.New("object intake requires an object store")
	}
	if event.Bucket == "" || event.Name == "" {
		return nil, fmt.Errorf("%w: storage event without bucket or object name", models.ErrInvalidInput)
	}
	sourceID := fmt.Sprintf("gs://%s/%s", event.Bucket, event.Name)
	logCtx := slog.With("source", sourceID)

	if f.resultsBucket == event.Bucket && strings.HasPrefix(event.Name, f.resultsPrefix+"/") {
		logCtx.Info("Ignoring archived result object.")
		return nil, nil
	}

	data, err := f.objects.Read(ctx, event.Bucket, event.Name)
	if err != nil {
		logCtx.Error("Failed to read uploaded object", "error", err)
		return nil, err
	}
	in, sourceType := fileInput(event.Name, data, SourceTypeGCS)
	return f.dispatch(ctx, in, sourceID, sourceType, "")
}

func (f *IntakeFunction) dispatch(ctx context.Context, in models.Input, sourceID, sourceType, threadID string) (*models.IntakeResponse, error) {
	threadID, result, err := f.dispatcher.Process(ctx, in, sourceID, sourceType, threadID)
	if err != nil {
		return nil, err
	}
	logCtx := slog.With("threadId", threadID, "source", sourceID)

	resp := &models.IntakeResponse{
		Status:   string(result.Status),
		ThreadID: threadID,
		Result:   result.Fields,
	}

	last := result.Entry
	if last.LogID == "" {
		return resp, nil
	}
	if uri, err := f.archive(ctx, last); err != nil {
		logCtx.Warn("Failed to archive result", "error", err)
	} else {
		resp.ResultURI = uri
	}

	if f.handoff != nil && result.Status == models.StatusRouted {
		exec, err := f.handoff.Trigger(ctx, models.HandoffPayload{
			ThreadID:   threadID,
			Format:     string(last.ClassifiedFormat),
			Intent:     string(last.ClassifiedIntent),
			Status:     string(result.Status),
			SourceType: sourceType,
		})
		if err != nil {
			logCtx.Warn("Failed to hand off document", "error", err)
		} else {
			logCtx.Info("Handed off document", "execution", exec)
		}
	}
	return resp, nil
}

// archive stores the terminal entry under <prefix>/<thread>/<entry>.json.
func (f *IntakeFunction) archive(ctx context.Context, entry models.AuditEntry) (string, error) {
	if f.objects == nil || f.resultsBucket == "" {
		return "", nil
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	object := path.Join(f.resultsPrefix, entry.ThreadID, entry.LogID+".json")
	if err := f.objects.Save(ctx, f.resultsBucket, object, string(data)); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", f.resultsBucket, object), nil
}

// ServeHTTP accepts a JSON IntakeRequest via POST.
func (f *IntakeFunction) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.IntakeRequest
	r.Body = http.MaxBytesReader(w, r.Body, f.maxBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := f.Process(r.Context(), &req)
	if errors.Is(err, models.ErrInvalidInput) {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Intake processing failed", "source", req.SourceIdentifier, "error", err)
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func requestInput(req *models.IntakeRequest) (models.Input, string, error) {
	switch {
	case req == nil:
		return models.Input{}, "", fmt.Errorf("%w: empty request", models.ErrInvalidInput)
	case req.Record != nil:
		return models.Record(req.Record), SourceTypeAPI, nil
	case len(req.Content) > 0:
		if req.Filename == "" {
			return models.Input{}, "", fmt.Errorf("%w: file content without filename", models.ErrInvalidInput)
		}
		in, sourceType := fileInput(req.Filename, req.Content, SourceTypeUpload)
		return in, sourceType, nil
	case req.Text != "":
		return models.RawText(req.Text, req.Filename), SourceTypeAPI, nil
	default:
		return models.Input{}, "", fmt.Errorf("%w: one of text, record or content is required", models.ErrInvalidInput)
	}
}

// fileInput renders .eml uploads as mailbox messages and passes everything
// else through as a file.
func fileInput(name string, data []byte, sourceType string) (models.Input, string) {
	if strings.HasSuffix(strings.ToLower(name), ".eml") {
		msg, err := ParseMail(data)
		if err == nil {
			return models.RawText(msg.Render(), name), MailSourceType
		}
		slog.Warn("Could not parse mail message, treating as file", "name", name, "error", err)
	}
	return models.File(name, data), sourceType
}
