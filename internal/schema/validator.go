package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Lllllllleong/documentrouter/internal/logger"
	"github.com/Lllllllleong/documentrouter/internal/models"
)

const previewLimit = 100

// Appender is the part of the audit store the validator needs.
type Appender interface {
	Append(ctx context.Context, rec models.AuditRecord) (models.AuditEntry, error)
}

// Validator is the structured-record processor.
type Validator struct {
	registry Registry
	audit    Appender
	logger   *slog.Logger
}

// NewValidator creates a validator. A nil registry uses DefaultRegistry.
func NewValidator(registry Registry, audit Appender) *Validator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Validator{
		registry: registry,
		audit:    audit,
		logger:   logger.WithComponent(models.AgentSchemaValidator),
	}
}

// Validate reshapes record against the schema registered for intent and
// returns the reformatted record with every anomaly found. It never fails.
func (v *Validator) Validate(record map[string]any, intent models.Intent) (map[string]any, []string) {
	def, ok := v.registry[intent]
	if !ok {
		out := make(map[string]any, len(record))
		for k, val := range record {
			out[k] = val
		}
		return out, []string{fmt.Sprintf("No specific schema defined for intent '%s'. Passing through data.", intent)}
	}

	out := make(map[string]any, len(record))
	anomalies := []string{}

	for _, field := range def.Required {
		if val, ok := record[field]; ok {
			out[field] = val
		} else {
			anomalies = append(anomalies, fmt.Sprintf("Missing required field: %s", field))
		}
	}
	for _, field := range def.Optional {
		if val, ok := record[field]; ok {
			out[field] = val
		}
	}

	for _, field := range sortedKeys(def.Lists) {
		val, ok := out[field]
		if !ok {
			continue
		}
		anomalies = append(anomalies, checkList(field, val, def.Lists[field])...)
	}

	for _, key := range sortedKeys(record) {
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = record[key]
		anomalies = append(anomalies, fmt.Sprintf("Unexpected field found: %s (included as-is)", key))
	}

	if len(out) == 0 && len(anomalies) == 0 {
		anomalies = append(anomalies, "Input does not match any fields in the target schema.")
	}
	return out, anomalies
}

// Process validates record and appends the terminal audit entry to threadID.
// Only an audit persistence failure is returned as an error.
func (v *Validator) Process(ctx context.Context, record map[string]any, sourceID, sourceType, threadID string, intent models.Intent) (models.Result, error) {
	logCtx := v.logger.With("threadId", threadID, "source", sourceID, "intent", string(intent))
	logCtx.Info("Validating structured record.")

	reformatted, anomalies := v.Validate(record, intent)
	if len(anomalies) > 0 {
		logCtx.Warn("Anomalies found in structured record.", "count", len(anomalies))
	}

	fields := map[string]any{
		"original_data_preview": Preview(record),
		"reformatted_data":      reformatted,
		"schema_applied":        string(intent),
		"anomalies":             anomalies,
	}
	entry, err := v.audit.Append(ctx, models.AuditRecord{
		ThreadID:         threadID,
		SourceIdentifier: sourceID,
		SourceType:       sourceType,
		Format:           models.FormatStructured,
		Intent:           intent,
		Agent:            models.AgentSchemaValidator,
		Data:             fields,
		Notes:            "Processed by SchemaValidator.",
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to log schema validation: %w", err)
	}

	return models.Result{Status: models.StatusRouted, Agent: models.AgentSchemaValidator, Fields: fields, Entry: entry}, nil
}

// Preview renders each value of record, truncating long values.
func Preview(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, val := range record {
		s := fmt.Sprint(val)
		if runes := []rune(s); len(runes) > previewLimit {
			out[k] = string(runes[:previewLimit]) + "..."
			continue
		}
		out[k] = val
	}
	return out
}

func checkList(field string, val any, itemFields []Field) []string {
	var items []any
	switch x := val.(type) {
	case []any:
		items = x
	case []map[string]any:
		for _, m := range x {
			items = append(items, m)
		}
	default:
		return []string{fmt.Sprintf("Field '%s' should be a list.", field)}
	}
	var anomalies []string
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			anomalies = append(anomalies, fmt.Sprintf("Item at index %d of '%s' is not an object.", i, field))
			continue
		}
		for _, f := range itemFields {
			got, present := item[f.Name]
			switch {
			case !present:
				anomalies = append(anomalies, fmt.Sprintf("Item at index %d of '%s' missing field: %s", i, field, f.Name))
			case !f.Kind.Matches(got):
				anomalies = append(anomalies, fmt.Sprintf("Item at index %d of '%s', field '%s': expected %s, got %s", i, field, f.Name, f.Kind, KindOf(got)))
			}
		}
	}
	return anomalies
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
