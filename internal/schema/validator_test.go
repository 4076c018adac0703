package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

type memAppender struct {
	records []models.AuditRecord
	err     error
}

func (m *memAppender) Append(_ context.Context, rec models.AuditRecord) (models.AuditEntry, error) {
	if m.err != nil {
		return models.AuditEntry{}, m.err
	}
	m.records = append(m.records, rec)
	return models.AuditEntry{ThreadID: rec.ThreadID}, nil
}

func validInvoice() map[string]any {
	return map[string]any{
		"invoice_id":    "I1",
		"customer_name": "Acme",
		"total_amount":  100.0,
		"items": []any{
			map[string]any{"name": "bolt", "quantity": 10.0, "unit_price": 2.5},
			map[string]any{"name": "nut", "quantity": 5.0, "unit_price": 10.0},
		},
		"due_date": "2025-01-31",
	}
}

func TestValidate_MissingItemsScenario(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := map[string]any{"invoice_id": "I1", "customer_name": "Acme", "total_amount": 100.0}

	out, anomalies := v.Validate(record, models.IntentInvoice)

	assert.Equal(t, []string{"Missing required field: items"}, anomalies)
	assert.Equal(t, record, out)
}

func TestValidate_ValidInvoice(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := validInvoice()

	out, anomalies := v.Validate(record, models.IntentInvoice)

	assert.Empty(t, anomalies)
	assert.Equal(t, record, out)
}

func TestValidate_EveryMissingRequiredFieldReportedOnce(t *testing.T) {
	v := NewValidator(nil, &memAppender{})

	_, anomalies := v.Validate(map[string]any{"rfq_id": "R1"}, models.IntentRFQ)

	assert.Equal(t, []string{
		"Missing required field: product_description",
		"Missing required field: quantity_needed",
	}, anomalies)
}

func TestValidate_ItemViolationsDoNotStopProcessing(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := validInvoice()
	record["items"] = []any{
		"not an object",
		map[string]any{"name": "bolt", "quantity": 1.5},
		map[string]any{"name": 7.0, "quantity": 2.0, "unit_price": "cheap"},
	}

	_, anomalies := v.Validate(record, models.IntentInvoice)

	assert.Equal(t, []string{
		"Item at index 0 of 'items' is not an object.",
		"Item at index 1 of 'items', field 'quantity': expected integer, got number",
		"Item at index 1 of 'items' missing field: unit_price",
		"Item at index 2 of 'items', field 'name': expected string, got integer",
		"Item at index 2 of 'items', field 'unit_price': expected number, got string",
	}, anomalies)
}

func TestValidate_ItemsNotAList(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := validInvoice()
	record["items"] = "bolts"

	_, anomalies := v.Validate(record, models.IntentInvoice)

	assert.Equal(t, []string{"Field 'items' should be a list."}, anomalies)
}

func TestValidate_TypedItemSlice(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := validInvoice()
	record["items"] = []map[string]any{{"name": "bolt", "quantity": 3, "unit_price": 1}}

	_, anomalies := v.Validate(record, models.IntentInvoice)

	assert.Empty(t, anomalies)
}

func TestValidate_UnexpectedFieldsKept(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := validInvoice()
	record["currency"] = "EUR"
	record["approver"] = "bob"

	out, anomalies := v.Validate(record, models.IntentInvoice)

	assert.Equal(t, "EUR", out["currency"])
	assert.Equal(t, "bob", out["approver"])
	assert.Equal(t, []string{
		"Unexpected field found: approver (included as-is)",
		"Unexpected field found: currency (included as-is)",
	}, anomalies)
}

func TestValidate_NoSchemaPassesThrough(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	record := map[string]any{"complaint": "late delivery"}

	out, anomalies := v.Validate(record, models.IntentComplaint)

	assert.Equal(t, record, out)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0], "No specific schema defined for intent 'Complaint'")
}

func TestValidate_EmptyRecord(t *testing.T) {
	registry := Registry{models.IntentOther: {Optional: []string{"note"}}}
	v := NewValidator(registry, &memAppender{})

	out, anomalies := v.Validate(map[string]any{}, models.IntentOther)

	assert.Empty(t, out)
	assert.Equal(t, []string{"Input does not match any fields in the target schema."}, anomalies)
}

func TestValidate_RequiredFieldsUnchangedForAllIntents(t *testing.T) {
	v := NewValidator(nil, &memAppender{})
	for intent, def := range DefaultRegistry() {
		record := map[string]any{}
		for i, f := range def.Required {
			if _, isList := def.Lists[f]; isList {
				record[f] = []any{}
				continue
			}
			record[f] = strings.Repeat("v", i+1)
		}

		out, anomalies := v.Validate(record, intent)

		assert.Empty(t, anomalies, intent)
		for _, f := range def.Required {
			assert.Equal(t, record[f], out[f], "%s.%s", intent, f)
		}
	}
}

func TestProcess_LogsTerminalEntry(t *testing.T) {
	audit := &memAppender{}
	v := NewValidator(nil, audit)
	record := map[string]any{"invoice_id": "I1", "customer_name": "Acme", "total_amount": 100.0}

	result, err := v.Process(context.Background(), record, "invoice.json", "file_upload_json", "thread-1", models.IntentInvoice)
	require.NoError(t, err)

	assert.Equal(t, models.StatusRouted, result.Status)
	assert.Equal(t, []string{"Missing required field: items"}, result.Fields["anomalies"])
	assert.Equal(t, "Invoice", result.Fields["schema_applied"])

	require.Len(t, audit.records, 1)
	rec := audit.records[0]
	assert.Equal(t, "thread-1", rec.ThreadID)
	assert.Equal(t, models.AgentSchemaValidator, rec.Agent)
	assert.Equal(t, models.FormatStructured, rec.Format)
	assert.Equal(t, result.Fields, rec.Data)
}

func TestProcess_PersistFailurePropagates(t *testing.T) {
	v := NewValidator(nil, &memAppender{err: errors.New("disk full")})

	_, err := v.Process(context.Background(), map[string]any{}, "x", "y", "t", models.IntentRFQ)

	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("x", 150)
	preview := Preview(map[string]any{"short": 5.0, "long": long})

	assert.Equal(t, 5.0, preview["short"])
	assert.Equal(t, strings.Repeat("x", 100)+"...", preview["long"])
}

func TestKindMatches(t *testing.T) {
	assert.True(t, KindInteger.Matches(3.0))
	assert.True(t, KindInteger.Matches(3))
	assert.False(t, KindInteger.Matches(3.5))
	assert.True(t, KindNumber.Matches(3))
	assert.True(t, KindNumber.Matches(3.5))
	assert.True(t, KindBoolean.Matches(true))
	assert.False(t, KindString.Matches(nil))
	assert.Equal(t, "null", KindOf(nil))
	assert.Equal(t, "list", KindOf([]any{}))
}
