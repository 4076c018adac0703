// Package schema validates and reshapes structured records against
// intent-specific schemas. Deviations are collected as anomalies; nothing in
// the input is ever dropped.
package schema

import (
	"fmt"
	"math"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

// Kind is the primitive type expected for an item field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInteger
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Field declares one item-level field of a list.
type Field struct {
	Name string
	Kind Kind
}

// Definition is the declarative schema for one intent.
type Definition struct {
	Required []string
	Optional []string
	// Lists maps a list-valued field to the fields each of its items carries.
	Lists map[string][]Field
}

// Registry maps intents to their schemas.
type Registry map[models.Intent]Definition

// DefaultRegistry returns the built-in schemas.
func DefaultRegistry() Registry {
	return Registry{
		models.IntentInvoice: {
			Required: []string{"invoice_id", "customer_name", "total_amount", "items"},
			Optional: []string{"due_date", "invoice_date"},
			Lists: map[string][]Field{
				"items": {
					{Name: "name", Kind: KindString},
					{Name: "quantity", Kind: KindInteger},
					{Name: "unit_price", Kind: KindNumber},
				},
			},
		},
		models.IntentRFQ: {
			Required: []string{"rfq_id", "product_description", "quantity_needed"},
			Optional: []string{"deadline", "contact_person"},
		},
	}
}

// KindOf names the JSON type of v for anomaly messages.
func KindOf(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if isIntegral(x) {
			return "integer"
		}
		return "number"
	case float32:
		if isIntegral(float64(x)) {
			return "integer"
		}
		return "number"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Matches reports whether v satisfies k. Integers satisfy KindNumber.
func (k Kind) Matches(v any) bool {
	got := KindOf(v)
	switch k {
	case KindString:
		return got == "string"
	case KindBoolean:
		return got == "boolean"
	case KindInteger:
		return got == "integer"
	case KindNumber:
		return got == "integer" || got == "number"
	}
	return false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}
