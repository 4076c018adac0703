package models

import (
	"encoding/json"
	"strings"
)

// Format is the inferred encoding/category of a document.
type Format string

const (
	FormatStructured         Format = "Structured"
	FormatUnstructuredText   Format = "UnstructuredText"
	FormatCorrespondenceText Format = "CorrespondenceText"
	FormatPageDocument       Format = "PageDocument"
	FormatUnknown            Format = "Unknown"
)

// IsText reports whether documents of this format are handled as free text.
func (f Format) IsText() bool {
	return f == FormatUnstructuredText || f == FormatCorrespondenceText || f == FormatPageDocument
}

// MarshalJSON encodes the zero Format as null.
func (f Format) MarshalJSON() ([]byte, error) {
	return marshalNullable(string(f))
}

// UnmarshalJSON decodes null into the zero Format.
func (f *Format) UnmarshalJSON(b []byte) error {
	s, err := unmarshalNullable(b)
	*f = Format(s)
	return err
}

// Intent is the inferred business purpose of a document.
type Intent string

const (
	IntentInvoice           Intent = "Invoice"
	IntentRFQ               Intent = "RFQ"
	IntentComplaint         Intent = "Complaint"
	IntentRegulation        Intent = "Regulation"
	IntentGeneralInquiry    Intent = "General Inquiry"
	IntentOrderConfirmation Intent = "Order Confirmation"
	IntentOther             Intent = "Other"
)

// Intents is the closed intent vocabulary, in prompt order.
var Intents = []Intent{
	IntentInvoice,
	IntentRFQ,
	IntentComplaint,
	IntentRegulation,
	IntentGeneralInquiry,
	IntentOrderConfirmation,
	IntentOther,
}

// ParseIntent matches s case-insensitively against the vocabulary.
func ParseIntent(s string) (Intent, bool) {
	s = strings.TrimSpace(s)
	for _, in := range Intents {
		if strings.EqualFold(s, string(in)) {
			return in, true
		}
	}
	return IntentOther, false
}

// MarshalJSON encodes the zero Intent as null.
func (i Intent) MarshalJSON() ([]byte, error) {
	return marshalNullable(string(i))
}

// UnmarshalJSON decodes null into the zero Intent.
func (i *Intent) UnmarshalJSON(b []byte) error {
	s, err := unmarshalNullable(b)
	*i = Intent(s)
	return err
}

func marshalNullable(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

func unmarshalNullable(b []byte) (string, error) {
	if string(b) == "null" {
		return "", nil
	}
	var s string
	err := json.Unmarshal(b, &s)
	return s, err
}
