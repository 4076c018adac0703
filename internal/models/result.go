package models

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for inputs that carry no usable shape.
var ErrInvalidInput = errors.New("invalid input")

// Status is the outcome class of a dispatched document.
type Status string

const (
	StatusRouted       Status = "routed"
	StatusUnrouted     Status = "unrouted"
	StatusParseFailure Status = "parse_failure"
)

// ParseError reports a structured-record payload that could not be decoded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse structured record %q: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result is what a processor (or the dispatcher, for unrouted documents)
// returns. Fields is also embedded in the terminal audit entry, which is
// carried in Entry.
type Result struct {
	Status  Status         `json:"status"`
	Agent   string         `json:"agent,omitempty"`
	Fields  map[string]any `json:"fields"`
	Entry   AuditEntry     `json:"-"`
	Failure *ParseError    `json:"-"`
}
