// Package oracle wraps the external text-understanding service used for
// intent classification, sender extraction, urgency and summaries.
//
// No call in this package fails from the caller's point of view: every
// operation degrades to a safe default and reports why in a Failure value.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/documentrouter/internal/logger"
	"github.com/Lllllllleong/documentrouter/internal/models"
)

// Input caps, in characters.
const (
	ClassifyMaxChars = 2000
	SenderMaxChars   = 1000
	UrgencyMaxChars  = 1500
	SummaryMaxChars  = 2000
)

// Sampling temperatures per operation.
const (
	ClassifyTemperature float32 = 0.2
	SenderTemperature   float32 = 0.1
	UrgencyTemperature  float32 = 0.2
	SummaryTemperature  float32 = 0.5
)

// Caller is the boundary to the external service.
type Caller interface {
	Call(ctx context.Context, prompt string, temperature float32) (string, error)
}

// ErrUnavailable is returned by callers that have no backing service.
var ErrUnavailable = errors.New("oracle unavailable")

// Failure says why a call did not yield a usable answer.
type Failure string

const (
	FailureNone         Failure = ""
	FailureTransport    Failure = "transport"
	FailureEmpty        Failure = "empty"
	FailureUnrecognized Failure = "unrecognized"
)

// Reply is the outcome of a single oracle call.
type Reply struct {
	Text    string
	Failure Failure
	Err     error
}

// OK reports whether the call produced a non-empty answer.
func (r Reply) OK() bool { return r.Failure == FailureNone }

// Classification is the normalised intent plus what the oracle actually said.
type Classification struct {
	Intent  models.Intent
	Raw     string
	Failure Failure
	Err     error
}

// Urgency levels.
const (
	UrgencyLow    = "Low"
	UrgencyMedium = "Medium"
	UrgencyHigh   = "High"
)

// Client issues the prompts. A nil Caller behaves like Disabled.
type Client struct {
	caller  Caller
	timeout time.Duration
	logger  *slog.Logger
	onFail  func(op string, f Failure)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every call. Expiry counts as a transport failure.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithFailureHook is invoked for every degraded call, e.g. to count failures.
func WithFailureHook(fn func(op string, f Failure)) ClientOption {
	return func(c *Client) { c.onFail = fn }
}

// NewClient creates a Client around caller.
func NewClient(caller Caller, opts ...ClientOption) *Client {
	if caller == nil {
		caller = Disabled{}
	}
	c := &Client{
		caller: caller,
		logger: logger.WithComponent("oracle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends a raw prompt and classifies the outcome.
func (c *Client) Call(ctx context.Context, op, prompt string, temperature float32) Reply {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.caller.Call(ctx, prompt, temperature)
	var reply Reply
	switch {
	case err != nil:
		reply = Reply{Failure: FailureTransport, Err: err}
	case strings.TrimSpace(text) == "":
		reply = Reply{Failure: FailureEmpty, Err: errors.New("empty response")}
	default:
		return Reply{Text: strings.TrimSpace(text)}
	}
	c.fail(op, reply.Failure, reply.Err)
	return reply
}

// Classify asks for the primary intent of text. Anything outside the closed
// vocabulary resolves to Other.
func (c *Client) Classify(ctx context.Context, text string, format models.Format) Classification {
	reply := c.Call(ctx, "classify", classifyPrompt(text, format), ClassifyTemperature)
	if !reply.OK() {
		return Classification{Intent: models.IntentOther, Failure: reply.Failure, Err: reply.Err}
	}
	intent, ok := NormalizeIntent(reply.Text)
	if !ok {
		c.logger.Warn("Oracle returned an unexpected intent. Defaulting to Other.", "response", reply.Text)
		c.fail("classify", FailureUnrecognized, nil)
		return Classification{Intent: models.IntentOther, Raw: reply.Text, Failure: FailureUnrecognized}
	}
	return Classification{Intent: intent, Raw: reply.Text}
}

// ExtractSender asks for the primary sender of a message.
func (c *Client) ExtractSender(ctx context.Context, text string) Reply {
	return c.Call(ctx, "sender", senderPrompt(text), SenderTemperature)
}

// AssessUrgency returns Low, Medium or High. Any other answer, and any
// failure, yields Medium.
func (c *Client) AssessUrgency(ctx context.Context, text string) (string, Reply) {
	reply := c.Call(ctx, "urgency", urgencyPrompt(text), UrgencyTemperature)
	if !reply.OK() {
		return UrgencyMedium, reply
	}
	urgency, ok := NormalizeUrgency(reply.Text)
	if !ok {
		c.fail("urgency", FailureUnrecognized, nil)
		return UrgencyMedium, Reply{Text: reply.Text, Failure: FailureUnrecognized}
	}
	return urgency, reply
}

// Summarize produces a short summary with key entities and action items.
func (c *Client) Summarize(ctx context.Context, text string, intent models.Intent) Reply {
	return c.Call(ctx, "summary", summaryPrompt(text, intent), SummaryTemperature)
}

// NormalizeIntent maps free text onto the vocabulary. Surrounding quotes and a
// trailing period are tolerated.
func NormalizeIntent(s string) (models.Intent, bool) {
	return models.ParseIntent(trimAnswer(s))
}

// NormalizeUrgency maps free text onto Low, Medium or High.
func NormalizeUrgency(s string) (string, bool) {
	switch strings.ToLower(trimAnswer(s)) {
	case "low":
		return UrgencyLow, true
	case "medium":
		return UrgencyMedium, true
	case "high":
		return UrgencyHigh, true
	}
	return UrgencyMedium, false
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ErrorText renders a failed reply the way it is surfaced in results.
func ErrorText(r Reply) string {
	if r.Err != nil {
		return fmt.Sprintf("Error: %v", r.Err)
	}
	return fmt.Sprintf("Error: %s", r.Failure)
}

func trimAnswer(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`.*")
}

func (c *Client) fail(op string, f Failure, err error) {
	c.logger.Warn("Oracle call degraded", "operation", op, "failure", string(f), "error", err)
	if c.onFail != nil {
		c.onFail(op, f)
	}
}

// Disabled is a Caller with no backing service; every call is a transport
// failure. It lets the pipeline run fully degraded.
type Disabled struct{}

// Call always fails with ErrUnavailable.
func (Disabled) Call(context.Context, string, float32) (string, error) {
	return "", ErrUnavailable
}
