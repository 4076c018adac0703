package models

// These structs define the JSON payloads exchanged with the intake functions.

// IntakeRequest is the body accepted by the HTTP intake function. Exactly one
// of Text, Record or Content (base64 file bytes, with Filename) is expected.
type IntakeRequest struct {
	SourceIdentifier string         `json:"sourceIdentifier"`
	SourceType       string         `json:"sourceType"`
	ThreadID         string         `json:"threadId,omitempty"`
	Text             string         `json:"text,omitempty"`
	Record           map[string]any `json:"record,omitempty"`
	Filename         string         `json:"filename,omitempty"`
	Content          []byte         `json:"content,omitempty"`
}

// IntakeResponse is returned by the intake functions.
type IntakeResponse struct {
	Status    string         `json:"status"`
	ThreadID  string         `json:"threadId"`
	Result    map[string]any `json:"result"`
	ResultURI string         `json:"resultUri,omitempty"`
}

// HandoffPayload is the argument passed to the downstream workflow.
type HandoffPayload struct {
	ThreadID   string `json:"threadId"`
	Format     string `json:"format"`
	Intent     string `json:"intent"`
	Status     string `json:"status"`
	SourceType string `json:"sourceType"`
}
