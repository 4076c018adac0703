package models

import "time"

// Agent names recorded in AuditEntry.AgentProcessed.
const (
	AgentDispatcher       = "Dispatcher"
	AgentSchemaValidator  = "SchemaValidator"
	AgentContentProcessor = "ContentProcessor"
)

// AuditEntry is one immutable step in a document's processing lineage.
// Entries sharing a ThreadID belong to the same document journey.
type AuditEntry struct {
	LogID            string         `json:"log_id" firestore:"logId"`
	Timestamp        time.Time      `json:"timestamp" firestore:"timestamp"`
	ThreadID         string         `json:"thread_id" firestore:"threadId"`
	SourceIdentifier string         `json:"source_identifier" firestore:"sourceIdentifier"`
	SourceType       string         `json:"source_type" firestore:"sourceType"`
	ClassifiedFormat Format         `json:"classified_format" firestore:"classifiedFormat"`
	ClassifiedIntent Intent         `json:"classified_intent" firestore:"classifiedIntent"`
	AgentProcessed   string         `json:"agent_processed" firestore:"agentProcessed"`
	ExtractedData    map[string]any `json:"extracted_data" firestore:"extractedData"`
	Notes            string         `json:"notes" firestore:"notes"`
}

// AuditRecord is what a component hands to the audit store. The store fills
// in the entry id, the timestamp and, when ThreadID is empty, a new thread.
type AuditRecord struct {
	ThreadID         string
	SourceIdentifier string
	SourceType       string
	Format           Format
	Intent           Intent
	Agent            string
	Data             map[string]any
	Notes            string
}
