package models

import "time"

// ThreadSummary is the per-thread record kept in Firestore next to the mirrored
// audit entries. It always reflects the thread's last known entry.
type ThreadSummary struct {
	ThreadID         string    `firestore:"threadId,omitempty"`
	SourceIdentifier string    `firestore:"sourceIdentifier,omitempty"`
	SourceType       string    `firestore:"sourceType,omitempty"`
	Format           string    `firestore:"format,omitempty"`
	Intent           string    `firestore:"intent,omitempty"`
	LastAgent        string    `firestore:"lastAgent,omitempty"`
	LastEntryID      string    `firestore:"lastEntryId,omitempty"`
	Notes            string    `firestore:"notes,omitempty"`
	EntryCount       int64     `firestore:"entryCount,omitempty"`
	UpdatedAt        time.Time `firestore:"updatedAt,omitempty"`
}

// SummaryOf builds the thread summary for the given entry.
func SummaryOf(e AuditEntry) ThreadSummary {
	return ThreadSummary{
		ThreadID:         e.ThreadID,
		SourceIdentifier: e.SourceIdentifier,
		SourceType:       e.SourceType,
		Format:           string(e.ClassifiedFormat),
		Intent:           string(e.ClassifiedIntent),
		LastAgent:        e.AgentProcessed,
		LastEntryID:      e.LogID,
		Notes:            e.Notes,
		UpdatedAt:        e.Timestamp,
	}
}
