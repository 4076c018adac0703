package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreMirror replicates audit entries into Firestore, one document per
// thread with an "entries" subcollection. It implements audit.Sink.
type FirestoreMirror struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreMirror wraps client. collection defaults to "threads".
func NewFirestoreMirror(client *firestore.Client, collection string) *FirestoreMirror {
	if collection == "" {
		collection = "threads"
	}
	return &FirestoreMirror{client: client, collection: collection}
}

// Publish writes the entry and refreshes the thread summary in one transaction.
func (m *FirestoreMirror) Publish(ctx context.Context, entry models.AuditEntry) error {
	threadRef := m.client.Collection(m.collection).Doc(entry.ThreadID)
	entryRef := threadRef.Collection("entries").Doc(entry.LogID)

	summary := models.SummaryOf(entry)
	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(entryRef, entry); err != nil {
			return err
		}
		return tx.Set(threadRef, map[string]interface{}{
			"threadId":         summary.ThreadID,
			"sourceIdentifier": summary.SourceIdentifier,
			"sourceType":       summary.SourceType,
			"format":           summary.Format,
			"intent":           summary.Intent,
			"lastAgent":        summary.LastAgent,
			"lastEntryId":      summary.LastEntryID,
			"notes":            summary.Notes,
			"updatedAt":        summary.UpdatedAt,
			"entryCount":       firestore.Increment(1),
		}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("failed to mirror audit entry %s: %w", entry.LogID, err)
	}
	return nil
}

// History reads a thread's mirrored entries in timestamp order.
func (m *FirestoreMirror) History(ctx context.Context, threadID string) ([]models.AuditEntry, error) {
	iter := m.client.Collection(m.collection).Doc(threadID).Collection("entries").
		OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var entries []models.AuditEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mirrored history for %s: %w", threadID, err)
		}
		var entry models.AuditEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode mirrored entry %s: %w", doc.Ref.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Summary reads the mirrored thread summary.
func (m *FirestoreMirror) Summary(ctx context.Context, threadID string) (*models.ThreadSummary, error) {
	snap, err := m.client.Collection(m.collection).Doc(threadID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read thread summary %s: %w", threadID, err)
	}
	var summary models.ThreadSummary
	if err := snap.DataTo(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode thread summary %s: %w", threadID, err)
	}
	return &summary, nil
}

// Close closes the underlying Firestore client.
func (m *FirestoreMirror) Close() error {
	return m.client.Close()
}
