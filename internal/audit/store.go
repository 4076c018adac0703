// Package audit implements the append-only, thread-correlated processing log.
//
// The log is a single JSON array on disk, rewritten in full on every append.
// Appends are serialised by a mutex around the read-modify-write so that
// concurrent dispatches never lose each other's entries.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/documentrouter/internal/logger"
	"github.com/Lllllllleong/documentrouter/internal/models"
)

// ErrPersist wraps every failure to write the log to durable storage.
var ErrPersist = errors.New("audit log persistence failed")

// Sink receives every entry after it has been durably written.
type Sink interface {
	Publish(ctx context.Context, entry models.AuditEntry) error
	Close() error
}

// Store is the audit log. Construct it with Open; the zero value is not usable.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []models.AuditEntry
	sinks   []Sink
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSinks registers mirrors that receive each appended entry.
func WithSinks(sinks ...Sink) Option {
	return func(s *Store) { s.sinks = append(s.sinks, sinks...) }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger overrides the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the log at path. A missing or unreadable log is not an error:
// the store starts empty and logs a warning.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path must be provided")
	}
	s := &Store{
		path:   path,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
		logger: logger.WithComponent("audit"),
	}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := readLog(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("Audit log not found. Starting with empty log.", "path", path)
	case err != nil:
		s.logger.Warn("Could not decode audit log. Starting with empty log.", "path", path, "error", err)
	default:
		s.entries = entries
		s.logger.Info("Loaded audit log.", "path", path, "entries", len(entries))
	}
	return s, nil
}

// Append records one entry. When rec.ThreadID is empty a new thread is
// started. The returned entry carries the assigned ids. A persistence failure
// is returned wrapped in ErrPersist and leaves the log unchanged.
func (s *Store) Append(ctx context.Context, rec models.AuditRecord) (models.AuditEntry, error) {
	threadID := rec.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}
	data := rec.Data
	if data == nil {
		data = map[string]any{}
	}

	s.mu.Lock()
	entry := models.AuditEntry{
		LogID:            s.newID(),
		Timestamp:        s.now(),
		ThreadID:         threadID,
		SourceIdentifier: rec.SourceIdentifier,
		SourceType:       rec.SourceType,
		ClassifiedFormat: rec.Format,
		ClassifiedIntent: rec.Intent,
		AgentProcessed:   rec.Agent,
		ExtractedData:    data,
		Notes:            rec.Notes,
	}

	current := s.entries
	if persisted, err := readLog(s.path); err == nil {
		current = persisted
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Persisted audit log unreadable, appending to in-memory state.", "path", s.path, "error", err)
	}

	next := make([]models.AuditEntry, len(current), len(current)+1)
	copy(next, current)
	next = append(next, entry)
	if err := writeLog(s.path, next); err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to persist audit entry", "threadId", threadID, "error", err)
		return models.AuditEntry{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	s.entries = next
	sinks := s.sinks
	s.mu.Unlock()

	s.logger.Debug("Audit entry added.", "logId", entry.LogID, "threadId", threadID, "agent", entry.AgentProcessed)
	for _, sink := range sinks {
		if err := sink.Publish(ctx, entry); err != nil {
			s.logger.Warn("Audit mirror publish failed", "threadId", threadID, "logId", entry.LogID, "error", err)
		}
	}
	return entry, nil
}

// Last returns the most recent entry of a thread.
func (s *Store) Last(threadID string) (models.AuditEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ThreadID == threadID {
			return s.entries[i], true
		}
	}
	return models.AuditEntry{}, false
}

// History returns every entry of a thread in append order.
func (s *Store) History(threadID string) []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range s.entries {
		if e.ThreadID == threadID {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of the whole log.
func (s *Store) Entries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Threads returns the distinct thread ids in order of first appearance.
func (s *Store) Threads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.entries {
		if !seen[e.ThreadID] {
			seen[e.ThreadID] = true
			out = append(out, e.ThreadID)
		}
	}
	return out
}

// Path returns the location of the persisted log.
func (s *Store) Path() string { return s.path }

// Close releases the registered sinks. Every entry is already on disk.
func (s *Store) Close() error {
	s.mu.Lock()
	sinks := s.sinks
	s.sinks = nil
	s.mu.Unlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readLog(path string) ([]models.AuditEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []models.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return entries, nil
}

// writeLog replaces the log atomically: a reader sees either the old or the
// new document, never a partial one.
func writeLog(path string, entries []models.AuditEntry) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode audit log: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace audit log: %w", err)
	}
	return nil
}
