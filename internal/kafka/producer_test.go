package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublish_KeyedByThread(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "document-audit")

	entry := models.AuditEntry{
		LogID:            "l1",
		ThreadID:         "t1",
		AgentProcessed:   models.AgentDispatcher,
		ClassifiedFormat: models.FormatStructured,
		ClassifiedIntent: models.IntentInvoice,
		ExtractedData:    map[string]any{},
	}
	require.NoError(t, p.Publish(context.Background(), entry))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "t1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "Dispatcher", string(msg.Headers[0].Value))

	var decoded models.AuditEntry
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "l1", decoded.LogID)
	assert.Equal(t, models.IntentInvoice, decoded.ClassifiedIntent)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriteError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, "t")

	err := p.Publish(context.Background(), models.AuditEntry{ThreadID: "t1"})
	assert.ErrorContains(t, err, "broker down")
}
