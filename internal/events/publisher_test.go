package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_KeysByDriverAndStampsEvent(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}

	err := p.Publish(context.Background(), DispatchEvent{OrderID: "o1", Status: "accepted", DriverID: "d1", Probability: 0.8})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "d1", string(msg.Key))

	var ev DispatchEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	_, err = uuid.Parse(ev.EventID)
	assert.NoError(t, err)
	assert.False(t, ev.OccurredAt.IsZero())
	assert.Equal(t, ev.EventID, string(msg.Headers[0].Value))
}

func TestKafkaPublisher_UnassignedKeysByOrder(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), DispatchEvent{OrderID: "o9", Status: "failed", Reason: "no_drivers_nearby"}))
	assert.Equal(t, "o9", string(w.msgs[0].Key))
}

func TestKafkaPublisher_PropagatesWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &recordingWriter{err: boom}}
	assert.ErrorIs(t, p.Publish(context.Background(), DispatchEvent{OrderID: "o1"}), boom)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, (&KafkaPublisher{writer: w}).Close())
	assert.True(t, w.closed)
}
