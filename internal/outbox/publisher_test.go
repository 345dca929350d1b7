package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	events []*domainOutbox.Event
	err    error
}

func (w *recordingWriter) Create(_ context.Context, e *domainOutbox.Event) error {
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, e)
	return nil
}

func newTestPublisher(w EventWriter, now time.Time) *Publisher {
	p := NewPublisher(w)
	p.now = func() time.Time { return now }
	return p
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w := &recordingWriter{}

	e, err := newTestPublisher(w, now).Publish(context.Background(), "order.created", map[string]string{"orderId": "O1"})
	require.NoError(t, err)
	require.Len(t, w.events, 1)

	assert.Same(t, e, w.events[0])
	assert.Equal(t, "order.created", e.EventType)
	assert.Equal(t, domainOutbox.StatusNew, e.Status)
	assert.Equal(t, 0, e.Attempts)
	assert.Equal(t, now, e.OccurredAt)
	assert.Equal(t, now, e.CreatedAt)
	assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
	assert.JSONEq(t, `{"orderId":"O1"}`, string(e.Payload))
}

func TestPublisher_PublishDraftKeepsMetadata(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	occurred := now.Add(-time.Minute)
	w := &recordingWriter{}

	e, err := newTestPublisher(w, now).PublishDraft(context.Background(), Draft{
		EventType:     "  attendance.marked ",
		Payload:       json.RawMessage(`{"status":"ABSENT"}`),
		OccurredAt:    occurred,
		CorrelationID: "lesson-1",
		TraceID:       "trace-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "attendance.marked", e.EventType)
	assert.Equal(t, occurred, e.OccurredAt)
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, "lesson-1", e.CorrelationID)
	assert.Equal(t, "trace-1", e.TraceID)
	assert.JSONEq(t, `{"status":"ABSENT"}`, string(e.Payload))
}

func TestPublisher_RawPayloadIsCopied(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"a":1}`)
	w := &recordingWriter{}

	e, err := newTestPublisher(w, time.Now()).Publish(context.Background(), "x", raw)
	require.NoError(t, err)

	raw[2] = 'b'
	assert.JSONEq(t, `{"a":1}`, string(e.Payload))
}

func TestPublisher_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		eventType string
		payload   any
		want      error
	}{
		{name: "blank type", eventType: "  ", payload: map[string]int{"a": 1}, want: ErrEventTypeRequired},
		{name: "nil payload", eventType: "x", payload: nil, want: ErrPayloadRequired},
		{name: "typed nil pointer", eventType: "x", payload: (*struct{ A int })(nil), want: ErrPayloadRequired},
		{name: "json null", eventType: "x", payload: json.RawMessage(`null`), want: ErrPayloadRequired},
		{name: "unmarshalable", eventType: "x", payload: map[string]any{"f": math.Inf(1)}, want: ErrSerialization},
		{name: "channel", eventType: "x", payload: make(chan int), want: ErrSerialization},
		{name: "invalid raw json", eventType: "x", payload: []byte(`{"a":`), want: ErrSerialization},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := &recordingWriter{}
			_, err := newTestPublisher(w, time.Now()).Publish(context.Background(), tc.eventType, tc.payload)
			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, w.events, "nothing is written on rejection")
		})
	}
}

func TestPublisher_StoreErrorIsWrapped(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{err: domainOutbox.ErrTransactionRequired}

	_, err := newTestPublisher(w, time.Now()).Publish(context.Background(), "x", map[string]int{"a": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainOutbox.ErrTransactionRequired))
}
