package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingSink struct {
	steps int
}

func (s *countingSink) StepDetected() { s.steps++ }

func TestStepHandlerCountsSingleSteps(t *testing.T) {
	sink := &countingSink{}
	handler := NewStepHandler(sink)

	event := Event{Type: EventStepDetected, Payload: json.RawMessage(`{"value":1}`)}
	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	require.Equal(t, 3, sink.steps)
}

func TestStepHandlerIgnoresNonUnitValues(t *testing.T) {
	sink := &countingSink{}
	handler := NewStepHandler(sink)

	for _, raw := range []string{`{"value":0}`, `{"value":2}`, `{"value":0.5}`, `{}`} {
		require.NoError(t, handler.Handle(context.Background(), Event{
			Type:    EventStepDetected,
			Payload: json.RawMessage(raw),
		}))
	}

	require.Equal(t, 0, sink.steps)
}

func TestStepHandlerSkipsOtherEventTypes(t *testing.T) {
	sink := &countingSink{}
	handler := NewStepHandler(sink)

	require.NoError(t, handler.Handle(context.Background(), Event{
		Type:    EventAccuracyChanged,
		Payload: json.RawMessage(`{"accuracy":3}`),
	}))
	require.NoError(t, handler.Handle(context.Background(), Event{
		Type:    "step.unknown_v2",
		Payload: json.RawMessage(`{"value":1}`),
	}))

	require.Equal(t, 0, sink.steps)
}

func TestStepHandlerRejectsMalformedPayload(t *testing.T) {
	sink := &countingSink{}
	handler := NewStepHandler(sink)

	err := handler.Handle(context.Background(), Event{
		Type:    EventStepDetected,
		Payload: json.RawMessage(`not-json`),
	})

	require.Error(t, err)
	require.Equal(t, 0, sink.steps)
}
