package consumer

import (
	"context"
	"encoding/json"
)

// StepCounter is the sink for detected steps.
type StepCounter interface {
	StepDetected()
}

// StepHandler feeds step.detected events into the counter. Accuracy changes
// are acknowledged and ignored.
type StepHandler struct {
	counter StepCounter
}

// NewStepHandler constructs a handler over the counter.
func NewStepHandler(counter StepCounter) *StepHandler {
	return &StepHandler{counter: counter}
}

// Handle counts one step per step.detected event with value 1. Unknown event
// types are skipped so new bridge versions cannot wedge the consumer.
func (h *StepHandler) Handle(_ context.Context, event Event) error {
	if event.Type != EventStepDetected {
		return nil
	}

	var payload StepPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	if payload.Value != 1 {
		return nil
	}

	h.counter.StepDetected()
	return nil
}
