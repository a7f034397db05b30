// Package consumer pulls step events from Kafka and feeds them to the
// aggregator.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Redish03/StepCounter/internal/domain"
)

// Event types emitted by the device bridge.
const (
	EventStepDetected    = "step.detected"
	EventAccuracyChanged = "step.accuracy_changed"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded step events.
type Handler interface {
	Handle(context.Context, Event) error
}

// Event is the decoded representation of a Kafka record from the step topic.
type Event struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Type      string
	DeviceID  string
	Payload   json.RawMessage
}

// StepPayload is the body of a step.detected record. A step event carries no
// magnitude; Value confirms exactly one physical step.
type StepPayload struct {
	Value float64 `json:"value"`
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a
// Handler. A permission failure from the broker stops the processor; an
// unavailable source is reported once and degrades to a silent (zero-step)
// session.
type Processor struct {
	reader   Reader
	handler  Handler
	logger   *log.Logger
	degraded bool
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes step events until the context is
// cancelled. It returns domain.ErrPermissionDenied when the broker refuses
// access, so the caller can distinguish "not started" from a clean stop.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if classified := ClassifySourceError(err); errors.Is(classified, domain.ErrPermissionDenied) {
				return classified
			} else if errors.Is(classified, domain.ErrSensorUnavailable) {
				if !p.degraded {
					p.degraded = true
					p.logger.Printf("step source unavailable, counting disabled for this session: %v", err)
				}
				continue
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, event); handleErr != nil {
			p.logger.Printf("handler error (event_type=%s, device=%s): %v", event.Type, event.DeviceID, handleErr)
			recordHandlerError(event)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(event)
		}
	}
}

// ClassifySourceError maps broker failures onto the aggregator's startup
// taxonomy: authorization problems block the session, a missing topic
// degrades it.
func ClassifySourceError(err error) error {
	switch {
	case errors.Is(err, kafka.TopicAuthorizationFailed),
		errors.Is(err, kafka.GroupAuthorizationFailed),
		errors.Is(err, kafka.ClusterAuthorizationFailed),
		errors.Is(err, kafka.SASLAuthenticationFailed):
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	case errors.Is(err, kafka.UnknownTopicOrPartition):
		return fmt.Errorf("%w: %v", domain.ErrSensorUnavailable, err)
	}
	return err
}

func decodeMessage(msg kafka.Message) (Event, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Event{}, errors.New("missing event_type header")
	}
	deviceID, _ := headerValue(msg, "device_id")

	payload := json.RawMessage(append([]byte(nil), msg.Value...))

	return Event{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Type:      string(eventType),
		DeviceID:  string(deviceID),
		Payload:   payload,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
