package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
)

// Processor handles one decoded order event.
type Processor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker consumes the analytics subscription and feeds the consumer.
type Worker struct {
	subscription *gcppubsub.Subscriber
	processor    Processor
	logg         *logger.Logger
}

// NewWorker creates the analytics subscription worker.
func NewWorker(subscription *gcppubsub.Subscriber, processor Processor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	if processor == nil {
		return nil, errors.New("event processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{subscription: subscription, processor: processor, logg: logg}, nil
}

// Run consumes messages until the context is canceled. Malformed messages are
// acked; only processor failures nack for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) (nack bool) {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := w.logg.WithFields(ctx, fields)

	eventType, envelope, err := decodeMessage(msg)
	if err != nil {
		fields["error"] = err.Error()
		w.logg.Warn(w.logg.WithFields(ctx, fields), "invalid analytics message")
		return false
	}

	fields["event_id"] = envelope.EventID
	fields["event_type"] = eventType
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = w.logg.WithFields(ctx, fields)

	if err := w.processor.Process(logCtx, eventType, envelope); err != nil {
		w.logg.Error(logCtx, "analytics processing failed", err)
		return true
	}
	return false
}

func decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, outbox.PayloadEnvelope, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return "", envelope, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType := enums.OutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if !eventType.IsValid() {
		return "", envelope, fmt.Errorf("unknown event_type %q", msg.Attributes["event_type"])
	}
	if envelope.EventID == "" {
		return "", envelope, errors.New("event id missing from envelope")
	}
	return eventType, envelope, nil
}
