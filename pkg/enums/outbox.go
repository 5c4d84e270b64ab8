package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregatePaymentIntent OutboxAggregateType = "payment_intent"
	AggregateBag           OutboxAggregateType = "bag"
	AggregateBoostUsage    OutboxAggregateType = "boost_usage"
	AggregateReview        OutboxAggregateType = "review"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePaymentIntent,
	AggregateBag,
	AggregateBoostUsage,
	AggregateReview,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderCollected       OutboxEventType = "order_collected"
	EventOrderCompleted       OutboxEventType = "order_completed"
	EventOrderExpired         OutboxEventType = "order_expired"
	EventPaymentIntentCreated OutboxEventType = "payment_intent_created"
	EventPaymentIntentPaid    OutboxEventType = "payment_intent_paid"
	EventPaymentIntentExpired OutboxEventType = "payment_intent_expired"
	EventBoostActivated       OutboxEventType = "boost_activated"
	EventReviewSubmitted      OutboxEventType = "review_submitted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCollected,
	EventOrderCompleted,
	EventOrderExpired,
	EventPaymentIntentCreated,
	EventPaymentIntentPaid,
	EventPaymentIntentExpired,
	EventBoostActivated,
	EventReviewSubmitted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
