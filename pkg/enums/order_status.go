package enums

import "fmt"

// OrderStatus tracks the lifecycle of a rescue order.
//
// pending   -> collected -> completed
// pending   -> expired (reaper only, PIX abandoned)
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCollected OrderStatus = "collected"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusExpired   OrderStatus = "expired"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusCollected,
	OrderStatusCompleted,
	OrderStatusExpired,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusExpired
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
