package enums

import "fmt"

// PaymentStatus tracks gateway-side progress of a payment intent.
type PaymentStatus string

const (
	PaymentStatusAwaitingPayment PaymentStatus = "awaiting_payment"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusExpired         PaymentStatus = "expired"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusAwaitingPayment,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusExpired,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
