package enums

import "fmt"

// OrderStatus tracks the lifecycle of a persisted order record.
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCompleted,
	OrderStatusDraft,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
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

// CanTransitionTo reports whether the status change is allowed for back-office edits.
// The cart engine never mutates a written record; only these transitions are legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusCompleted:
		return next == OrderStatusCancelled
	case OrderStatusDraft:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	default:
		return false
	}
}
