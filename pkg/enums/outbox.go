package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column in outbox_events.
type OutboxAggregateType string

const (
	AggregateDocument      OutboxAggregateType = "document"
	AggregateOrder         OutboxAggregateType = "order"
	AggregateInventoryItem OutboxAggregateType = "inventory_item"
	AggregateExpense       OutboxAggregateType = "expense"
	AggregatePrescription  OutboxAggregateType = "prescription"
	AggregateNotification  OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateDocument,
	AggregateOrder,
	AggregateInventoryItem,
	AggregateExpense,
	AggregatePrescription,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type set.
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

// OutboxEventType maps to the event_type column in outbox_events.
type OutboxEventType string

const (
	EventDocumentChanged      OutboxEventType = "document_changed"
	EventSaleRecorded         OutboxEventType = "sale_recorded"
	EventWholesaleRecorded    OutboxEventType = "wholesale_order_recorded"
	EventOrderCancelled       OutboxEventType = "order_cancelled"
	EventStockAdjusted        OutboxEventType = "stock_adjusted"
	EventStockLow             OutboxEventType = "stock_low"
	EventStockExpiring        OutboxEventType = "stock_expiring"
	EventExpenseRecorded      OutboxEventType = "expense_recorded"
	EventPrescriptionRecorded OutboxEventType = "prescription_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDocumentChanged,
	EventSaleRecorded,
	EventWholesaleRecorded,
	EventOrderCancelled,
	EventStockAdjusted,
	EventStockLow,
	EventStockExpiring,
	EventExpenseRecorded,
	EventPrescriptionRecorded,
}

// IsValid reports whether the value matches the canonical event_type set.
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

// OutboxDLQErrorReason classifies why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

// IsValid reports whether the value matches the canonical reason set.
func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
