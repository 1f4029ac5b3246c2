package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentChangedEvent is published for every document store write. Mirrors
// treat it as a trigger to reload the affected collection.
type DocumentChangedEvent struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Action     string `json:"action"`
}

// SaleRecordedEvent is emitted after a retail checkout completes.
type SaleRecordedEvent struct {
	OrderKey      string          `json:"order_key"`
	SessionID     string          `json:"session_id"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaymentMethod string          `json:"payment_method"`
	LineCount     int             `json:"line_count"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// WholesaleRecordedEvent is emitted after a wholesale checkout completes.
type WholesaleRecordedEvent struct {
	OrderKey   string          `json:"order_key"`
	SessionID  string          `json:"session_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	LineCount  int             `json:"line_count"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// OrderCancelledEvent is emitted when a completed or draft order is cancelled.
type OrderCancelledEvent struct {
	OrderKey    string    `json:"order_key"`
	Collection  string    `json:"collection"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// StockAdjustedEvent reports an inventory quantity change.
type StockAdjustedEvent struct {
	ItemKey          string `json:"item_key"`
	Name             string `json:"name"`
	PreviousQuantity int64  `json:"previous_quantity"`
	NewQuantity      int64  `json:"new_quantity"`
}

// StockLowEvent is emitted when a decrement leaves an item at or below its
// reorder level.
type StockLowEvent struct {
	ItemKey      string `json:"item_key"`
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	ReorderLevel int64  `json:"reorder_level"`
}

// StockExpiringEvent is emitted by the scheduled expiry sweep for batches
// that fall inside the warning window.
type StockExpiringEvent struct {
	ItemKey    string    `json:"item_key"`
	Name       string    `json:"name"`
	Batch      string    `json:"batch,omitempty"`
	ExpiryDate time.Time `json:"expiry_date"`
	DaysLeft   int       `json:"days_left"`
}

// ExpenseRecordedEvent is emitted when an expense document is written.
type ExpenseRecordedEvent struct {
	ExpenseKey  string          `json:"expense_key"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// PrescriptionRecordedEvent is emitted when a prescription document is written.
type PrescriptionRecordedEvent struct {
	PrescriptionKey string    `json:"prescription_key"`
	PatientName     string    `json:"patient_name"`
	RecordedBy      uuid.UUID `json:"recorded_by"`
	RecordedAt      time.Time `json:"recorded_at"`
}
