package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// Item is the typed projection of one inventory document.
type Item struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Batch        string          `json:"batch,omitempty"`
	Supplier     string          `json:"supplier,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int64           `json:"quantity"`
	ReorderLevel int64           `json:"reorder_level"`
	ExpiryDate   time.Time       `json:"expiry_date,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DecodeItem maps a raw document onto an Item. Missing or malformed fields
// decode to zero values rather than failing the snapshot.
func DecodeItem(doc realtime.RemoteDocument) Item {
	return Item{
		Key:          doc.Key,
		Name:         doc.String("name"),
		Category:     doc.String("category"),
		Batch:        doc.String("batch"),
		Supplier:     doc.String("supplier"),
		UnitPrice:    doc.Decimal("unit_price"),
		Quantity:     doc.Int64("quantity"),
		ReorderLevel: doc.Int64("reorder_level"),
		ExpiryDate:   doc.Time("expiry_date"),
		UpdatedAt:    doc.UpdatedAt,
	}
}

// IsLowStock reports whether the item needs reordering. Out-of-stock items
// are not "low", they are gone.
func (i Item) IsLowStock() bool {
	return i.Quantity > 0 && i.Quantity <= i.ReorderLevel
}

// IsOutOfStock reports whether the item has no sellable units left.
func (i Item) IsOutOfStock() bool {
	return i.Quantity <= 0
}

// ExpiresWithin reports whether the item expires within d of now and has not
// already expired. Items without an expiry date never match.
func (i Item) ExpiresWithin(now time.Time, d time.Duration) bool {
	if i.ExpiryDate.IsZero() {
		return false
	}
	return i.ExpiryDate.After(now) && !i.ExpiryDate.After(now.Add(d))
}
