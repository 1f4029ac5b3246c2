package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// OrderLine is one sold line inside an order document.
type OrderLine struct {
	ItemKey   string          `json:"item_key"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Manual    bool            `json:"manual"`
}

// Amount returns the line total.
func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// OrderRecord is the read model projected from the "sales" and
// "wholesale_orders" collections.
type OrderRecord struct {
	Key            string              `json:"key"`
	Collection     string              `json:"collection"`
	SessionID      string              `json:"session_id"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Lines          []OrderLine         `json:"lines"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Discount       decimal.Decimal     `json:"discount"`
	TaxPercent     decimal.Decimal     `json:"tax_percent"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	GrandTotal     decimal.Decimal     `json:"grand_total"`
	AmountTendered decimal.Decimal     `json:"amount_tendered"`
	Change         decimal.Decimal     `json:"change"`
	CustomerKey    string              `json:"customer_key,omitempty"`
	Label          string              `json:"label,omitempty"`
	RecordedAt     time.Time           `json:"recorded_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// IsWholesale reports whether the record came from the wholesale collection.
func (o OrderRecord) IsWholesale() bool {
	return o.Collection == realtime.CollectionWholesaleOrders
}

// UnitCount returns the total units across all lines.
func (o OrderRecord) UnitCount() int64 {
	var units int64
	for _, line := range o.Lines {
		units += line.Quantity
	}
	return units
}

// DecodeOrder maps a raw document onto an OrderRecord. Missing fields fall
// back to zero values so partially written documents still render.
func DecodeOrder(doc realtime.RemoteDocument) OrderRecord {
	record := OrderRecord{
		Key:            doc.Key,
		Collection:     doc.Collection,
		SessionID:      doc.String("session_id"),
		Status:         enums.OrderStatus(doc.String("status")),
		PaymentMethod:  enums.PaymentMethod(doc.String("payment_method")),
		Subtotal:       doc.Decimal("subtotal"),
		Discount:       doc.Decimal("discount"),
		TaxPercent:     doc.Decimal("tax_percent"),
		TaxAmount:      doc.Decimal("tax_amount"),
		GrandTotal:     doc.Decimal("grand_total"),
		AmountTendered: doc.Decimal("amount_tendered"),
		Change:         doc.Decimal("change"),
		CustomerKey:    doc.String("customer_key"),
		Label:          doc.String("label"),
		RecordedAt:     doc.Time("recorded_at"),
		UpdatedAt:      doc.UpdatedAt,
	}
	for _, line := range doc.Objects("lines") {
		record.Lines = append(record.Lines, OrderLine{
			ItemKey:   line.String("item_key"),
			Name:      line.String("name"),
			UnitPrice: line.Decimal("unit_price"),
			Quantity:  line.Int64("quantity"),
			Manual:    line.Bool("manual"),
		})
	}
	return record
}
