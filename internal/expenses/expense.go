package expenses

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// Expense is the read model for one expense document.
type Expense struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category"`
	IncurredAt time.Time       `json:"incurred_at"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// CategoryOther collects expenses no keyword bucket claims.
const CategoryOther = "other"

type bucket struct {
	category string
	keywords []string
}

// Bucket order matters: the first keyword hit wins, so more specific
// buckets sit above broader ones.
var buckets = []bucket{
	{category: "rent", keywords: []string{"rent", "lease"}},
	{category: "utilities", keywords: []string{"electric", "water", "internet", "wifi", "power", "garbage"}},
	{category: "salaries", keywords: []string{"salary", "salaries", "wage", "payroll", "staff"}},
	{category: "stock", keywords: []string{"stock", "supplier", "supplies", "purchase", "restock"}},
	{category: "transport", keywords: []string{"transport", "fuel", "delivery", "courier"}},
	{category: "licenses", keywords: []string{"license", "licence", "permit", "compliance"}},
}

// Categorize maps an expense label to its keyword bucket. Matching is a
// case-insensitive substring scan; the first hit wins and anything
// unmatched falls to "other".
func Categorize(label string) string {
	needle := strings.ToLower(label)
	for _, b := range buckets {
		for _, keyword := range b.keywords {
			if strings.Contains(needle, keyword) {
				return b.category
			}
		}
	}
	return CategoryOther
}

// Categories lists the known buckets in match order, "other" last.
func Categories() []string {
	out := make([]string, 0, len(buckets)+1)
	for _, b := range buckets {
		out = append(out, b.category)
	}
	return append(out, CategoryOther)
}

// DecodeExpense maps a raw document onto an Expense.
func DecodeExpense(doc realtime.RemoteDocument) Expense {
	return Expense{
		Key:        doc.Key,
		Label:      doc.String("label"),
		Amount:     doc.Decimal("amount"),
		Category:   doc.String("category"),
		IncurredAt: doc.Time("incurred_at"),
		RecordedAt: doc.CreatedAt,
	}
}
