// Package reports derives metrics from mirror snapshots. Every function is
// pure: the caller passes the snapshots and the reference time, so the same
// inputs always produce the same report.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/internal/expenses"
	"github.com/chemtech-ke/pharmos-backend/internal/inventory"
	"github.com/chemtech-ke/pharmos-backend/internal/sales"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
)

// ExpiryWindow is how far ahead an expiry date counts as "expiring soon".
const ExpiryWindow = 30 * 24 * time.Hour

// sameDay compares calendar days in now's location. Day boundaries follow
// the till's local clock, not UTC.
func sameDay(t, now time.Time) bool {
	ty, tm, td := t.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}

func counts(record sales.OrderRecord) bool {
	return record.Status == enums.OrderStatusCompleted
}

// TodaysRevenue sums the grand totals of completed orders recorded on the
// same calendar day as now.
func TodaysRevenue(orders []sales.OrderRecord, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, record := range orders {
		if !counts(record) || !sameDay(record.RecordedAt, now) {
			continue
		}
		total = total.Add(record.GrandTotal)
	}
	return total
}

// IncomeByPaymentMethod groups completed order totals by how they were paid.
func IncomeByPaymentMethod(orders []sales.OrderRecord) map[enums.PaymentMethod]decimal.Decimal {
	out := map[enums.PaymentMethod]decimal.Decimal{}
	for _, record := range orders {
		if !counts(record) {
			continue
		}
		current, ok := out[record.PaymentMethod]
		if !ok {
			current = decimal.Zero
		}
		out[record.PaymentMethod] = current.Add(record.GrandTotal)
	}
	return out
}

// LowStock returns items with quantity above zero but at or under their
// reorder level. Items at exactly zero are out of stock, not low.
func LowStock(items []inventory.Item) []inventory.Item {
	out := make([]inventory.Item, 0)
	for _, item := range items {
		if item.IsLowStock() {
			out = append(out, item)
		}
	}
	return out
}

// OutOfStock returns items with zero quantity.
func OutOfStock(items []inventory.Item) []inventory.Item {
	out := make([]inventory.Item, 0)
	for _, item := range items {
		if item.IsOutOfStock() {
			out = append(out, item)
		}
	}
	return out
}

// ExpiringSoon returns items whose expiry date is still in the future and
// within the window of now. Already-expired stock is excluded.
func ExpiringSoon(items []inventory.Item, now time.Time) []inventory.Item {
	out := make([]inventory.Item, 0)
	for _, item := range items {
		if item.ExpiresWithin(now, ExpiryWindow) {
			out = append(out, item)
		}
	}
	return out
}

// ExpenseTotalsByCategory sums expense amounts per keyword bucket.
func ExpenseTotalsByCategory(items []expenses.Expense) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, expense := range items {
		category := expense.Category
		if category == "" {
			category = expenses.CategoryOther
		}
		current, ok := out[category]
		if !ok {
			current = decimal.Zero
		}
		out[category] = current.Add(expense.Amount)
	}
	return out
}

// DayTotals is one day of income against expenses.
type DayTotals struct {
	Date    time.Time       `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// DailyIncomeVsExpense buckets completed orders and expenses into the last
// days calendar days ending at now, oldest first. Empty days still appear
// so charts stay continuous.
func DailyIncomeVsExpense(orders []sales.OrderRecord, items []expenses.Expense, days int, now time.Time) []DayTotals {
	if days < 1 {
		return nil
	}
	loc := now.Location()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))

	byDay := make(map[time.Time]*DayTotals, days)
	order := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		byDay[day] = &DayTotals{Date: day, Income: decimal.Zero, Expense: decimal.Zero}
		order = append(order, day)
	}

	dayOf := func(t time.Time) time.Time {
		local := t.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	}

	for _, record := range orders {
		if !counts(record) {
			continue
		}
		if bucket, ok := byDay[dayOf(record.RecordedAt)]; ok {
			bucket.Income = bucket.Income.Add(record.GrandTotal)
		}
	}
	for _, expense := range items {
		if bucket, ok := byDay[dayOf(expense.IncurredAt)]; ok {
			bucket.Expense = bucket.Expense.Add(expense.Amount)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]DayTotals, 0, days)
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out
}
