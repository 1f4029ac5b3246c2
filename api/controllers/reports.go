package controllers

import (
	"net/http"
	"time"

	"github.com/chemtech-ke/pharmos-backend/api/responses"
	"github.com/chemtech-ke/pharmos-backend/api/validators"
	"github.com/chemtech-ke/pharmos-backend/internal/expenses"
	"github.com/chemtech-ke/pharmos-backend/internal/inventory"
	"github.com/chemtech-ke/pharmos-backend/internal/mirror"
	"github.com/chemtech-ke/pharmos-backend/internal/reports"
	"github.com/chemtech-ke/pharmos-backend/internal/sales"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
)

// ReportSources bundles the live snapshots the report endpoints read from.
type ReportSources struct {
	Sales     *mirror.Mirror[sales.OrderRecord]
	Wholesale *mirror.Mirror[sales.OrderRecord]
	Inventory *mirror.Mirror[inventory.Item]
	Expenses  *mirror.Mirror[expenses.Expense]
}

func (s ReportSources) orders() []sales.OrderRecord {
	return append(s.Sales.Current(), s.Wholesale.Current()...)
}

// ReportSummary returns the dashboard headline numbers in one response.
func ReportSummary(src ReportSources, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		orders := src.orders()
		items := src.Inventory.Current()
		responses.WriteSuccess(w, map[string]any{
			"todays_revenue":    reports.TodaysRevenue(orders, now),
			"income_by_method":  reports.IncomeByPaymentMethod(orders),
			"low_stock_count":   len(reports.LowStock(items)),
			"out_of_stock":      len(reports.OutOfStock(items)),
			"expiring_soon":     len(reports.ExpiringSoon(items, now)),
			"expense_by_bucket": reports.ExpenseTotalsByCategory(src.Expenses.Current()),
		})
	}
}

func ReportIncome(src ReportSources, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders := src.orders()
		responses.WriteSuccess(w, map[string]any{
			"todays_revenue":   reports.TodaysRevenue(orders, time.Now()),
			"income_by_method": reports.IncomeByPaymentMethod(orders),
		})
	}
}

func ReportStock(src ReportSources, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := src.Inventory.Current()
		responses.WriteSuccess(w, map[string]any{
			"low_stock":     reports.LowStock(items),
			"out_of_stock":  reports.OutOfStock(items),
			"expiring_soon": reports.ExpiringSoon(items, time.Now()),
		})
	}
}

func ReportExpenses(src ReportSources, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"totals_by_category": reports.ExpenseTotalsByCategory(src.Expenses.Current()),
		})
	}
}

// ReportDaily charts income against expenses for the trailing N days.
func ReportDaily(src ReportSources, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := validators.ParseQueryInt(r, "days", 7, 1, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		series := reports.DailyIncomeVsExpense(src.orders(), src.Expenses.Current(), days, time.Now())
		responses.WriteSuccess(w, map[string]any{"days": series})
	}
}
