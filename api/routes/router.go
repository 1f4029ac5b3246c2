package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chemtech-ke/pharmos-backend/api/controllers"
	"github.com/chemtech-ke/pharmos-backend/api/middleware"
	"github.com/chemtech-ke/pharmos-backend/internal/cart"
	checkoutsvc "github.com/chemtech-ke/pharmos-backend/internal/checkout"
	"github.com/chemtech-ke/pharmos-backend/internal/customers"
	"github.com/chemtech-ke/pharmos-backend/internal/expenses"
	"github.com/chemtech-ke/pharmos-backend/internal/inventory"
	"github.com/chemtech-ke/pharmos-backend/internal/notifications"
	"github.com/chemtech-ke/pharmos-backend/internal/prescriptions"
	"github.com/chemtech-ke/pharmos-backend/internal/sales"
	"github.com/chemtech-ke/pharmos-backend/internal/users"
	"github.com/chemtech-ke/pharmos-backend/pkg/auth/session"
	"github.com/chemtech-ke/pharmos-backend/pkg/config"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs. Optional entries may be
// nil; the matching routes degrade to errors instead of panicking at wire
// time.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Redis         *redis.Client
	SessionCheck  session.AccessSessionChecker
	Health        map[string]controllers.HealthPinger
	Users         *users.Service
	Settings      *users.SettingsService
	Inventory     *inventory.Service
	Carts         *cart.Sessions
	Checkout      *checkoutsvc.Service
	Sales         *sales.Service
	Expenses      *expenses.Service
	Customers     *customers.Service
	Prescriptions *prescriptions.Service
	Notifications *notifications.Service
	Reports       controllers.ReportSources
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Users, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Users, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Users, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionCheck, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.With(middleware.RequireRole(enums.MemberRoleAdmin.String(), logg)).
			Post("/auth/register", controllers.AuthRegister(deps.Users, logg))

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.MemberRoleAdmin.String(), logg))
			r.Get("/", controllers.UserList(deps.Users, logg))
			r.Get("/{userId}", controllers.UserDetail(deps.Users, logg))
			r.Post("/{userId}/active", controllers.UserSetActive(deps.Users, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.SettingsFetch(deps.Settings, logg))
			r.Put("/", controllers.SettingsSave(deps.Settings, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(deps.Inventory, logg))
			r.Post("/", controllers.InventoryCreate(deps.Inventory, logg))
			r.Get("/{itemKey}", controllers.InventoryDetail(deps.Inventory, logg))
			r.Patch("/{itemKey}", controllers.InventoryUpdate(deps.Inventory, logg))
			r.Post("/{itemKey}/adjust", controllers.InventoryAdjust(deps.Inventory, logg))
			r.Delete("/{itemKey}", controllers.InventoryDelete(deps.Inventory, logg))
		})

		r.Route("/cart/{sessionID}", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Post("/lines", controllers.CartAddLine(deps.Carts, logg))
			r.Patch("/lines/{itemKey}", controllers.CartUpdateQuantity(deps.Carts, logg))
			r.Delete("/lines/{itemKey}", controllers.CartRemoveLine(deps.Carts, logg))
			r.Post("/discount", controllers.CartSetDiscount(deps.Carts, logg))
			r.Post("/tax", controllers.CartSetTax(deps.Carts, logg))
			r.Post("/reset", controllers.CartReset(deps.Carts, logg))
		})

		r.Route("/checkout/{sessionID}", func(r chi.Router) {
			r.Post("/sale", controllers.CheckoutSale(deps.Checkout, logg))
			r.Post("/wholesale", controllers.CheckoutWholesale(deps.Checkout, logg))
			r.Post("/hold", controllers.CheckoutHold(deps.Checkout, logg))
			r.Post("/resume", controllers.CheckoutResume(deps.Checkout, logg))
			r.Post("/draft", controllers.CheckoutDraft(deps.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Sales, logg))
			r.Get("/{collection}/{orderKey}", controllers.OrderDetail(deps.Sales, logg))
			r.Post("/{collection}/{orderKey}/cancel", controllers.OrderCancel(deps.Sales, logg))
			r.Post("/{collection}/{orderKey}/complete", controllers.OrderComplete(deps.Sales, logg))
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", controllers.ExpenseList(deps.Expenses, logg))
			r.Post("/", controllers.ExpenseRecord(deps.Expenses, logg))
			r.Get("/categories", controllers.ExpenseCategories())
			r.Delete("/{expenseKey}", controllers.ExpenseDelete(deps.Expenses, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(deps.Customers, logg))
			r.Post("/", controllers.CustomerCreate(deps.Customers, logg))
			r.Get("/{customerKey}", controllers.CustomerDetail(deps.Customers, logg))
			r.Patch("/{customerKey}", controllers.CustomerUpdate(deps.Customers, logg))
			r.Post("/{customerKey}/balance", controllers.CustomerAdjustBalance(deps.Customers, logg))
			r.Delete("/{customerKey}", controllers.CustomerDelete(deps.Customers, logg))
		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.Get("/", controllers.PrescriptionList(deps.Prescriptions, logg))
			r.Post("/", controllers.PrescriptionRecord(deps.Prescriptions, logg))
			r.Get("/{prescriptionKey}", controllers.PrescriptionDetail(deps.Prescriptions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(deps.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(deps.Notifications))
			r.Get("/activity", controllers.ActivityFeed(deps.Notifications, logg))
			r.Post("/{notificationKey}/read", controllers.NotificationMarkRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(deps.Notifications, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", controllers.ReportSummary(deps.Reports, logg))
			r.Get("/income", controllers.ReportIncome(deps.Reports, logg))
			r.Get("/stock", controllers.ReportStock(deps.Reports, logg))
			r.Get("/expenses", controllers.ReportExpenses(deps.Reports, logg))
			r.Get("/daily", controllers.ReportDaily(deps.Reports, logg))
		})
	})

	return r
}
