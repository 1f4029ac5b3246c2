package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/chemtech-ke/pharmos-backend/api"
	"github.com/chemtech-ke/pharmos-backend/api/controllers"
	"github.com/chemtech-ke/pharmos-backend/api/routes"
	"github.com/chemtech-ke/pharmos-backend/internal/cart"
	"github.com/chemtech-ke/pharmos-backend/internal/checkout"
	"github.com/chemtech-ke/pharmos-backend/internal/customers"
	"github.com/chemtech-ke/pharmos-backend/internal/expenses"
	"github.com/chemtech-ke/pharmos-backend/internal/inventory"
	"github.com/chemtech-ke/pharmos-backend/internal/mirror"
	"github.com/chemtech-ke/pharmos-backend/internal/notifications"
	"github.com/chemtech-ke/pharmos-backend/internal/prescriptions"
	"github.com/chemtech-ke/pharmos-backend/internal/sales"
	"github.com/chemtech-ke/pharmos-backend/internal/users"
	"github.com/chemtech-ke/pharmos-backend/pkg/auth/session"
	"github.com/chemtech-ke/pharmos-backend/pkg/config"
	"github.com/chemtech-ke/pharmos-backend/pkg/db"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/migrate"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/pubsub"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
	"github.com/chemtech-ke/pharmos-backend/pkg/redis"
	"github.com/joho/godotenv"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	store := realtime.NewStore(dbClient, events, logg)

	inventoryMirror, err := inventory.NewMirror(store, mirror.WithLogger[inventory.Item](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory mirror", err)
		os.Exit(1)
	}
	salesMirror, err := sales.NewMirror(store, realtime.CollectionSales, mirror.WithLogger[sales.OrderRecord](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create sales mirror", err)
		os.Exit(1)
	}
	wholesaleMirror, err := sales.NewMirror(store, realtime.CollectionWholesaleOrders, mirror.WithLogger[sales.OrderRecord](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create wholesale mirror", err)
		os.Exit(1)
	}
	customersMirror, err := customers.NewMirror(store, mirror.WithLogger[customers.Customer](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create customers mirror", err)
		os.Exit(1)
	}
	expensesMirror, err := expenses.NewMirror(store, mirror.WithLogger[expenses.Expense](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create expenses mirror", err)
		os.Exit(1)
	}
	prescriptionsMirror, err := prescriptions.NewMirror(store, mirror.WithLogger[prescriptions.Prescription](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create prescriptions mirror", err)
		os.Exit(1)
	}
	inboxMirror, err := notifications.NewInboxMirror(store, mirror.WithLogger[notifications.Notification](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications mirror", err)
		os.Exit(1)
	}
	activityMirror, err := notifications.NewActivityMirror(store, mirror.WithLogger[notifications.Activity](logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity mirror", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	inventoryMirror.Start(ctx)
	salesMirror.Start(ctx)
	wholesaleMirror.Start(ctx)
	customersMirror.Start(ctx)
	expensesMirror.Start(ctx)
	prescriptionsMirror.Start(ctx)
	inboxMirror.Start(ctx)
	activityMirror.Start(ctx)
	defer func() {
		inventoryMirror.Close()
		salesMirror.Close()
		wholesaleMirror.Close()
		customersMirror.Close()
		expensesMirror.Close()
		prescriptionsMirror.Close()
		inboxMirror.Close()
		activityMirror.Close()
	}()

	dispatcher, err := mirror.NewDispatcher(pubsubClient.ChangesSubscription(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create change dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Register(inventoryMirror.Collection(), inventoryMirror)
	dispatcher.Register(salesMirror.Collection(), salesMirror)
	dispatcher.Register(wholesaleMirror.Collection(), wholesaleMirror)
	dispatcher.Register(customersMirror.Collection(), customersMirror)
	dispatcher.Register(expensesMirror.Collection(), expensesMirror)
	dispatcher.Register(prescriptionsMirror.Collection(), prescriptionsMirror)
	dispatcher.Register(inboxMirror.Collection(), inboxMirror)
	dispatcher.Register(activityMirror.Collection(), activityMirror)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "change dispatcher stopped unexpectedly", err)
		}
	}()

	inventoryService, err := inventory.NewService(store, inventoryMirror, logg)
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}
	salesService, err := sales.NewService(store, salesMirror, wholesaleMirror, logg)
	if err != nil {
		logg.Error(ctx, "failed to create sales service", err)
		os.Exit(1)
	}
	customersService, err := customers.NewService(store, customersMirror)
	if err != nil {
		logg.Error(ctx, "failed to create customers service", err)
		os.Exit(1)
	}
	expensesService, err := expenses.NewService(store, expensesMirror)
	if err != nil {
		logg.Error(ctx, "failed to create expenses service", err)
		os.Exit(1)
	}
	prescriptionsService, err := prescriptions.NewService(store, inventoryService, prescriptionsMirror)
	if err != nil {
		logg.Error(ctx, "failed to create prescriptions service", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(store, inboxMirror, activityMirror)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	cartSessions := cart.NewSessions(inventoryService)
	checkoutService, err := checkout.NewService(cartSessions, store, inventoryService, redisClient, cfg.Checkout, logg)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()), sessionManager, cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	settingsService := users.NewSettingsService(store)

	router := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		Redis:        redisClient,
		SessionCheck: sessionManager,
		Health: map[string]controllers.HealthPinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Users:         usersService,
		Settings:      settingsService,
		Inventory:     inventoryService,
		Carts:         cartSessions,
		Checkout:      checkoutService,
		Sales:         salesService,
		Expenses:      expensesService,
		Customers:     customersService,
		Prescriptions: prescriptionsService,
		Notifications: notificationsService,
		Reports: controllers.ReportSources{
			Sales:     salesMirror,
			Wholesale: wholesaleMirror,
			Inventory: inventoryMirror,
			Expenses:  expensesMirror,
		},
	})

	server := api.NewServer(cfg, router)
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})
	logg.Info(runCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutdown signal received")
		if err := api.Shutdown(server, shutdownGrace); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}

	logg.Info(runCtx, "api server shut down gracefully")
}
