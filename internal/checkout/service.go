package checkout

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/internal/cart"
	"github.com/chemtech-ke/pharmos-backend/internal/sales"
	"github.com/chemtech-ke/pharmos-backend/pkg/config"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type documentWriter interface {
	WriteNewWith(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, build func(key string) []outbox.DomainEvent) (string, error)
}

type stockAdjuster interface {
	Adjust(ctx context.Context, key string, delta int64, actor *outbox.ActorRef) error
}

type sessionStore interface {
	AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope string) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	HeldCartKey(sessionID string) string
}

// Service turns cart sessions into persisted order documents. A write that
// fails leaves the cart untouched so the cashier can retry.
type Service struct {
	sessions  *cart.Sessions
	store     documentWriter
	inventory stockAdjuster
	redis     sessionStore
	cfg       config.CheckoutConfig
	logg      *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(sessions *cart.Sessions, store documentWriter, inventory stockAdjuster, redis sessionStore, cfg config.CheckoutConfig, logg *logger.Logger) (*Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	if store == nil {
		return nil, fmt.Errorf("document writer required")
	}
	if redis == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		sessions:  sessions,
		store:     store,
		inventory: inventory,
		redis:     redis,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

// PaymentInput captures how the sale is settled.
type PaymentInput struct {
	Method         enums.PaymentMethod `json:"method" validate:"required"`
	AmountTendered decimal.Decimal     `json:"amount_tendered"`
	CustomerKey    string              `json:"customer_key"`
}

// Checkout records a retail sale for the session. Double submits are fenced
// by a short-lived Redis lock; the cart resets only after the order document
// lands.
func (s *Service) Checkout(ctx context.Context, sessionID string, input PaymentInput, actor *outbox.ActorRef) (sales.OrderRecord, error) {
	return s.record(ctx, sessionID, realtime.CollectionSales, input, actor)
}

// CheckoutWholesale records a wholesale order and then decrements inventory
// per non-manual line. The decrements are separate writes after the order
// document: a partial failure is logged and returned but the order stands.
func (s *Service) CheckoutWholesale(ctx context.Context, sessionID string, input PaymentInput, actor *outbox.ActorRef) (sales.OrderRecord, error) {
	record, err := s.record(ctx, sessionID, realtime.CollectionWholesaleOrders, input, actor)
	if err != nil {
		return sales.OrderRecord{}, err
	}
	if s.inventory == nil {
		return record, nil
	}
	for _, line := range record.Lines {
		if line.Manual {
			continue
		}
		if adjErr := s.inventory.Adjust(ctx, line.ItemKey, -line.Quantity, actor); adjErr != nil {
			s.logg.Error(ctx, fmt.Sprintf("stock decrement failed for %s after order %s", line.ItemKey, record.Key), adjErr)
			return record, pkgerrors.Wrap(pkgerrors.CodeWriteFailure, adjErr, fmt.Sprintf("order %s recorded but stock decrement failed for %s", record.Key, line.ItemKey))
		}
	}
	return record, nil
}

func (s *Service) record(ctx context.Context, sessionID string, collection string, input PaymentInput, actor *outbox.ActorRef) (sales.OrderRecord, error) {
	engine, err := s.sessions.Get(sessionID)
	if err != nil {
		return sales.OrderRecord{}, err
	}
	if !input.Method.IsValid() {
		return sales.OrderRecord{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method))
	}

	acquired, err := s.redis.AcquireLock(ctx, checkoutScope(sessionID), s.cfg.InFlightLockTTL)
	if err != nil {
		return sales.OrderRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout lock")
	}
	if !acquired {
		return sales.OrderRecord{}, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in flight for this session")
	}
	defer func() {
		if relErr := s.redis.ReleaseLock(ctx, checkoutScope(sessionID)); relErr != nil {
			s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "checkout lock release failed")
		}
	}()

	snapshot := engine.Snapshot()
	if len(snapshot.Lines) == 0 {
		return sales.OrderRecord{}, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no lines")
	}
	change := snapshot.Totals.Change(input.AmountTendered)
	if input.Method == enums.PaymentMethodCash && change.IsNegative() {
		return sales.OrderRecord{}, pkgerrors.New(pkgerrors.CodeInsufficientTender,
			fmt.Sprintf("tendered %s does not cover %s", input.AmountTendered, snapshot.Totals.GrandTotal)).
			WithDetails(map[string]any{"grand_total": snapshot.Totals.GrandTotal, "tendered": input.AmountTendered})
	}

	now := time.Now().UTC()
	fields := orderFields(sessionID, snapshot, enums.OrderStatusCompleted, input, change, now)

	build := func(key string) []outbox.DomainEvent {
		event := outbox.DomainEvent{
			EventType:     enums.EventSaleRecorded,
			AggregateType: enums.AggregateOrder,
			Version:       1,
			Data: payloads.SaleRecordedEvent{
				OrderKey:      key,
				SessionID:     sessionID,
				GrandTotal:    snapshot.Totals.GrandTotal,
				PaymentMethod: input.Method.String(),
				LineCount:     len(snapshot.Lines),
				RecordedAt:    now,
			},
		}
		if collection == realtime.CollectionWholesaleOrders {
			event.EventType = enums.EventWholesaleRecorded
			event.Data = payloads.WholesaleRecordedEvent{
				OrderKey:   key,
				SessionID:  sessionID,
				GrandTotal: snapshot.Totals.GrandTotal,
				LineCount:  len(snapshot.Lines),
				RecordedAt: now,
			}
		}
		return []outbox.DomainEvent{event}
	}

	key, err := s.store.WriteNewWith(ctx, collection, fields, actor, build)
	if err != nil {
		return sales.OrderRecord{}, err
	}
	engine.Reset()

	return orderRecord(key, collection, sessionID, snapshot, enums.OrderStatusCompleted, input, change, now), nil
}

// Hold parks the cart snapshot in Redis under a TTL and clears the engine.
// Held carts are ephemeral; an expired hold is simply gone.
func (s *Service) Hold(ctx context.Context, sessionID string) error {
	engine, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	snapshot := engine.Snapshot()
	if len(snapshot.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no lines")
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode held cart")
	}
	if err := s.redis.Set(ctx, s.redis.HeldCartKey(sessionID), raw, s.cfg.HeldCartTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "park held cart")
	}
	engine.Reset()
	return nil
}

// Resume restores a held cart into the session and drops the parked copy.
func (s *Service) Resume(ctx context.Context, sessionID string) error {
	engine, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	raw, err := s.redis.Get(ctx, s.redis.HeldCartKey(sessionID))
	if stderrors.Is(err, redislib.Nil) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no held cart for this session")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read held cart")
	}
	var snapshot cart.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode held cart")
	}
	engine.Restore(snapshot)
	if err := s.redis.Del(ctx, s.redis.HeldCartKey(sessionID)); err != nil {
		s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "held cart cleanup failed")
	}
	return nil
}

// SaveDraft persists the cart as a draft order document and clears the
// engine. Drafts are completed or cancelled later by the back office.
func (s *Service) SaveDraft(ctx context.Context, sessionID, label string, actor *outbox.ActorRef) (sales.OrderRecord, error) {
	engine, err := s.sessions.Get(sessionID)
	if err != nil {
		return sales.OrderRecord{}, err
	}
	snapshot := engine.Snapshot()
	if len(snapshot.Lines) == 0 {
		return sales.OrderRecord{}, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no lines")
	}

	now := time.Now().UTC()
	input := PaymentInput{}
	fields := orderFields(sessionID, snapshot, enums.OrderStatusDraft, input, decimal.Zero, now)
	if trimmed := strings.TrimSpace(label); trimmed != "" {
		fields["label"] = trimmed
	}

	key, err := s.store.WriteNewWith(ctx, realtime.CollectionSales, fields, actor, nil)
	if err != nil {
		return sales.OrderRecord{}, err
	}
	engine.Reset()

	record := orderRecord(key, realtime.CollectionSales, sessionID, snapshot, enums.OrderStatusDraft, input, decimal.Zero, now)
	record.Label = strings.TrimSpace(label)
	return record, nil
}

func checkoutScope(sessionID string) string {
	return "checkout:" + sessionID
}

func orderFields(sessionID string, snapshot cart.Snapshot, status enums.OrderStatus, input PaymentInput, change decimal.Decimal, now time.Time) map[string]any {
	lines := make([]any, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, map[string]any{
			"item_key":   line.ItemKey,
			"name":       line.Name,
			"unit_price": line.UnitPrice.String(),
			"quantity":   line.Quantity,
			"manual":     line.Manual,
		})
	}
	fields := map[string]any{
		"session_id":  sessionID,
		"status":      status.String(),
		"lines":       lines,
		"subtotal":    snapshot.Totals.Subtotal.String(),
		"discount":    snapshot.Totals.Discount.String(),
		"tax_percent": snapshot.Totals.TaxPercent.String(),
		"tax_amount":  snapshot.Totals.TaxAmount.String(),
		"grand_total": snapshot.Totals.GrandTotal.String(),
		"recorded_at": now.Format(time.RFC3339),
	}
	if status == enums.OrderStatusCompleted {
		fields["payment_method"] = input.Method.String()
		fields["amount_tendered"] = input.AmountTendered.String()
		fields["change"] = change.String()
	}
	if input.CustomerKey != "" {
		fields["customer_key"] = input.CustomerKey
	}
	return fields
}

func orderRecord(key, collection, sessionID string, snapshot cart.Snapshot, status enums.OrderStatus, input PaymentInput, change decimal.Decimal, now time.Time) sales.OrderRecord {
	lines := make([]sales.OrderLine, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, sales.OrderLine{
			ItemKey:   line.ItemKey,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Manual:    line.Manual,
		})
	}
	record := sales.OrderRecord{
		Key:        key,
		Collection: collection,
		SessionID:  sessionID,
		Status:     status,
		Lines:      lines,
		Subtotal:   snapshot.Totals.Subtotal,
		Discount:   snapshot.Totals.Discount,
		TaxPercent: snapshot.Totals.TaxPercent,
		TaxAmount:  snapshot.Totals.TaxAmount,
		GrandTotal: snapshot.Totals.GrandTotal,
		RecordedAt: now,
	}
	if status == enums.OrderStatusCompleted {
		record.PaymentMethod = input.Method
		record.AmountTendered = input.AmountTendered
		record.Change = change
	}
	record.CustomerKey = input.CustomerKey
	return record
}
