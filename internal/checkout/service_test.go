package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chemtech-ke/pharmos-backend/internal/cart"
	"github.com/chemtech-ke/pharmos-backend/pkg/config"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type fixedStock map[string]int64

func (f fixedStock) Available(itemKey string) (int64, bool) {
	qty, ok := f[itemKey]
	return qty, ok
}

type writeCall struct {
	collection string
	fields     map[string]any
	events     []outbox.DomainEvent
}

type fakeWriter struct {
	calls   []writeCall
	failing bool
}

func (f *fakeWriter) WriteNewWith(_ context.Context, collection string, fields any, _ *outbox.ActorRef, build func(key string) []outbox.DomainEvent) (string, error) {
	if f.failing {
		return "", pkgerrors.New(pkgerrors.CodeWriteFailure, "write to sales failed")
	}
	key := fmt.Sprintf("order-%d", len(f.calls)+1)
	call := writeCall{collection: collection, fields: fields.(map[string]any)}
	if build != nil {
		call.events = build(key)
	}
	f.calls = append(f.calls, call)
	return key, nil
}

type adjustment struct {
	key   string
	delta int64
}

type fakeAdjuster struct {
	adjusted []adjustment
	failKey  string
}

func (f *fakeAdjuster) Adjust(_ context.Context, key string, delta int64, _ *outbox.ActorRef) error {
	if key == f.failKey {
		return pkgerrors.New(pkgerrors.CodeStockExceeded, "not enough stock")
	}
	f.adjusted = append(f.adjusted, adjustment{key: key, delta: delta})
	return nil
}

type fakeRedis struct {
	locks  map[string]bool
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{locks: map[string]bool{}, values: map[string]string{}}
}

func (f *fakeRedis) AcquireLock(_ context.Context, scope string, _ time.Duration) (bool, error) {
	if f.locks[scope] {
		return false, nil
	}
	f.locks[scope] = true
	return true, nil
}

func (f *fakeRedis) ReleaseLock(_ context.Context, scope string) error {
	delete(f.locks, scope)
	return nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return fmt.Errorf("unexpected value type %T", value)
	}
	return nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeRedis) HeldCartKey(sessionID string) string {
	return "pos:held_cart:" + sessionID
}

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{InFlightLockTTL: 30 * time.Second, HeldCartTTL: 12 * time.Hour}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
}

func newTestService(t *testing.T, stock fixedStock, writer *fakeWriter, adjuster *fakeAdjuster, store *fakeRedis) (*Service, *cart.Sessions) {
	t.Helper()
	sessions := cart.NewSessions(stock)
	var inv stockAdjuster
	if adjuster != nil {
		inv = adjuster
	}
	svc, err := NewService(sessions, writer, inv, store, testConfig(), testLogger())
	require.NoError(t, err)
	return svc, sessions
}

func loadCart(t *testing.T, sessions *cart.Sessions, sessionID string) *cart.Engine {
	t.Helper()
	engine, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NoError(t, engine.AddLine(cart.LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: decimal.NewFromInt(50), Quantity: 3}))
	require.NoError(t, engine.AddLine(cart.LineInput{ItemKey: "amx", Name: "Amoxicillin", UnitPrice: decimal.NewFromInt(100), Quantity: 1}))
	require.NoError(t, engine.SetDiscount(decimal.NewFromInt(20)))
	require.NoError(t, engine.SetTaxPercent(decimal.NewFromInt(16)))
	return engine
}

func TestCheckoutRecordsSale(t *testing.T) {
	writer := &fakeWriter{}
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, writer, nil, newFakeRedis())
	engine := loadCart(t, sessions, "till-1")

	record, err := svc.Checkout(context.Background(), "till-1", PaymentInput{
		Method:         enums.PaymentMethodCash,
		AmountTendered: decimal.NewFromInt(300),
	}, nil)
	require.NoError(t, err)

	require.Equal(t, "order-1", record.Key)
	require.Equal(t, realtime.CollectionSales, record.Collection)
	require.Equal(t, enums.OrderStatusCompleted, record.Status)
	require.True(t, record.GrandTotal.Equal(decimal.RequireFromString("266.8")))
	require.True(t, record.Change.Equal(decimal.RequireFromString("33.2")))
	require.True(t, engine.IsEmpty(), "cart resets after a successful write")

	require.Len(t, writer.calls, 1)
	call := writer.calls[0]
	require.Equal(t, "completed", call.fields["status"])
	require.Equal(t, "266.8", call.fields["grand_total"])
	require.Len(t, call.events, 1)
	require.Equal(t, enums.EventSaleRecorded, call.events[0].EventType)
	payload := call.events[0].Data.(payloads.SaleRecordedEvent)
	require.Equal(t, "order-1", payload.OrderKey)
	require.Equal(t, 2, payload.LineCount)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _ := newTestService(t, fixedStock{}, &fakeWriter{}, nil, newFakeRedis())

	_, err := svc.Checkout(context.Background(), "till-1", PaymentInput{Method: enums.PaymentMethodCash}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))
}

func TestCheckoutInsufficientTender(t *testing.T) {
	writer := &fakeWriter{}
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, writer, nil, newFakeRedis())
	engine := loadCart(t, sessions, "till-1")

	_, err := svc.Checkout(context.Background(), "till-1", PaymentInput{
		Method:         enums.PaymentMethodCash,
		AmountTendered: decimal.NewFromInt(200),
	}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientTender))
	require.False(t, engine.IsEmpty(), "rejected checkout leaves the cart intact")
	require.Empty(t, writer.calls)
}

func TestCreditSaleSkipsTenderCheck(t *testing.T) {
	writer := &fakeWriter{}
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, writer, nil, newFakeRedis())
	loadCart(t, sessions, "till-1")

	record, err := svc.Checkout(context.Background(), "till-1", PaymentInput{
		Method:      enums.PaymentMethodCredit,
		CustomerKey: "cust-1",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "cust-1", record.CustomerKey)
	require.Equal(t, "cust-1", writer.calls[0].fields["customer_key"])
}

func TestCheckoutWriteFailureLeavesCartIntact(t *testing.T) {
	writer := &fakeWriter{failing: true}
	store := newFakeRedis()
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, writer, nil, store)
	engine := loadCart(t, sessions, "till-1")

	_, err := svc.Checkout(context.Background(), "till-1", PaymentInput{
		Method:         enums.PaymentMethodCash,
		AmountTendered: decimal.NewFromInt(300),
	}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeWriteFailure))
	require.False(t, engine.IsEmpty())
	require.Empty(t, store.locks, "in-flight lock released so the cashier can retry")
}

func TestCheckoutDoubleSubmitBlocked(t *testing.T) {
	store := newFakeRedis()
	store.locks[checkoutScope("till-1")] = true
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, &fakeWriter{}, nil, store)
	loadCart(t, sessions, "till-1")

	_, err := svc.Checkout(context.Background(), "till-1", PaymentInput{
		Method:         enums.PaymentMethodCash,
		AmountTendered: decimal.NewFromInt(300),
	}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestWholesaleDecrementsNonManualLines(t *testing.T) {
	writer := &fakeWriter{}
	adjuster := &fakeAdjuster{}
	svc, sessions := newTestService(t, fixedStock{"p500": 10}, writer, adjuster, newFakeRedis())

	engine, err := sessions.Get("till-1")
	require.NoError(t, err)
	require.NoError(t, engine.AddLine(cart.LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: decimal.NewFromInt(50), Quantity: 4}))
	require.NoError(t, engine.AddLine(cart.LineInput{ItemKey: "svc-delivery", Name: "Delivery", UnitPrice: decimal.NewFromInt(200), Quantity: 1, Manual: true}))

	record, err := svc.CheckoutWholesale(context.Background(), "till-1", PaymentInput{Method: enums.PaymentMethodBank, AmountTendered: decimal.NewFromInt(400)}, nil)
	require.NoError(t, err)
	require.Equal(t, realtime.CollectionWholesaleOrders, record.Collection)
	require.Equal(t, []adjustment{{key: "p500", delta: -4}}, adjuster.adjusted)
	require.Equal(t, enums.EventWholesaleRecorded, writer.calls[0].events[0].EventType)
}

func TestWholesalePartialDecrementKeepsOrder(t *testing.T) {
	writer := &fakeWriter{}
	adjuster := &fakeAdjuster{failKey: "p500"}
	svc, sessions := newTestService(t, fixedStock{"p500": 10}, writer, adjuster, newFakeRedis())

	engine, err := sessions.Get("till-1")
	require.NoError(t, err)
	require.NoError(t, engine.AddLine(cart.LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: decimal.NewFromInt(50), Quantity: 2}))

	record, err := svc.CheckoutWholesale(context.Background(), "till-1", PaymentInput{Method: enums.PaymentMethodBank, AmountTendered: decimal.NewFromInt(100)}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeWriteFailure))
	require.Equal(t, "order-1", record.Key, "order stands even when the decrement fails")
	require.True(t, engine.IsEmpty(), "cart was already reset by the order write")
}

func TestHoldAndResume(t *testing.T) {
	store := newFakeRedis()
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, &fakeWriter{}, nil, store)
	engine := loadCart(t, sessions, "till-1")

	require.NoError(t, svc.Hold(context.Background(), "till-1"))
	require.True(t, engine.IsEmpty())

	raw, ok := store.values[store.HeldCartKey("till-1")]
	require.True(t, ok)
	var snapshot cart.Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	require.Len(t, snapshot.Lines, 2)

	require.NoError(t, svc.Resume(context.Background(), "till-1"))
	require.False(t, engine.IsEmpty())
	require.True(t, engine.Totals().GrandTotal.Equal(decimal.RequireFromString("266.8")))
	_, still := store.values[store.HeldCartKey("till-1")]
	require.False(t, still, "parked copy is dropped after resume")
}

func TestResumeWithoutHeldCart(t *testing.T) {
	svc, _ := newTestService(t, fixedStock{}, &fakeWriter{}, nil, newFakeRedis())
	err := svc.Resume(context.Background(), "till-1")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestHoldEmptyCart(t *testing.T) {
	svc, _ := newTestService(t, fixedStock{}, &fakeWriter{}, nil, newFakeRedis())
	err := svc.Hold(context.Background(), "till-1")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))
}

func TestSaveDraft(t *testing.T) {
	writer := &fakeWriter{}
	svc, sessions := newTestService(t, fixedStock{"p500": 10, "amx": 10}, writer, nil, newFakeRedis())
	engine := loadCart(t, sessions, "till-1")

	record, err := svc.SaveDraft(context.Background(), "till-1", "  morning till  ", nil)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDraft, record.Status)
	require.Equal(t, "morning till", record.Label)
	require.True(t, engine.IsEmpty())

	call := writer.calls[0]
	require.Equal(t, "draft", call.fields["status"])
	require.Equal(t, "morning till", call.fields["label"])
	require.NotContains(t, call.fields, "payment_method")
	require.NotContains(t, call.fields, "amount_tendered")
	require.Empty(t, call.events)
}
