package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/idempotency"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type fakeWriter struct {
	written []writtenDoc
	fail    bool
}

type writtenDoc struct {
	collection string
	fields     map[string]any
}

func (f *fakeWriter) WriteNew(_ context.Context, collection string, fields any, _ *outbox.ActorRef, _ ...outbox.DomainEvent) (string, error) {
	if f.fail {
		return "", context.DeadlineExceeded
	}
	f.written = append(f.written, writtenDoc{collection: collection, fields: fields.(map[string]any)})
	return "doc-1", nil
}

type fakeIdemStore struct {
	keys map[string]bool
}

func (s *fakeIdemStore) Get(_ context.Context, key string) (string, error) {
	return "", nil
}

func (s *fakeIdemStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func (s *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "pos:idempotency:" + scope + ":" + id
}

func newTestConsumer(t *testing.T, store *fakeWriter) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&fakeIdemStore{}, time.Hour)
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})

	// The subscriber is only touched by Run; process is driven directly.
	return &Consumer{
		store:       store,
		idempotency: manager,
		logg:        logg,
	}
}

func message(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "m-1",
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestSaleEventFansOutToInboxAndFeed(t *testing.T) {
	store := &fakeWriter{}
	consumer := newTestConsumer(t, store)

	msg := message(t, enums.EventSaleRecorded, payloads.SaleRecordedEvent{
		OrderKey:      "ord-1",
		GrandTotal:    decimal.RequireFromString("266.8"),
		PaymentMethod: "cash",
		LineCount:     2,
	})
	result := consumer.process(context.Background(), msg)
	require.True(t, result.ack)

	require.Len(t, store.written, 2)
	require.Equal(t, realtime.CollectionActivities, store.written[0].collection)
	require.Equal(t, realtime.CollectionNotifications, store.written[1].collection)
	require.Equal(t, string(enums.NotificationTypeSale), store.written[1].fields["type"])
	require.Equal(t, false, store.written[1].fields["read"])
}

func TestStockAdjustedWritesActivityOnly(t *testing.T) {
	store := &fakeWriter{}
	consumer := newTestConsumer(t, store)

	msg := message(t, enums.EventStockAdjusted, payloads.StockAdjustedEvent{
		ItemKey: "p500", Name: "Paracetamol", PreviousQuantity: 10, NewQuantity: 6,
	})
	result := consumer.process(context.Background(), msg)
	require.True(t, result.ack)

	require.Len(t, store.written, 1)
	require.Equal(t, realtime.CollectionActivities, store.written[0].collection)
}

func TestStockLowRaisesNotification(t *testing.T) {
	store := &fakeWriter{}
	consumer := newTestConsumer(t, store)

	msg := message(t, enums.EventStockLow, payloads.StockLowEvent{
		ItemKey: "p500", Name: "Paracetamol", Quantity: 2, ReorderLevel: 5,
	})
	result := consumer.process(context.Background(), msg)
	require.True(t, result.ack)

	require.Len(t, store.written, 2)
	require.Equal(t, string(enums.NotificationTypeStock), store.written[1].fields["type"])
	require.Contains(t, store.written[1].fields["message"], "2 left")
}

func TestDuplicateEventProcessedOnce(t *testing.T) {
	store := &fakeWriter{}
	consumer := newTestConsumer(t, store)

	msg := message(t, enums.EventExpenseRecorded, payloads.ExpenseRecordedEvent{
		ExpenseKey: "e-1", Amount: decimal.NewFromInt(100), Description: "rent",
	})
	require.True(t, consumer.process(context.Background(), msg).ack)
	require.True(t, consumer.process(context.Background(), msg).ack, "duplicate still acks")
	require.Len(t, store.written, 2, "second delivery writes nothing")
}

func TestWriteFailureNacksAndReleasesIdempotencyKey(t *testing.T) {
	store := &fakeWriter{fail: true}
	consumer := newTestConsumer(t, store)

	msg := message(t, enums.EventSaleRecorded, payloads.SaleRecordedEvent{OrderKey: "ord-1"})
	require.True(t, consumer.process(context.Background(), msg).nack)

	store.fail = false
	require.True(t, consumer.process(context.Background(), msg).ack, "redelivery succeeds after the key is released")
	require.Len(t, store.written, 2)
}

func TestUnhandledEventAcksWithoutWrites(t *testing.T) {
	store := &fakeWriter{}
	consumer := newTestConsumer(t, store)

	msg := message(t, enums.EventDocumentChanged, payloads.DocumentChangedEvent{Collection: "sales", Key: "x", Action: "created"})
	require.True(t, consumer.process(context.Background(), msg).ack)
	require.Empty(t, store.written)
}

func TestMalformedEnvelopeAcks(t *testing.T) {
	store := &fakeWriter{}
	consumer := newTestConsumer(t, store)

	msg := &pubsub.Message{ID: "m-2", Data: []byte("{not json"), Attributes: map[string]string{"event_type": "sale_recorded"}}
	require.True(t, consumer.process(context.Background(), msg).ack, "poison messages are dropped, not retried")
	require.Empty(t, store.written)
}
