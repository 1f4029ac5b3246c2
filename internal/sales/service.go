package sales

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/internal/mirror"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type documentStore interface {
	Mutate(ctx context.Context, collection, key string, actor *outbox.ActorRef, fn func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error)) error
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

// Service serves order reads from the sales and wholesale mirrors and runs
// back-office status transitions through the document store.
type Service struct {
	store     documentStore
	sales     *mirror.Mirror[OrderRecord]
	wholesale *mirror.Mirror[OrderRecord]
	logg      *logger.Logger
}

// NewMirror builds an order mirror over one of the two order collections.
func NewMirror(store documentStore, collection string, opts ...mirror.Option[OrderRecord]) (*mirror.Mirror[OrderRecord], error) {
	if collection != realtime.CollectionSales && collection != realtime.CollectionWholesaleOrders {
		return nil, fmt.Errorf("collection %q does not hold orders", collection)
	}
	loader := func(ctx context.Context) ([]OrderRecord, error) {
		docs, err := store.List(ctx, collection, realtime.ListOptions{OrderBy: "created_at", Desc: true})
		if err != nil {
			return nil, err
		}
		records := make([]OrderRecord, 0, len(docs))
		for _, doc := range docs {
			records = append(records, DecodeOrder(doc))
		}
		return records, nil
	}
	return mirror.New[OrderRecord](collection, loader, opts...)
}

// NewService wires the sales service.
func NewService(store documentStore, salesMirror, wholesaleMirror *mirror.Mirror[OrderRecord], logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if salesMirror == nil || wholesaleMirror == nil {
		return nil, fmt.Errorf("order mirrors required")
	}
	return &Service{store: store, sales: salesMirror, wholesale: wholesaleMirror, logg: logg}, nil
}

// Get reads one order from the mirror for its collection.
func (s *Service) Get(collection, key string) (OrderRecord, bool) {
	m, err := s.mirrorFor(collection)
	if err != nil {
		return OrderRecord{}, false
	}
	for _, record := range m.Current() {
		if record.Key == key {
			return record, true
		}
	}
	return OrderRecord{}, false
}

// ListFilters narrow the merged order snapshots. Zero values mean no filter;
// From and To bound RecordedAt inclusively.
type ListFilters struct {
	Collection    string
	From          time.Time
	To            time.Time
	PaymentMethod enums.PaymentMethod
	Status        enums.OrderStatus
}

// List merges, filters, and paginates the current snapshots, newest first.
func (s *Service) List(filters ListFilters, params pagination.Params) (pagination.Result[OrderRecord], error) {
	var records []OrderRecord
	switch filters.Collection {
	case "":
		records = append(s.sales.Current(), s.wholesale.Current()...)
	default:
		m, err := s.mirrorFor(filters.Collection)
		if err != nil {
			return pagination.Result[OrderRecord]{}, err
		}
		records = m.Current()
	}

	filtered := make([]OrderRecord, 0, len(records))
	for _, record := range records {
		if !filters.From.IsZero() && record.RecordedAt.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && record.RecordedAt.After(filters.To) {
			continue
		}
		if filters.PaymentMethod != "" && record.PaymentMethod != filters.PaymentMethod {
			continue
		}
		if filters.Status != "" && record.Status != filters.Status {
			continue
		}
		filtered = append(filtered, record)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RecordedAt.After(filtered[j].RecordedAt)
	})
	return pagination.Paginate(filtered, params), nil
}

// Cancel moves a completed or draft order to cancelled and queues the
// cancellation event in the same transaction.
func (s *Service) Cancel(ctx context.Context, collection, key string, actor *outbox.ActorRef) error {
	if _, err := s.mirrorFor(collection); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	return s.store.Mutate(ctx, collection, key, actor, func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error) {
		record := DecodeOrder(doc)
		if !record.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot cancel a %s order", record.Status))
		}
		now := time.Now().UTC()
		events := []outbox.DomainEvent{{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderKey:    key,
				Collection:  collection,
				CancelledAt: now,
			},
		}}
		partial := map[string]any{
			"status":       enums.OrderStatusCancelled.String(),
			"cancelled_at": now.Format(time.RFC3339),
		}
		return partial, events, nil
	})
}

// CompleteDraft settles a draft order with payment details. Completed and
// cancelled orders cannot be completed again.
func (s *Service) CompleteDraft(ctx context.Context, collection, key string, method enums.PaymentMethod, tendered decimal.Decimal, actor *outbox.ActorRef) error {
	if _, err := s.mirrorFor(collection); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	return s.store.Mutate(ctx, collection, key, actor, func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error) {
		record := DecodeOrder(doc)
		if !record.Status.CanTransitionTo(enums.OrderStatusCompleted) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot complete a %s order", record.Status))
		}
		change := tendered.Sub(record.GrandTotal)
		if method == enums.PaymentMethodCash && change.IsNegative() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeInsufficientTender, fmt.Sprintf("tendered %s does not cover %s", tendered, record.GrandTotal))
		}

		now := time.Now().UTC()
		event := outbox.DomainEvent{
			EventType:     enums.EventSaleRecorded,
			AggregateType: enums.AggregateOrder,
			Version:       1,
			Data: payloads.SaleRecordedEvent{
				OrderKey:      key,
				SessionID:     record.SessionID,
				GrandTotal:    record.GrandTotal,
				PaymentMethod: method.String(),
				LineCount:     len(record.Lines),
				RecordedAt:    now,
			},
		}
		if collection == realtime.CollectionWholesaleOrders {
			event.EventType = enums.EventWholesaleRecorded
			event.Data = payloads.WholesaleRecordedEvent{
				OrderKey:   key,
				SessionID:  record.SessionID,
				GrandTotal: record.GrandTotal,
				LineCount:  len(record.Lines),
				RecordedAt: now,
			}
		}

		partial := map[string]any{
			"status":          enums.OrderStatusCompleted.String(),
			"payment_method":  method.String(),
			"amount_tendered": tendered.String(),
			"change":          change.String(),
			"recorded_at":     now.Format(time.RFC3339),
		}
		return partial, []outbox.DomainEvent{event}, nil
	})
}

func (s *Service) mirrorFor(collection string) (*mirror.Mirror[OrderRecord], error) {
	switch collection {
	case realtime.CollectionSales:
		return s.sales, nil
	case realtime.CollectionWholesaleOrders:
		return s.wholesale, nil
	default:
		return nil, fmt.Errorf("collection %q does not hold orders", collection)
	}
}
