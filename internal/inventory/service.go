package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
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
	WriteNew(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, extra ...outbox.DomainEvent) (string, error)
	WriteUpdate(ctx context.Context, collection, key string, partial map[string]any, actor *outbox.ActorRef) error
	WriteDelete(ctx context.Context, collection, key string, actor *outbox.ActorRef) error
	Mutate(ctx context.Context, collection, key string, actor *outbox.ActorRef, fn func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error)) error
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

// Service manages the inventory collection and serves stock reads from its
// live mirror.
type Service struct {
	store  documentStore
	mirror *mirror.Mirror[Item]
	logg   *logger.Logger
}

// NewMirror builds the inventory mirror backed by the document store.
func NewMirror(store documentStore, opts ...mirror.Option[Item]) (*mirror.Mirror[Item], error) {
	loader := func(ctx context.Context) ([]Item, error) {
		docs, err := store.List(ctx, realtime.CollectionInventory, realtime.ListOptions{OrderBy: "created_at"})
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(docs))
		for _, doc := range docs {
			items = append(items, DecodeItem(doc))
		}
		return items, nil
	}
	return mirror.New[Item](realtime.CollectionInventory, loader, opts...)
}

// NewService wires the inventory service.
func NewService(store documentStore, m *mirror.Mirror[Item], logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if m == nil {
		return nil, fmt.Errorf("inventory mirror required")
	}
	return &Service{store: store, mirror: m, logg: logg}, nil
}

// CreateInput carries the fields for a new inventory item.
type CreateInput struct {
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category"`
	Batch        string          `json:"batch"`
	Supplier     string          `json:"supplier"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int64           `json:"quantity" validate:"gte=0"`
	ReorderLevel int64           `json:"reorder_level" validate:"gte=0"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
}

// Create writes a new item document and returns its key.
func (s *Service) Create(ctx context.Context, input CreateInput, actor *outbox.ActorRef) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.UnitPrice.IsNegative() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.Quantity < 0 || input.ReorderLevel < 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
	}

	fields := map[string]any{
		"name":          name,
		"category":      strings.TrimSpace(input.Category),
		"batch":         strings.TrimSpace(input.Batch),
		"supplier":      strings.TrimSpace(input.Supplier),
		"unit_price":    input.UnitPrice.String(),
		"quantity":      input.Quantity,
		"reorder_level": input.ReorderLevel,
	}
	if input.ExpiryDate != nil {
		fields["expiry_date"] = input.ExpiryDate.UTC().Format(time.RFC3339)
	}
	return s.store.WriteNew(ctx, realtime.CollectionInventory, fields, actor)
}

// UpdateInput carries a partial item update. Nil fields are left untouched.
type UpdateInput struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Batch        *string          `json:"batch"`
	Supplier     *string          `json:"supplier"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	ReorderLevel *int64           `json:"reorder_level"`
	ExpiryDate   *time.Time       `json:"expiry_date"`
}

// Update merges the provided fields into the item document. Quantity moves
// through Adjust so stock events stay consistent.
func (s *Service) Update(ctx context.Context, key string, input UpdateInput, actor *outbox.ActorRef) error {
	partial := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be empty")
		}
		partial["name"] = name
	}
	if input.Category != nil {
		partial["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Batch != nil {
		partial["batch"] = strings.TrimSpace(*input.Batch)
	}
	if input.Supplier != nil {
		partial["supplier"] = strings.TrimSpace(*input.Supplier)
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		partial["unit_price"] = input.UnitPrice.String()
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
		}
		partial["reorder_level"] = *input.ReorderLevel
	}
	if input.ExpiryDate != nil {
		partial["expiry_date"] = input.ExpiryDate.UTC().Format(time.RFC3339)
	}
	if len(partial) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	return s.store.WriteUpdate(ctx, realtime.CollectionInventory, key, partial, actor)
}

// Adjust applies a signed quantity delta. Driving the quantity below zero is
// rejected without writing. Decrements that land at or under the reorder
// level queue a stock-low event alongside the adjustment.
func (s *Service) Adjust(ctx context.Context, key string, delta int64, actor *outbox.ActorRef) error {
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity delta cannot be zero")
	}
	return s.store.Mutate(ctx, realtime.CollectionInventory, key, actor, func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error) {
		item := DecodeItem(doc)
		next := item.Quantity + delta
		if next < 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStockExceeded, fmt.Sprintf("only %d units of %s in stock", item.Quantity, item.Name)).
				WithDetails(map[string]any{"item_key": key, "available": item.Quantity})
		}

		events := []outbox.DomainEvent{{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateInventoryItem,
			Version:       1,
			Data: payloads.StockAdjustedEvent{
				ItemKey:          key,
				Name:             item.Name,
				PreviousQuantity: item.Quantity,
				NewQuantity:      next,
			},
		}}
		if delta < 0 && next <= item.ReorderLevel {
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventStockLow,
				AggregateType: enums.AggregateInventoryItem,
				Version:       1,
				Data: payloads.StockLowEvent{
					ItemKey:      key,
					Name:         item.Name,
					Quantity:     next,
					ReorderLevel: item.ReorderLevel,
				},
			})
		}
		return map[string]any{"quantity": next}, events, nil
	})
}

// Delete removes the item document.
func (s *Service) Delete(ctx context.Context, key string, actor *outbox.ActorRef) error {
	return s.store.WriteDelete(ctx, realtime.CollectionInventory, key, actor)
}

// Get reads one item from the mirror snapshot.
func (s *Service) Get(key string) (Item, bool) {
	for _, item := range s.mirror.Current() {
		if item.Key == key {
			return item, true
		}
	}
	return Item{}, false
}

// Available reports the live stock ceiling for the cart engine.
func (s *Service) Available(itemKey string) (int64, bool) {
	item, ok := s.Get(itemKey)
	if !ok {
		return 0, false
	}
	return item.Quantity, true
}

// ListFilters narrow the mirror snapshot.
type ListFilters struct {
	Query    string
	Category string
	LowOnly  bool
}

// List filters and paginates the current snapshot.
func (s *Service) List(filters ListFilters, params pagination.Params) pagination.Result[Item] {
	items := s.mirror.Current()
	query := strings.ToLower(strings.TrimSpace(filters.Query))
	category := strings.ToLower(strings.TrimSpace(filters.Category))

	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) {
			continue
		}
		if category != "" && strings.ToLower(item.Category) != category {
			continue
		}
		if filters.LowOnly && !item.IsLowStock() {
			continue
		}
		filtered = append(filtered, item)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return strings.ToLower(filtered[i].Name) < strings.ToLower(filtered[j].Name)
	})
	return pagination.Paginate(filtered, params)
}
