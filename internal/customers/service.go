package customers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/internal/mirror"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// Customer is the read model for one customer document. Balance is the
// outstanding credit owed by the customer; payments drive it back down.
type Customer struct {
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Balance decimal.Decimal `json:"balance"`
}

// DecodeCustomer maps a raw document onto a Customer.
func DecodeCustomer(doc realtime.RemoteDocument) Customer {
	return Customer{
		Key:     doc.Key,
		Name:    doc.String("name"),
		Phone:   doc.String("phone"),
		Balance: doc.Decimal("balance"),
	}
}

type documentStore interface {
	WriteNew(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, extra ...outbox.DomainEvent) (string, error)
	WriteUpdate(ctx context.Context, collection, key string, partial map[string]any, actor *outbox.ActorRef) error
	WriteDelete(ctx context.Context, collection, key string, actor *outbox.ActorRef) error
	Mutate(ctx context.Context, collection, key string, actor *outbox.ActorRef, fn func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error)) error
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

// Service manages the customers collection.
type Service struct {
	store  documentStore
	mirror *mirror.Mirror[Customer]
}

// NewMirror builds the customers mirror.
func NewMirror(store documentStore, opts ...mirror.Option[Customer]) (*mirror.Mirror[Customer], error) {
	loader := func(ctx context.Context) ([]Customer, error) {
		docs, err := store.List(ctx, realtime.CollectionCustomers, realtime.ListOptions{OrderBy: "created_at"})
		if err != nil {
			return nil, err
		}
		out := make([]Customer, 0, len(docs))
		for _, doc := range docs {
			out = append(out, DecodeCustomer(doc))
		}
		return out, nil
	}
	return mirror.New[Customer](realtime.CollectionCustomers, loader, opts...)
}

// NewService wires the customers service.
func NewService(store documentStore, m *mirror.Mirror[Customer]) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if m == nil {
		return nil, fmt.Errorf("customers mirror required")
	}
	return &Service{store: store, mirror: m}, nil
}

// CreateInput carries a new customer.
type CreateInput struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

// Create writes a new customer document with a zero balance.
func (s *Service) Create(ctx context.Context, input CreateInput, actor *outbox.ActorRef) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	fields := map[string]any{
		"name":    name,
		"phone":   strings.TrimSpace(input.Phone),
		"balance": "0",
	}
	return s.store.WriteNew(ctx, realtime.CollectionCustomers, fields, actor)
}

// UpdateInput carries a partial customer update. Nil fields stay untouched.
type UpdateInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// Update merges contact details into the customer document. Balance only
// moves through AdjustBalance.
func (s *Service) Update(ctx context.Context, key string, input UpdateInput, actor *outbox.ActorRef) error {
	partial := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		partial["name"] = name
	}
	if input.Phone != nil {
		partial["phone"] = strings.TrimSpace(*input.Phone)
	}
	if len(partial) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	return s.store.WriteUpdate(ctx, realtime.CollectionCustomers, key, partial, actor)
}

// AdjustBalance applies a signed delta to the outstanding balance. Credit
// sales add; repayments subtract. A repayment larger than the balance is
// rejected.
func (s *Service) AdjustBalance(ctx context.Context, key string, delta decimal.Decimal, actor *outbox.ActorRef) error {
	if delta.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "balance delta cannot be zero")
	}
	return s.store.Mutate(ctx, realtime.CollectionCustomers, key, actor, func(doc realtime.RemoteDocument) (map[string]any, []outbox.DomainEvent, error) {
		next := doc.Decimal("balance").Add(delta)
		if next.IsNegative() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("repayment exceeds outstanding balance %s", doc.Decimal("balance")))
		}
		return map[string]any{"balance": next.String()}, nil, nil
	})
}

// Delete removes the customer document.
func (s *Service) Delete(ctx context.Context, key string, actor *outbox.ActorRef) error {
	return s.store.WriteDelete(ctx, realtime.CollectionCustomers, key, actor)
}

// Get reads one customer from the mirror snapshot.
func (s *Service) Get(key string) (Customer, bool) {
	for _, customer := range s.mirror.Current() {
		if customer.Key == key {
			return customer, true
		}
	}
	return Customer{}, false
}

// List filters the snapshot by a name or phone substring and paginates.
func (s *Service) List(query string, params pagination.Params) pagination.Result[Customer] {
	needle := strings.ToLower(strings.TrimSpace(query))
	items := s.mirror.Current()
	filtered := make([]Customer, 0, len(items))
	for _, customer := range items {
		if needle != "" &&
			!strings.Contains(strings.ToLower(customer.Name), needle) &&
			!strings.Contains(customer.Phone, needle) {
			continue
		}
		filtered = append(filtered, customer)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return strings.ToLower(filtered[i].Name) < strings.ToLower(filtered[j].Name)
	})
	return pagination.Paginate(filtered, params)
}
