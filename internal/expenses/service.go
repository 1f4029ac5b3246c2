package expenses

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
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type documentStore interface {
	WriteNewWith(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, build func(key string) []outbox.DomainEvent) (string, error)
	WriteDelete(ctx context.Context, collection, key string, actor *outbox.ActorRef) error
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

// Service manages the expenses collection. The category is derived from the
// label at write time and stored on the document so historic expenses keep
// their bucket even if the keyword list changes.
type Service struct {
	store  documentStore
	mirror *mirror.Mirror[Expense]
}

// NewMirror builds the expenses mirror.
func NewMirror(store documentStore, opts ...mirror.Option[Expense]) (*mirror.Mirror[Expense], error) {
	loader := func(ctx context.Context) ([]Expense, error) {
		docs, err := store.List(ctx, realtime.CollectionExpenses, realtime.ListOptions{OrderBy: "created_at", Desc: true})
		if err != nil {
			return nil, err
		}
		out := make([]Expense, 0, len(docs))
		for _, doc := range docs {
			out = append(out, DecodeExpense(doc))
		}
		return out, nil
	}
	return mirror.New[Expense](realtime.CollectionExpenses, loader, opts...)
}

// NewService wires the expenses service.
func NewService(store documentStore, m *mirror.Mirror[Expense]) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if m == nil {
		return nil, fmt.Errorf("expenses mirror required")
	}
	return &Service{store: store, mirror: m}, nil
}

// RecordInput carries a new expense.
type RecordInput struct {
	Label      string          `json:"label" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	IncurredAt *time.Time      `json:"incurred_at"`
}

// Record writes the expense document and queues the expense event in the
// same transaction.
func (s *Service) Record(ctx context.Context, input RecordInput, actor *outbox.ActorRef) (string, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "expense label is required")
	}
	if !input.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "expense amount must be positive")
	}

	now := time.Now().UTC()
	incurred := now
	if input.IncurredAt != nil {
		incurred = input.IncurredAt.UTC()
	}
	fields := map[string]any{
		"label":       label,
		"amount":      input.Amount.String(),
		"category":    Categorize(label),
		"incurred_at": incurred.Format(time.RFC3339),
	}
	return s.store.WriteNewWith(ctx, realtime.CollectionExpenses, fields, actor, func(key string) []outbox.DomainEvent {
		return []outbox.DomainEvent{{
			EventType:     enums.EventExpenseRecorded,
			AggregateType: enums.AggregateExpense,
			Version:       1,
			Data: payloads.ExpenseRecordedEvent{
				ExpenseKey:  key,
				Amount:      input.Amount,
				Description: label,
				RecordedAt:  now,
			},
		}}
	})
}

// Delete removes an expense document.
func (s *Service) Delete(ctx context.Context, key string, actor *outbox.ActorRef) error {
	return s.store.WriteDelete(ctx, realtime.CollectionExpenses, key, actor)
}

// ListFilters narrow the expenses snapshot.
type ListFilters struct {
	Category string
	From     time.Time
	To       time.Time
}

// List filters and paginates the current snapshot, newest first.
func (s *Service) List(filters ListFilters, params pagination.Params) pagination.Result[Expense] {
	category := strings.ToLower(strings.TrimSpace(filters.Category))
	items := s.mirror.Current()
	filtered := make([]Expense, 0, len(items))
	for _, expense := range items {
		if category != "" && expense.Category != category {
			continue
		}
		if !filters.From.IsZero() && expense.IncurredAt.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && expense.IncurredAt.After(filters.To) {
			continue
		}
		filtered = append(filtered, expense)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].IncurredAt.After(filtered[j].IncurredAt)
	})
	return pagination.Paginate(filtered, params)
}
