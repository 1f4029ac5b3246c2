package prescriptions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chemtech-ke/pharmos-backend/internal/mirror"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// PrescriptionLine is one dispensed item with its dosage instructions.
type PrescriptionLine struct {
	ItemKey  string `json:"item_key"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Dosage   string `json:"dosage"`
}

// Prescription is the read model for one prescription document.
type Prescription struct {
	Key         string             `json:"key"`
	PatientName string             `json:"patient_name"`
	CustomerKey string             `json:"customer_key,omitempty"`
	Prescriber  string             `json:"prescriber"`
	Lines       []PrescriptionLine `json:"lines"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// DecodePrescription maps a raw document onto a Prescription.
func DecodePrescription(doc realtime.RemoteDocument) Prescription {
	p := Prescription{
		Key:         doc.Key,
		PatientName: doc.String("patient_name"),
		CustomerKey: doc.String("customer_key"),
		Prescriber:  doc.String("prescriber"),
		RecordedAt:  doc.Time("recorded_at"),
	}
	for _, line := range doc.Objects("lines") {
		p.Lines = append(p.Lines, PrescriptionLine{
			ItemKey:  line.String("item_key"),
			Name:     line.String("name"),
			Quantity: line.Int64("quantity"),
			Dosage:   line.String("dosage"),
		})
	}
	return p
}

type documentStore interface {
	WriteNewWith(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, build func(key string) []outbox.DomainEvent) (string, error)
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

type stockSource interface {
	Available(itemKey string) (int64, bool)
}

// Service manages the prescriptions collection. Line quantities are checked
// against the live inventory mirror at record time only; dispensing later
// goes through the cart like any other sale.
type Service struct {
	store  documentStore
	stock  stockSource
	mirror *mirror.Mirror[Prescription]
}

// NewMirror builds the prescriptions mirror.
func NewMirror(store documentStore, opts ...mirror.Option[Prescription]) (*mirror.Mirror[Prescription], error) {
	loader := func(ctx context.Context) ([]Prescription, error) {
		docs, err := store.List(ctx, realtime.CollectionPrescriptions, realtime.ListOptions{OrderBy: "created_at", Desc: true})
		if err != nil {
			return nil, err
		}
		out := make([]Prescription, 0, len(docs))
		for _, doc := range docs {
			out = append(out, DecodePrescription(doc))
		}
		return out, nil
	}
	return mirror.New[Prescription](realtime.CollectionPrescriptions, loader, opts...)
}

// NewService wires the prescriptions service.
func NewService(store documentStore, stock stockSource, m *mirror.Mirror[Prescription]) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock source required")
	}
	if m == nil {
		return nil, fmt.Errorf("prescriptions mirror required")
	}
	return &Service{store: store, stock: stock, mirror: m}, nil
}

// LineInput is one requested prescription line.
type LineInput struct {
	ItemKey  string `json:"item_key" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gte=1"`
	Dosage   string `json:"dosage"`
}

// RecordInput carries a new prescription.
type RecordInput struct {
	PatientName string      `json:"patient_name" validate:"required"`
	CustomerKey string      `json:"customer_key"`
	Prescriber  string      `json:"prescriber"`
	Lines       []LineInput `json:"lines" validate:"min=1"`
}

// Record validates every line against live stock and writes the
// prescription document with its event in one transaction.
func (s *Service) Record(ctx context.Context, input RecordInput, actor *outbox.ActorRef) (string, error) {
	patient := strings.TrimSpace(input.PatientName)
	if patient == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "patient name is required")
	}
	if len(input.Lines) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "prescription needs at least one line")
	}

	lines := make([]any, 0, len(input.Lines))
	for _, line := range input.Lines {
		if strings.TrimSpace(line.ItemKey) == "" || line.Quantity < 1 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "every line needs an item and a positive quantity")
		}
		available, ok := s.stock.Available(line.ItemKey)
		if !ok {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s is not in the inventory", line.Name))
		}
		if line.Quantity > available {
			return "", pkgerrors.New(pkgerrors.CodeStockExceeded, fmt.Sprintf("only %d units of %s in stock", available, line.Name)).
				WithDetails(map[string]any{"item_key": line.ItemKey, "available": available, "requested": line.Quantity})
		}
		lines = append(lines, map[string]any{
			"item_key": line.ItemKey,
			"name":     strings.TrimSpace(line.Name),
			"quantity": line.Quantity,
			"dosage":   strings.TrimSpace(line.Dosage),
		})
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"patient_name": patient,
		"prescriber":   strings.TrimSpace(input.Prescriber),
		"lines":        lines,
		"recorded_at":  now.Format(time.RFC3339),
	}
	if input.CustomerKey != "" {
		fields["customer_key"] = input.CustomerKey
	}

	var recordedBy uuid.UUID
	if actor != nil {
		recordedBy = actor.UserID
	}
	return s.store.WriteNewWith(ctx, realtime.CollectionPrescriptions, fields, actor, func(key string) []outbox.DomainEvent {
		return []outbox.DomainEvent{{
			EventType:     enums.EventPrescriptionRecorded,
			AggregateType: enums.AggregatePrescription,
			Version:       1,
			Data: payloads.PrescriptionRecordedEvent{
				PrescriptionKey: key,
				PatientName:     patient,
				RecordedBy:      recordedBy,
				RecordedAt:      now,
			},
		}}
	})
}

// Get reads one prescription from the mirror snapshot.
func (s *Service) Get(key string) (Prescription, bool) {
	for _, p := range s.mirror.Current() {
		if p.Key == key {
			return p, true
		}
	}
	return Prescription{}, false
}

// List filters the snapshot by a patient or prescriber substring, newest
// first, and paginates.
func (s *Service) List(query string, params pagination.Params) pagination.Result[Prescription] {
	needle := strings.ToLower(strings.TrimSpace(query))
	items := s.mirror.Current()
	filtered := make([]Prescription, 0, len(items))
	for _, p := range items {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.PatientName), needle) &&
			!strings.Contains(strings.ToLower(p.Prescriber), needle) {
			continue
		}
		filtered = append(filtered, p)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RecordedAt.After(filtered[j].RecordedAt)
	})
	return pagination.Paginate(filtered, params)
}
