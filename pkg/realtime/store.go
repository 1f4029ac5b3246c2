package realtime

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/chemtech-ke/pharmos-backend/pkg/db"
	"github.com/chemtech-ke/pharmos-backend/pkg/db/models"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
)

// Collection names backing the point of sale.
const (
	CollectionSales           = "sales"
	CollectionWholesaleOrders = "wholesale_orders"
	CollectionInventory       = "inventory"
	CollectionExpenses        = "expenses"
	CollectionCustomers       = "customers"
	CollectionPrescriptions   = "prescriptions"
	CollectionNotifications   = "notifications"
	CollectionActivities      = "activities"
	CollectionSettings        = "settings"
)

const (
	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"
)

// ListOptions controls ordering of full-collection reads.
type ListOptions struct {
	OrderBy string
	Desc    bool
}

// Store persists documents and emits a change trigger for every write inside
// the same transaction.
type Store struct {
	db     *dbpkg.Client
	events *outbox.Service
	logg   *logger.Logger
}

// NewStore wires the document store against the shared database client.
func NewStore(client *dbpkg.Client, events *outbox.Service, logg *logger.Logger) *Store {
	return &Store{db: client, events: events, logg: logg}
}

// WriteNew inserts a document with a server-assigned key and returns the key.
// Extra domain events are queued in the same transaction, keyed to the new
// document unless they carry their own aggregate.
func (s *Store) WriteNew(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, extra ...outbox.DomainEvent) (string, error) {
	if len(extra) == 0 {
		return s.WriteNewWith(ctx, collection, fields, actor, nil)
	}
	return s.WriteNewWith(ctx, collection, fields, actor, func(string) []outbox.DomainEvent {
		return extra
	})
}

// WriteNewWith is WriteNew for callers whose extra events need the assigned
// key in their payloads. The build callback runs inside the transaction once
// the key is known.
func (s *Store) WriteNewWith(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, build func(key string) []outbox.DomainEvent) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(errors.CodeValidation, err, "encode document")
	}
	key := uuid.NewString()
	row := models.Document{
		Collection: collection,
		Key:        key,
		Data:       data,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := s.emitChanged(ctx, tx, row, actionCreated, actor); err != nil {
			return err
		}
		if s.events == nil || build == nil {
			return nil
		}
		for _, event := range build(key) {
			if event.AggregateID == uuid.Nil {
				event.AggregateID = row.ID
			}
			if event.Actor == nil {
				event.Actor = actor
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", writeFailure(err, collection)
	}
	return key, nil
}

// WriteUpdate merges the partial fields into an existing document. The
// read-modify-write happens inside one transaction with the row locked.
func (s *Store) WriteUpdate(ctx context.Context, collection, key string, partial map[string]any, actor *outbox.ActorRef) error {
	if len(partial) == 0 {
		return errors.New(errors.CodeValidation, "no fields to update")
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := lockDocument(tx, collection, key)
		if err != nil {
			return err
		}
		merged, err := mergeFields(row.Data, partial)
		if err != nil {
			return err
		}
		row.Data = merged
		if err := tx.Model(&models.Document{}).
			Where("id = ?", row.ID).
			Update("data", row.Data).Error; err != nil {
			return err
		}
		return s.emitChanged(ctx, tx, *row, actionUpdated, actor)
	})
	if err != nil {
		return writeFailure(err, collection)
	}
	return nil
}

// Mutate reads the document, applies fn, persists the merged result, and
// queues any extra domain events alongside the change trigger in the same
// transaction. fn returning a typed error aborts with that error and no
// write happens.
func (s *Store) Mutate(ctx context.Context, collection, key string, actor *outbox.ActorRef, fn func(doc RemoteDocument) (map[string]any, []outbox.DomainEvent, error)) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := lockDocument(tx, collection, key)
		if err != nil {
			return err
		}
		partial, events, err := fn(FromModel(*row))
		if err != nil {
			return err
		}
		if len(partial) > 0 {
			merged, err := mergeFields(row.Data, partial)
			if err != nil {
				return err
			}
			row.Data = merged
			if err := tx.Model(&models.Document{}).
				Where("id = ?", row.ID).
				Update("data", row.Data).Error; err != nil {
				return err
			}
			if err := s.emitChanged(ctx, tx, *row, actionUpdated, actor); err != nil {
				return err
			}
		}
		for _, event := range events {
			if event.AggregateID == uuid.Nil {
				event.AggregateID = row.ID
			}
			if event.Actor == nil {
				event.Actor = actor
			}
			if s.events == nil {
				continue
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return writeFailure(err, collection)
	}
	return nil
}

// WriteDelete removes a document. Deleting an absent key is NotFound.
func (s *Store) WriteDelete(ctx context.Context, collection, key string, actor *outbox.ActorRef) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := lockDocument(tx, collection, key)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Document{}, "id = ?", row.ID).Error; err != nil {
			return err
		}
		return s.emitChanged(ctx, tx, *row, actionDeleted, actor)
	})
	if err != nil {
		return writeFailure(err, collection)
	}
	return nil
}

// Get loads a single document.
func (s *Store) Get(ctx context.Context, collection, key string) (RemoteDocument, error) {
	var row models.Document
	err := s.db.DB().WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return RemoteDocument{}, errors.New(errors.CodeNotFound, fmt.Sprintf("document %s/%s not found", collection, key))
		}
		return RemoteDocument{}, errors.Wrap(errors.CodeDependency, err, "load document")
	}
	return FromModel(row), nil
}

// List reads the full membership of a collection. Mirrors call this on every
// change trigger and replace their snapshot with the result.
func (s *Store) List(ctx context.Context, collection string, opts ListOptions) ([]RemoteDocument, error) {
	order := "created_at ASC"
	if opts.OrderBy != "" {
		direction := "ASC"
		if opts.Desc {
			direction = "DESC"
		}
		order = fmt.Sprintf("%s %s", opts.OrderBy, direction)
	}
	var rows []models.Document
	err := s.db.DB().WithContext(ctx).
		Where("collection = ?", collection).
		Order(order).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list collection")
	}
	docs := make([]RemoteDocument, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, FromModel(row))
	}
	return docs, nil
}

// DeleteOlderThan removes documents in a collection whose last update is
// before the cutoff. Retention jobs call this; no change events are emitted
// since mirrors reload the whole collection on their next trigger anyway.
func (s *Store) DeleteOlderThan(ctx context.Context, tx *gorm.DB, collection string, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, stderrors.New("transaction required")
	}
	result := tx.WithContext(ctx).
		Where("collection = ? AND updated_at < ?", collection, cutoff).
		Delete(&models.Document{})
	if result.Error != nil {
		return 0, errors.Wrap(errors.CodeDependency, result.Error, "delete stale documents")
	}
	return result.RowsAffected, nil
}

func (s *Store) emitChanged(ctx context.Context, tx *gorm.DB, row models.Document, action string, actor *outbox.ActorRef) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDocumentChanged,
		AggregateType: enums.AggregateDocument,
		AggregateID:   row.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.DocumentChangedEvent{
			Collection: row.Collection,
			Key:        row.Key,
			Action:     action,
		},
	})
}

func lockDocument(tx *gorm.DB, collection, key string) (*models.Document, error) {
	var row models.Document
	query := tx.Where("collection = ? AND key = ?", collection, key)
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&row).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("document %s/%s not found", collection, key))
		}
		return nil, err
	}
	return &row, nil
}

func mergeFields(existing json.RawMessage, partial map[string]any) (json.RawMessage, error) {
	fields := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &fields); err != nil {
			return nil, fmt.Errorf("decode stored document: %w", err)
		}
	}
	for k, v := range partial {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}

// writeFailure keeps typed errors intact and maps everything else to the
// retryable write-failure code.
func writeFailure(err error, collection string) error {
	if typed := errors.As(err); typed != nil {
		return typed
	}
	return errors.Wrap(errors.CodeWriteFailure, err, fmt.Sprintf("write to %s failed", collection))
}
