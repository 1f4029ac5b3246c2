package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chemtech-ke/pharmos-backend/internal/inventory"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

const defaultExpiryWarningDays = 30

// ExpiryWarningJobParams configures the scheduled batch expiry sweep.
type ExpiryWarningJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Documents   documentLister
	Outbox      expiryOutbox
	WarningDays int
}

type documentLister interface {
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

type expiryOutbox interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewExpiryWarningJob constructs the expiry sweep cron job.
func NewExpiryWarningJob(params ExpiryWarningJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Documents == nil {
		return nil, fmt.Errorf("document store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	days := params.WarningDays
	if days <= 0 {
		days = defaultExpiryWarningDays
	}
	return &expiryWarningJob{
		logg:   params.Logger,
		db:     params.DB,
		docs:   params.Documents,
		outbox: params.Outbox,
		days:   days,
		now:    time.Now,
	}, nil
}

type expiryWarningJob struct {
	logg   *logger.Logger
	db     txRunner
	docs   documentLister
	outbox expiryOutbox
	days   int
	now    func() time.Time
}

func (j *expiryWarningJob) Name() string { return "stock-expiry-warning" }

// Run scans the inventory collection for batches whose expiry date lands on
// the warning target day and queues a stock_expiring event per item. Matching
// on the target day means each batch is warned exactly once; outbox dedupe
// covers reruns of the same cycle.
func (j *expiryWarningJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	target := now.Add(time.Duration(j.days) * 24 * time.Hour)
	dayStart := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	docs, err := j.docs.List(ctx, realtime.CollectionInventory, realtime.ListOptions{})
	if err != nil {
		return fmt.Errorf("list inventory: %w", err)
	}
	count := 0
	for _, doc := range docs {
		item := inventory.DecodeItem(doc)
		if item.IsOutOfStock() || item.ExpiryDate.IsZero() {
			continue
		}
		if item.ExpiryDate.Before(dayStart) || !item.ExpiryDate.Before(dayEnd) {
			continue
		}
		aggregateID, err := uuid.Parse(item.Key)
		if err != nil {
			continue
		}
		daysLeft := int(item.ExpiryDate.Sub(now).Hours() / 24)
		if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockExpiring,
				AggregateType: enums.AggregateInventoryItem,
				AggregateID:   aggregateID,
				Version:       1,
				OccurredAt:    now,
				Data: payloads.StockExpiringEvent{
					ItemKey:    item.Key,
					Name:       item.Name,
					Batch:      item.Batch,
					ExpiryDate: item.ExpiryDate,
					DaysLeft:   daysLeft,
				},
			})
		}); err != nil {
			return fmt.Errorf("queue expiry warning for %s: %w", item.Key, err)
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"warning_days": j.days,
		"count":        count,
	})
	j.logg.Info(logCtx, "expiry sweep complete")
	return nil
}
