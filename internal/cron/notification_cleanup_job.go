package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const notificationRetentionDays = 30

type NotificationCleanupJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Documents documentCleanupRepo
	Retention int
}

type documentCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, collection string, cutoff time.Time) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Documents == nil {
		return nil, fmt.Errorf("document store required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		docs:      params.Documents,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	docs      documentCleanupRepo
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run prunes read-once collections. Notifications and activity entries only
// matter while they are fresh; everything older than the retention window is
// dead weight in every mirror reload.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	collections := []string{realtime.CollectionNotifications, realtime.CollectionActivities}
	var deleted int64
	var errs []error
	for _, collection := range collections {
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.docs.DeleteOlderThan(ctx, tx, collection, cutoff)
			if err != nil {
				return err
			}
			deleted += rows
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", collection, err))
		}
	}
	if err := multierr.Combine(errs...); err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
