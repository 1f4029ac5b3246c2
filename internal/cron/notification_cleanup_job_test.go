package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
	"gorm.io/gorm"
)

func TestNotificationCleanupJobPrunesBothCollections(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeDocumentCleanupRepo{deletedRows: 21}
	job := newNotificationCleanupJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.UTC().Add(-notificationRetentionDays * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if len(repo.collections) != 2 {
		t.Fatalf("expected 2 collections pruned, got %d", len(repo.collections))
	}
	if repo.collections[0] != realtime.CollectionNotifications || repo.collections[1] != realtime.CollectionActivities {
		t.Fatalf("unexpected collections: %v", repo.collections)
	}
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	repo := &fakeDocumentCleanupRepo{err: errors.New("boom")}
	job := newNotificationCleanupJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newNotificationCleanupJob(t *testing.T, repo *fakeDocumentCleanupRepo) *notificationCleanupJob {
	t.Helper()
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        cronTestTxRunner{},
		Documents: repo,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job, ok := jobIface.(*notificationCleanupJob)
	if !ok {
		t.Fatalf("expected notificationCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeDocumentCleanupRepo struct {
	lastCutoff  time.Time
	collections []string
	deletedRows int64
	err         error
}

func (f *fakeDocumentCleanupRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, collection string, cutoff time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.lastCutoff = cutoff
	f.collections = append(f.collections, collection)
	return f.deletedRows, nil
}

type cronTestTxRunner struct{}

func (cronTestTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
