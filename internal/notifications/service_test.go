package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type fakeStore struct {
	docs    map[string]map[string]map[string]any
	updated []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string]map[string]any{}}
}

func (f *fakeStore) seed(collection, key string, fields map[string]any) {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]map[string]any{}
	}
	f.docs[collection][key] = fields
}

func (f *fakeStore) WriteUpdate(_ context.Context, collection, key string, partial map[string]any, _ *outbox.ActorRef) error {
	fields, ok := f.docs[collection][key]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	for k, v := range partial {
		fields[k] = v
	}
	f.updated = append(f.updated, key)
	return nil
}

func (f *fakeStore) List(_ context.Context, collection string, _ realtime.ListOptions) ([]realtime.RemoteDocument, error) {
	docs := make([]realtime.RemoteDocument, 0, len(f.docs[collection]))
	for key, fields := range f.docs[collection] {
		docs = append(docs, realtime.NewRemoteDocument(collection, key, fields))
	}
	return docs, nil
}

func notificationFields(read bool, at time.Time) map[string]any {
	return map[string]any{
		"type":        "sale",
		"title":       "Sale recorded",
		"message":     "Sale of 100 recorded (cash)",
		"read":        read,
		"occurred_at": at.Format(time.RFC3339),
	}
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	inbox, err := NewInboxMirror(store)
	require.NoError(t, err)
	t.Cleanup(inbox.Close)
	inbox.Start(context.Background())

	feed, err := NewActivityMirror(store)
	require.NoError(t, err)
	t.Cleanup(feed.Close)
	feed.Start(context.Background())

	svc, err := NewService(store, inbox, feed)
	require.NoError(t, err)
	return svc
}

func TestListUnreadOnly(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.seed(realtime.CollectionNotifications, "n1", notificationFields(true, base))
	store.seed(realtime.CollectionNotifications, "n2", notificationFields(false, base.Add(time.Hour)))
	svc := newTestService(t, store)

	all := svc.List(false, pagination.Params{})
	require.Equal(t, 2, all.Total)
	require.Equal(t, "n2", all.Items[0].Key, "newest first")

	unread := svc.List(true, pagination.Params{})
	require.Equal(t, 1, unread.Total)
	require.Equal(t, "n2", unread.Items[0].Key)
	require.Equal(t, 1, svc.UnreadCount())
}

func TestMarkRead(t *testing.T) {
	store := newFakeStore()
	store.seed(realtime.CollectionNotifications, "n1", notificationFields(false, time.Now()))
	svc := newTestService(t, store)

	require.NoError(t, svc.MarkRead(context.Background(), "n1", nil))
	require.Equal(t, true, store.docs[realtime.CollectionNotifications]["n1"]["read"])

	err := svc.MarkRead(context.Background(), "ghost", nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestMarkAllRead(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.seed(realtime.CollectionNotifications, "n1", notificationFields(false, now))
	store.seed(realtime.CollectionNotifications, "n2", notificationFields(false, now))
	store.seed(realtime.CollectionNotifications, "n3", notificationFields(true, now))
	svc := newTestService(t, store)

	count, err := svc.MarkAllRead(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, store.updated, 2)
}

func TestActivitiesNewestFirst(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.seed(realtime.CollectionActivities, "a1", map[string]any{"kind": "sale_recorded", "message": "first", "occurred_at": base.Format(time.RFC3339)})
	store.seed(realtime.CollectionActivities, "a2", map[string]any{"kind": "stock_low", "message": "second", "occurred_at": base.Add(time.Hour).Format(time.RFC3339)})
	svc := newTestService(t, store)

	feed := svc.Activities(pagination.Params{})
	require.Equal(t, 2, feed.Total)
	require.Equal(t, "second", feed.Items[0].Message)
}
