package notifications

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chemtech-ke/pharmos-backend/internal/mirror"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type documentStore interface {
	WriteUpdate(ctx context.Context, collection, key string, partial map[string]any, actor *outbox.ActorRef) error
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
}

// Service serves the notification inbox and activity feed from their
// mirrors. Read flags are document updates so every till sees them.
type Service struct {
	store      documentStore
	inbox      *mirror.Mirror[Notification]
	activities *mirror.Mirror[Activity]
}

// NewInboxMirror builds the notifications mirror.
func NewInboxMirror(store documentStore, opts ...mirror.Option[Notification]) (*mirror.Mirror[Notification], error) {
	loader := func(ctx context.Context) ([]Notification, error) {
		docs, err := store.List(ctx, realtime.CollectionNotifications, realtime.ListOptions{OrderBy: "created_at", Desc: true})
		if err != nil {
			return nil, err
		}
		out := make([]Notification, 0, len(docs))
		for _, doc := range docs {
			out = append(out, DecodeNotification(doc))
		}
		return out, nil
	}
	return mirror.New[Notification](realtime.CollectionNotifications, loader, opts...)
}

// NewActivityMirror builds the activity feed mirror.
func NewActivityMirror(store documentStore, opts ...mirror.Option[Activity]) (*mirror.Mirror[Activity], error) {
	loader := func(ctx context.Context) ([]Activity, error) {
		docs, err := store.List(ctx, realtime.CollectionActivities, realtime.ListOptions{OrderBy: "created_at", Desc: true})
		if err != nil {
			return nil, err
		}
		out := make([]Activity, 0, len(docs))
		for _, doc := range docs {
			out = append(out, DecodeActivity(doc))
		}
		return out, nil
	}
	return mirror.New[Activity](realtime.CollectionActivities, loader, opts...)
}

// NewService wires the notifications service.
func NewService(store documentStore, inbox *mirror.Mirror[Notification], activities *mirror.Mirror[Activity]) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if inbox == nil || activities == nil {
		return nil, fmt.Errorf("notification mirrors required")
	}
	return &Service{store: store, inbox: inbox, activities: activities}, nil
}

// List returns notifications newest first, optionally unread only.
func (s *Service) List(unreadOnly bool, params pagination.Params) pagination.Result[Notification] {
	items := s.inbox.Current()
	filtered := make([]Notification, 0, len(items))
	for _, n := range items {
		if unreadOnly && n.Read {
			continue
		}
		filtered = append(filtered, n)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].OccurredAt.After(filtered[j].OccurredAt)
	})
	return pagination.Paginate(filtered, params)
}

// UnreadCount returns how many notifications are unread.
func (s *Service) UnreadCount() int {
	count := 0
	for _, n := range s.inbox.Current() {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, key string, actor *outbox.ActorRef) error {
	found := false
	for _, n := range s.inbox.Current() {
		if n.Key == key {
			found = true
			break
		}
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return s.store.WriteUpdate(ctx, realtime.CollectionNotifications, key, map[string]any{
		"read":    true,
		"read_at": time.Now().UTC().Format(time.RFC3339),
	}, actor)
}

// MarkAllRead flags every unread notification as read and returns how many
// documents it touched.
func (s *Service) MarkAllRead(ctx context.Context, actor *outbox.ActorRef) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	count := 0
	for _, n := range s.inbox.Current() {
		if n.Read {
			continue
		}
		if err := s.store.WriteUpdate(ctx, realtime.CollectionNotifications, n.Key, map[string]any{
			"read":    true,
			"read_at": now,
		}, actor); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Activities returns the activity feed newest first.
func (s *Service) Activities(params pagination.Params) pagination.Result[Activity] {
	items := s.activities.Current()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})
	return pagination.Paginate(items, params)
}
