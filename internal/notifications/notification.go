package notifications

import (
	"time"

	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// Notification is the read model for one in-app notification document.
type Notification struct {
	Key        string                 `json:"key"`
	Type       enums.NotificationType `json:"type"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Read       bool                   `json:"read"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Activity is one entry in the audit-style activity feed.
type Activity struct {
	Key        string    `json:"key"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecodeNotification maps a raw document onto a Notification.
func DecodeNotification(doc realtime.RemoteDocument) Notification {
	return Notification{
		Key:        doc.Key,
		Type:       enums.NotificationType(doc.String("type")),
		Title:      doc.String("title"),
		Message:    doc.String("message"),
		Read:       doc.Bool("read"),
		OccurredAt: doc.Time("occurred_at"),
	}
}

// DecodeActivity maps a raw document onto an Activity.
func DecodeActivity(doc realtime.RemoteDocument) Activity {
	return Activity{
		Key:        doc.Key,
		Kind:       doc.String("kind"),
		Message:    doc.String("message"),
		OccurredAt: doc.Time("occurred_at"),
	}
}
