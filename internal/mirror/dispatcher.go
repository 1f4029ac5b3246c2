package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
)

// Notifiable is the trigger surface a dispatcher needs from a mirror.
type Notifiable interface {
	Notify()
}

// Dispatcher receives document change triggers from the changes subscription
// and routes them to the mirrors observing each collection. Triggers are
// hints, not data: a dropped or duplicated message only costs an extra full
// reload, so every message is acked.
type Dispatcher struct {
	subscription *pubsub.Subscriber
	logg         *logger.Logger

	mu      sync.RWMutex
	targets map[string][]Notifiable
}

// NewDispatcher builds a dispatcher on the changes subscription.
func NewDispatcher(subscription *pubsub.Subscriber, logg *logger.Logger) (*Dispatcher, error) {
	if subscription == nil {
		return nil, fmt.Errorf("changes subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		subscription: subscription,
		logg:         logg,
		targets:      map[string][]Notifiable{},
	}, nil
}

// Register subscribes a mirror to triggers for the collection.
func (d *Dispatcher) Register(collection string, target Notifiable) {
	if collection == "" || target == nil {
		return
	}
	d.mu.Lock()
	d.targets[collection] = append(d.targets[collection], target)
	d.mu.Unlock()
}

// Run starts the receive loop until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		d.process(ctx, msg)
		msg.Ack()
	})
}

func (d *Dispatcher) process(ctx context.Context, msg *pubsub.Message) {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	if msg.Attributes["event_type"] != string(enums.EventDocumentChanged) {
		d.logg.Info(logCtx, "skipping non-change event")
		return
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		d.logg.Error(logCtx, "failed to decode envelope", err)
		return
	}
	var payload payloads.DocumentChangedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		d.logg.Error(logCtx, "failed to parse change payload", err)
		return
	}
	if payload.Collection == "" {
		d.logg.Info(logCtx, "change trigger missing collection")
		return
	}

	d.mu.RLock()
	targets := d.targets[payload.Collection]
	d.mu.RUnlock()
	for _, target := range targets {
		target.Notify()
	}
}
