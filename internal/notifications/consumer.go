package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/idempotency"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

const consumerName = "notifications-worker"

type documentWriter interface {
	WriteNew(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, extra ...outbox.DomainEvent) (string, error)
}

// Consumer watches domain events and fans them out into notification and
// activity documents, which then reach every till through the mirrors.
type Consumer struct {
	store        documentWriter
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notifications consumer.
func NewConsumer(store documentWriter, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		store:        store,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.fanOut(ctx, eventType, envelope); err != nil {
		c.logg.Error(logCtx, "event fan-out failed", err)
		_ = c.idempotency.Delete(ctx, consumerName, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

// fanOut translates one domain event into an activity entry and, where the
// event warrants attention at the counter, a notification.
func (c *Consumer) fanOut(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventSaleRecorded:
		var p payloads.SaleRecordedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("Sale of %s recorded (%s)", p.GrandTotal, p.PaymentMethod)
		if err := c.writeActivity(ctx, eventType, message, envelope); err != nil {
			return err
		}
		return c.writeNotification(ctx, enums.NotificationTypeSale, "Sale recorded", message, envelope)

	case enums.EventWholesaleRecorded:
		var p payloads.WholesaleRecordedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("Wholesale order of %s recorded", p.GrandTotal)
		if err := c.writeActivity(ctx, eventType, message, envelope); err != nil {
			return err
		}
		return c.writeNotification(ctx, enums.NotificationTypeSale, "Wholesale order recorded", message, envelope)

	case enums.EventOrderCancelled:
		var p payloads.OrderCancelledEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("Order %s was cancelled", p.OrderKey)
		if err := c.writeActivity(ctx, eventType, message, envelope); err != nil {
			return err
		}
		return c.writeNotification(ctx, enums.NotificationTypeSale, "Order cancelled", message, envelope)

	case enums.EventStockAdjusted:
		var p payloads.StockAdjustedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("%s stock moved from %d to %d", p.Name, p.PreviousQuantity, p.NewQuantity)
		return c.writeActivity(ctx, eventType, message, envelope)

	case enums.EventStockLow:
		var p payloads.StockLowEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("%s is low: %d left (reorder at %d)", p.Name, p.Quantity, p.ReorderLevel)
		if err := c.writeActivity(ctx, eventType, message, envelope); err != nil {
			return err
		}
		return c.writeNotification(ctx, enums.NotificationTypeStock, "Low stock", message, envelope)

	case enums.EventStockExpiring:
		var p payloads.StockExpiringEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("%s expires in %d days (%s)", p.Name, p.DaysLeft, p.ExpiryDate.Format("2006-01-02"))
		if err := c.writeActivity(ctx, eventType, message, envelope); err != nil {
			return err
		}
		return c.writeNotification(ctx, enums.NotificationTypeStock, "Stock expiring", message, envelope)

	case enums.EventExpenseRecorded:
		var p payloads.ExpenseRecordedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("Expense %q of %s recorded", p.Description, p.Amount)
		if err := c.writeActivity(ctx, eventType, message, envelope); err != nil {
			return err
		}
		return c.writeNotification(ctx, enums.NotificationTypeExpense, "Expense recorded", message, envelope)

	case enums.EventPrescriptionRecorded:
		var p payloads.PrescriptionRecordedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		message := fmt.Sprintf("Prescription recorded for %s", p.PatientName)
		return c.writeActivity(ctx, eventType, message, envelope)

	default:
		// Not every event needs a counter-side trace.
		return nil
	}
}

func (c *Consumer) writeActivity(ctx context.Context, eventType enums.OutboxEventType, message string, envelope outbox.PayloadEnvelope) error {
	_, err := c.store.WriteNew(ctx, realtime.CollectionActivities, map[string]any{
		"kind":        string(eventType),
		"message":     message,
		"occurred_at": envelope.OccurredAt.UTC().Format(time.RFC3339),
	}, envelope.Actor)
	return err
}

func (c *Consumer) writeNotification(ctx context.Context, kind enums.NotificationType, title, message string, envelope outbox.PayloadEnvelope) error {
	_, err := c.store.WriteNew(ctx, realtime.CollectionNotifications, map[string]any{
		"type":        string(kind),
		"title":       title,
		"message":     message,
		"read":        false,
		"occurred_at": envelope.OccurredAt.UTC().Format(time.RFC3339),
	}, envelope.Actor)
	return err
}
