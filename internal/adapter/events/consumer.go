package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
)

// Channels the host CMS publishes payment lifecycle events on.
const (
	PurchaseCompletedChannel    = "edd.purchase_completed"
	PaymentStatusChangedChannel = "edd.payment_status_changed"
)

type PurchaseCompletedEvent struct {
	PaymentID  int64 `json:"payment_id"`
	CustomerID int64 `json:"customer_id"`
}

type PaymentStatusChangedEvent struct {
	PaymentID int64  `json:"payment_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type invalidator interface {
	HandlePurchaseComplete(ctx context.Context, paymentID, customerID int64)
	HandlePaymentStatusChange(ctx context.Context, paymentID int64, oldStatus, newStatus domain.PaymentStatus)
}

// Consumer subscribes to the payment lifecycle channels and feeds the
// cache invalidation handlers. Malformed payloads are logged and
// skipped; a missed message only delays invalidation until the cache
// entry expires on its own.
type Consumer struct {
	client  *redis.Client
	service invalidator
	logger  *slog.Logger
}

func NewConsumer(client *redis.Client, service invalidator, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		client:  client,
		service: service,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	sub := c.client.Subscribe(ctx, PurchaseCompletedChannel, PaymentStatusChangedChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "event consumer subscribed",
		"channels", []string{PurchaseCompletedChannel, PaymentStatusChangedChannel})

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.dispatch(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, channel string, payload []byte) {
	switch channel {
	case PurchaseCompletedChannel:
		var event PurchaseCompletedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.WarnContext(ctx, "bad purchase event payload", "error", err.Error())
			return
		}
		c.service.HandlePurchaseComplete(ctx, event.PaymentID, event.CustomerID)

	case PaymentStatusChangedChannel:
		var event PaymentStatusChangedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.WarnContext(ctx, "bad status change payload", "error", err.Error())
			return
		}
		c.service.HandlePaymentStatusChange(ctx, event.PaymentID,
			domain.PaymentStatus(event.OldStatus), domain.PaymentStatus(event.NewStatus))
	}
}
