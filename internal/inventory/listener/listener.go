package listener

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/internal/broker"
	"github.com/aegean-labs/stockroom/internal/inventory"
)

// OrderListener deducts local stock when the storefront reports a sale.
// The catalog sync remains authoritative, this only keeps counts closer
// to reality between runs.
type OrderListener struct {
	consumer *broker.KafkaConsumer
	uc       inventory.UseCase
	logger   *zap.Logger
}

func NewOrderListener(consumer *broker.KafkaConsumer, uc inventory.UseCase, log *zap.Logger) *OrderListener {
	return &OrderListener{
		consumer: consumer,
		uc:       uc,
		logger:   log,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("starting order listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping order listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("failed to read order event", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderCreatedEvent struct {
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID    string          `json:"id"`
	Items []OrderLineItem `json:"items"`
}

type OrderLineItem struct {
	ExternalID int64 `json:"external_id"`
	Quantity   int   `json:"quantity"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("failed to unmarshal order event", zap.Error(err))
		return
	}

	if event.EventType != "OrderCreated" {
		return
	}

	l.logger.Info("processing order", zap.String("order_id", event.Payload.ID))

	for _, item := range event.Payload.Items {
		if item.Quantity <= 0 {
			continue
		}

		_, err := l.uc.AdjustStockByExternalID(ctx, item.ExternalID, -item.Quantity)
		if err != nil {
			// Unknown ids are expected until the next sync picks the
			// product up.
			l.logger.Warn("could not deduct stock for order item",
				zap.String("order_id", event.Payload.ID),
				zap.Int64("external_id", item.ExternalID),
				zap.Error(err))
		}
	}
}
