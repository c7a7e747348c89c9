package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleCommitted publishes SaleCommitted event
func (ep *EventPublisher) PublishSaleCommitted(ctx context.Context, event *models.SaleCommittedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("sale-%s", event.SaleID), event)
}

// PublishSaleFailed publishes SaleFailed event
func (ep *EventPublisher) PublishSaleFailed(ctx context.Context, event *models.SaleFailedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("sale-%s", event.SaleID), event)
}

// PublishStockAdjusted publishes StockAdjusted event
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("product-%s", event.Code), event)
}

// PublishCompensationPending publishes CompensationPending event
func (ep *EventPublisher) PublishCompensationPending(ctx context.Context, event *models.CompensationPendingEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("product-%s", event.Code), event)
}

// EventHandler routes incoming events
type EventHandler struct {
	onCompensationPending func(context.Context, *models.CompensationPendingEvent) error
	logger                *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCompensationPending registers a handler for CompensationPending events
func (eh *EventHandler) OnCompensationPending(handler func(context.Context, *models.CompensationPendingEvent) error) {
	eh.onCompensationPending = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeCompensationPending:
		if eh.onCompensationPending != nil {
			var event models.CompensationPendingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CompensationPending event: %w", err)
			}
			return eh.onCompensationPending(ctx, &event)
		}

	default:
		// SaleCommitted, SaleFailed and StockAdjusted are audit
		// events for downstream consumers; nothing to do here.
	}

	return nil
}
