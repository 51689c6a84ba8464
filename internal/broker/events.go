package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"reloop-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes an OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusChanged publishes an OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnCreated publishes a ReturnCreated event
func (ep *EventPublisher) PublishReturnCreated(ctx context.Context, event *models.ReturnCreatedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnStatusChanged publishes a ReturnStatusChanged event
func (ep *EventPublisher) PublishReturnStatusChanged(ctx context.Context, event *models.ReturnStatusChangedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInventoryPooled publishes an InventoryPooled event
func (ep *EventPublisher) PublishInventoryPooled(ctx context.Context, event *models.InventoryPooledEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onOrderPlaced     func(context.Context, *models.OrderPlacedEvent) error
	onReturnCreated   func(context.Context, *models.ReturnCreatedEvent) error
	onInventoryPooled func(context.Context, *models.InventoryPooledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnReturnCreated registers a handler for ReturnCreated events
func (eh *EventHandler) OnReturnCreated(handler func(context.Context, *models.ReturnCreatedEvent) error) {
	eh.onReturnCreated = handler
}

// OnInventoryPooled registers a handler for InventoryPooled events
func (eh *EventHandler) OnInventoryPooled(handler func(context.Context, *models.InventoryPooledEvent) error) {
	eh.onInventoryPooled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeReturnCreated:
		if eh.onReturnCreated != nil {
			var event models.ReturnCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReturnCreated event: %w", err)
			}
			return eh.onReturnCreated(ctx, &event)
		}

	case models.EventTypeInventoryPooled:
		if eh.onInventoryPooled != nil {
			var event models.InventoryPooledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal InventoryPooled event: %w", err)
			}
			return eh.onInventoryPooled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
