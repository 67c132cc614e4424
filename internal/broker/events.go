package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing checkout events. Events of one booking share a partition key.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func bookingKey(reference string) string {
	return "booking-" + reference
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingReference), event)
}

// PublishPaymentInitiated publishes PaymentInitiated event
func (ep *EventPublisher) PublishPaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingReference), event)
}

// PublishPaymentVerified publishes PaymentVerified event
func (ep *EventPublisher) PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingReference), event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onBookingCreated   func(context.Context, *models.BookingCreatedEvent) error
	onPaymentInitiated func(context.Context, *models.PaymentInitiatedEvent) error
	onPaymentVerified  func(context.Context, *models.PaymentVerifiedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnBookingCreated registers a handler for BookingCreated events
func (eh *EventHandler) OnBookingCreated(handler func(context.Context, *models.BookingCreatedEvent) error) {
	eh.onBookingCreated = handler
}

// OnPaymentInitiated registers a handler for PaymentInitiated events
func (eh *EventHandler) OnPaymentInitiated(handler func(context.Context, *models.PaymentInitiatedEvent) error) {
	eh.onPaymentInitiated = handler
}

// OnPaymentVerified registers a handler for PaymentVerified events
func (eh *EventHandler) OnPaymentVerified(handler func(context.Context, *models.PaymentVerifiedEvent) error) {
	eh.onPaymentVerified = handler
}

// ErrMalformedEvent marks a message that can never be decoded. The consumer skips it without retry.
var ErrMalformedEvent = errors.New("malformed event")

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("%w: failed to unmarshal base event: %v", ErrMalformedEvent, err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeBookingCreated:
		if eh.onBookingCreated != nil {
			var event models.BookingCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal BookingCreated event: %v", ErrMalformedEvent, err)
			}
			return eh.onBookingCreated(ctx, &event)
		}

	case models.EventTypePaymentInitiated:
		if eh.onPaymentInitiated != nil {
			var event models.PaymentInitiatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal PaymentInitiated event: %v", ErrMalformedEvent, err)
			}
			return eh.onPaymentInitiated(ctx, &event)
		}

	case models.EventTypePaymentVerified:
		if eh.onPaymentVerified != nil {
			var event models.PaymentVerifiedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal PaymentVerified event: %v", ErrMalformedEvent, err)
			}
			return eh.onPaymentVerified(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
