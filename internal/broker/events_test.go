package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestHandleMessage_RoutesByType(t *testing.T) {
	handler := NewEventHandler()

	var created *models.BookingCreatedEvent
	var verified *models.PaymentVerifiedEvent
	handler.OnBookingCreated(func(ctx context.Context, e *models.BookingCreatedEvent) error {
		created = e
		return nil
	})
	handler.OnPaymentVerified(func(ctx context.Context, e *models.PaymentVerifiedEvent) error {
		verified = e
		return nil
	})

	err := handler.HandleMessage(context.Background(), message(t, models.BookingCreatedEvent{
		BaseEvent:        models.BaseEvent{EventID: "e1", EventType: models.EventTypeBookingCreated, Timestamp: time.Now()},
		BookingReference: "BK-1",
		Quote:            models.PricingQuote{FinalAmount: 19000},
	}))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(19000), created.Quote.FinalAmount)

	err = handler.HandleMessage(context.Background(), message(t, models.PaymentVerifiedEvent{
		BaseEvent:        models.BaseEvent{EventID: "e2", EventType: models.EventTypePaymentVerified},
		BookingReference: "BK-1",
		Outcome:          models.OutcomePaid,
		RetryCount:       1,
	}))
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, models.OutcomePaid, verified.Outcome)
}

func TestHandleMessage_UnregisteredAndUnknown(t *testing.T) {
	handler := NewEventHandler()

	err := handler.HandleMessage(context.Background(), message(t, models.PaymentInitiatedEvent{
		BaseEvent: models.BaseEvent{EventID: "e3", EventType: models.EventTypePaymentInitiated},
	}))
	assert.NoError(t, err)

	err = handler.HandleMessage(context.Background(), message(t, models.BaseEvent{EventID: "e4", EventType: "SOMETHING_ELSE"}))
	assert.NoError(t, err)
}

func TestHandleMessage_Errors(t *testing.T) {
	handler := NewEventHandler()
	handler.OnPaymentInitiated(func(ctx context.Context, e *models.PaymentInitiatedEvent) error {
		return errors.New("store down")
	})

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.ErrorIs(t, err, ErrMalformedEvent)

	err = handler.HandleMessage(context.Background(), message(t, models.PaymentInitiatedEvent{
		BaseEvent: models.BaseEvent{EventID: "e5", EventType: models.EventTypePaymentInitiated},
	}))
	assert.EqualError(t, err, "store down")
	assert.NotErrorIs(t, err, ErrMalformedEvent)
}
