package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournal(t *testing.T) (*service.CheckoutJournal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return service.NewCheckoutJournal(store.NewWithDB(sqlx.NewDb(db, "sqlmock"))), mock
}

func encode(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestJournalHandler_BookingCreated(t *testing.T) {
	journal, mock := newJournal(t)
	handler := NewJournalHandler(journal)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO processed_events`).WithArgs("evt-1", models.EventTypeBookingCreated).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO checkout_attempts`).
		WithArgs("BK-1", "trip", "FULL", "upi", int64(20000), int64(1000), int64(0), int64(19000), 0, "CREATED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := handler.HandleMessage(context.Background(), encode(t, models.BookingCreatedEvent{
		BaseEvent:        models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeBookingCreated, Timestamp: time.Now()},
		BookingReference: "BK-1",
		CheckoutKind:     models.CheckoutTrip,
		PaymentType:      models.PaymentTypeFull,
		PaymentMethod:    string(models.MethodUPI),
		Quote:            models.PricingQuote{BaseAmount: 20000, DiscountAmount: 1000, FinalAmount: 19000},
	}))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalHandler_DuplicateSkipped(t *testing.T) {
	journal, mock := newJournal(t)
	handler := NewJournalHandler(journal)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO processed_events`).WithArgs("evt-2", models.EventTypePaymentInitiated).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := handler.HandleMessage(context.Background(), encode(t, models.PaymentInitiatedEvent{
		BaseEvent:        models.BaseEvent{EventID: "evt-2", EventType: models.EventTypePaymentInitiated},
		BookingReference: "BK-1",
		PaymentURL:       "https://pay.example.com/s/1",
	}))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
