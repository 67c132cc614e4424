package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestGetTrip_UnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trips/7", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"id":7,"name":"Spiti Valley","price":"12500.50"}}`))
	})

	trip, err := client.GetTrip(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), trip.ID)
	assert.Equal(t, "12500.5", trip.Price.String())
}

func TestGetEvent_PlainBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":3,"name":"Sunburn","ticketTypes":[{"id":1,"name":"GA","price":1500}]}`))
	})

	event, err := client.GetEvent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, event.TicketTypes, 1)
	assert.Equal(t, "1500", event.TicketTypes[0].Price.String())
}

func TestCreateTripBooking_SendsIdempotencyKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("Idempotency-Key"))

		var body CreateBookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(19000), body.FinalAmount)
		assert.Equal(t, "upi", body.PaymentMethod)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"bookingReference":"BK-1","paymentType":"FULL","finalAmount":19000,"paymentStatus":"PENDING"}}`))
	})

	booking, err := client.CreateTripBooking(context.Background(), &CreateBookingRequest{
		TripID:        1,
		PaymentMethod: "upi",
		PaymentType:   models.PaymentTypeFull,
		FinalAmount:   19000,
	}, "key-123")
	require.NoError(t, err)
	assert.Equal(t, "BK-1", booking.BookingReference)
}

func TestCreateEventBooking_ServerError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "error field", status: http.StatusBadRequest, body: `{"error":"Tickets sold out"}`, message: "Tickets sold out"},
		{name: "message field", status: http.StatusConflict, body: `{"message":"Duplicate booking"}`, message: "Duplicate booking"},
		{name: "nested error", status: http.StatusUnprocessableEntity, body: `{"error":{"message":"Bad phone"}}`, message: "Bad phone"},
		{name: "no body", status: http.StatusInternalServerError, body: ``, message: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.CreateEventBooking(context.Background(), &CreateBookingRequest{EventID: 1}, "")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.NotEmpty(t, apiErr.ServerMessage("Booking failed"))
		})
	}
}

func TestCreateBooking_MissingReference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	_, err := client.CreateTripBooking(context.Background(), &CreateBookingRequest{TripID: 1}, "")
	assert.Error(t, err)
}

func TestInitiatePayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/initiate/BK-9", r.URL.Path)
		w.Write([]byte(`{"success":true,"paymentUrl":"https://pay.example.com/s/abc"}`))
	})

	resp, err := client.InitiatePayment(context.Background(), "BK-9")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "https://pay.example.com/s/abc", resp.PaymentURL)
}

func TestGetPaymentStatus_DefeatsCaches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/status/BK-2", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("_t"))
		assert.Contains(t, r.Header.Get("Cache-Control"), "no-cache")
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		w.Write([]byte(`{"data":{"bookingReference":"BK-2","paymentType":"FULL","paymentStatus":"PAID"}}`))
	})

	booking, err := client.GetPaymentStatus(context.Background(), "BK-2")
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.PaymentStatusPaid, booking.PaymentStatus)
}

func TestGetPaymentStatus_NoPayload(t *testing.T) {
	for _, body := range []string{``, `null`, `{"data":null}`, `{}`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		booking, err := client.GetPaymentStatus(context.Background(), "BK-3")
		require.NoError(t, err, body)
		assert.Nil(t, booking, body)
	}
}

func TestGetPaymentStatus_MethodNotAllowed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	_, err := client.GetPaymentStatus(context.Background(), "BK-4")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusMethodNotAllowed, apiErr.StatusCode)
}

func TestGetPaymentStatus_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetPaymentStatus(ctx, "BK-5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGetEmiOptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30000", r.URL.Query().Get("amount"))
		w.Write([]byte(`{"data":{"eligible":true,"options":[{"tenureMonths":3,"annualInterestRate":0}]}}`))
	})

	opts, err := client.GetEmiOptions(context.Background(), 30000)
	require.NoError(t, err)
	assert.True(t, opts.Eligible)
	assert.Equal(t, int64(30000), opts.Amount)
	assert.Len(t, opts.Options, 1)
}
