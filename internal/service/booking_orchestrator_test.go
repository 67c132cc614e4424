package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
	"checkout-service/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tripBookingRequest(t *testing.T, selection models.PaymentSelection) *BookingRequest {
	t.Helper()
	items := []models.LineItem{{UnitPrice: decimal.NewFromInt(15000), Quantity: 2, Label: "Spiti", ReferenceID: 7}}
	quote, err := pricing.NewEngine(models.CheckoutTrip, 10000).Quote(items, selection.EffectiveMethod(), selection.EmiPlan)
	require.NoError(t, err)

	return &BookingRequest{
		Kind:       models.CheckoutTrip,
		Customer:   validCustomer(),
		TripID:     7,
		TravelDate: "2026-12-01",
		Guests:     2,
		Items:      items,
		Quote:      quote,
		Selection:  selection,
	}
}

func TestCreateBooking_Full(t *testing.T) {
	api := &fakeBookingAPI{reference: "TRP-20261201-0001"}
	publisher := &fakePublisher{}
	o := NewBookingOrchestrator(api, publisher, 50)

	req := tripBookingRequest(t, models.PaymentSelection{Method: models.MethodUPI})
	req.IdempotencyKey = "idem-1"

	booking, err := o.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "TRP-20261201-0001", booking.BookingReference)
	assert.Equal(t, models.CheckoutTrip, booking.CheckoutKind)

	require.Len(t, api.calls, 1)
	call := api.calls[0]
	assert.Equal(t, "/bookings", call.path)
	assert.Equal(t, "idem-1", call.key)
	assert.Equal(t, models.PaymentTypeFull, call.req.PaymentType)
	assert.Equal(t, int64(28500), call.req.FinalAmount)
	assert.Equal(t, int64(28500), call.req.AmountToPay)
	assert.Equal(t, 2, call.req.Guests)

	require.Len(t, publisher.created, 1)
	assert.Equal(t, "TRP-20261201-0001", publisher.created[0].BookingReference)
}

func TestCreateBooking_HalfPaymentFoldsCardType(t *testing.T) {
	api := &fakeBookingAPI{reference: "BK-2"}
	o := NewBookingOrchestrator(api, nil, 50)

	var selection models.PaymentSelection
	selection.SelectHalfPayment(models.CardDebit)
	req := tripBookingRequest(t, selection)

	_, err := o.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	body := api.calls[0].req
	assert.Equal(t, models.PaymentTypeHalf, body.PaymentType)
	assert.Equal(t, "debit_card", body.PaymentMethod)
	assert.Equal(t, int64(29100), body.FinalAmount)
	assert.Equal(t, int64(14550), body.AmountToPay)
	assert.Equal(t, int64(14550), body.RemainingAmount)
}

func TestCreateBooking_Emi(t *testing.T) {
	api := &fakeBookingAPI{reference: "BK-3"}
	o := NewBookingOrchestrator(api, nil, 50)

	var selection models.PaymentSelection
	selection.SelectEmi(models.EmiPlan{TenureMonths: 6, AnnualInterestRate: 16})
	req := tripBookingRequest(t, selection)

	_, err := o.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	body := api.calls[0].req
	assert.Equal(t, models.PaymentTypeEMI, body.PaymentType)
	assert.Equal(t, "credit_card", body.PaymentMethod)
	assert.Equal(t, int64(31416), body.FinalAmount)
	assert.Equal(t, int64(30000), body.AmountToPay)
	assert.Equal(t, 6, body.EmiTenure)
	assert.Equal(t, int64(5236), body.EmiMonthlyAmount)
	assert.Equal(t, int64(1416), body.EmiInterestAmount)
}

func TestCreateBooking_EventTickets(t *testing.T) {
	api := &fakeBookingAPI{reference: "EVT-1"}
	o := NewBookingOrchestrator(api, nil, 50)

	items, err := NewResolver(10).ResolveEvent(testEvent(), []models.TicketSelection{{TicketTypeID: 1, Quantity: 2}})
	require.NoError(t, err)
	quote, err := pricing.NewEngine(models.CheckoutEvent, 10000).Quote(items, models.MethodCreditCard, nil)
	require.NoError(t, err)

	_, err = o.CreateBooking(context.Background(), &BookingRequest{
		Kind:      models.CheckoutEvent,
		Customer:  validCustomer(),
		EventID:   3,
		Items:     items,
		Quote:     quote,
		Selection: models.PaymentSelection{Method: models.MethodCreditCard},
	})
	require.NoError(t, err)

	body := api.calls[0].req
	assert.Equal(t, "/event-bookings", api.calls[0].path)
	require.Len(t, body.Tickets, 1)
	assert.Equal(t, "1500", body.Tickets[0].UnitPrice)
	assert.Equal(t, int64(90), body.SurchargeAmount)
	assert.Equal(t, int64(3090), body.FinalAmount)
}

func TestCreateBooking_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *BookingRequest)
	}{
		{name: "missing name", mutate: func(r *BookingRequest) { r.Customer.Name = "" }},
		{name: "bad email", mutate: func(r *BookingRequest) { r.Customer.Email = "nope" }},
		{name: "missing phone", mutate: func(r *BookingRequest) { r.Customer.Phone = "" }},
		{name: "method mismatch", mutate: func(r *BookingRequest) { r.Selection.Method = models.MethodDebitCard }},
		{name: "missing trip", mutate: func(r *BookingRequest) { r.TripID = 0 }},
		{name: "unknown kind", mutate: func(r *BookingRequest) { r.Kind = "cruise" }},
		{name: "no quote", mutate: func(r *BookingRequest) { r.Quote = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeBookingAPI{reference: "BK"}
			o := NewBookingOrchestrator(api, nil, 50)

			req := tripBookingRequest(t, models.PaymentSelection{Method: models.MethodUPI})
			tt.mutate(req)

			_, err := o.CreateBooking(context.Background(), req)
			assert.True(t, models.IsValidation(err), "got %v", err)
			assert.Empty(t, api.calls)
		})
	}
}

func TestCreateBooking_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "server message", err: &bookingapi.APIError{StatusCode: 409, Message: "Trip is fully booked"}, status: 409, message: "Trip is fully booked"},
		{name: "no message", err: &bookingapi.APIError{StatusCode: 500}, status: 500, message: bookingFailedMessage},
		{name: "transport", err: errors.New("connection reset"), status: http.StatusBadGateway, message: bookingFailedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeBookingAPI{err: tt.err}
			publisher := &fakePublisher{}
			o := NewBookingOrchestrator(api, publisher, 50)

			_, err := o.CreateBooking(context.Background(), tripBookingRequest(t, models.PaymentSelection{Method: models.MethodUPI}))

			var apiErr *bookingapi.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Len(t, api.calls, 1, "create must not be retried")
			assert.Empty(t, publisher.created)
		})
	}
}

func TestCreateBooking_PublishFailureDoesNotFail(t *testing.T) {
	api := &fakeBookingAPI{reference: "BK-5"}
	publisher := &fakePublisher{err: errors.New("kafka down")}
	o := NewBookingOrchestrator(api, publisher, 50)

	booking, err := o.CreateBooking(context.Background(), tripBookingRequest(t, models.PaymentSelection{Method: models.MethodUPI}))
	require.NoError(t, err)
	assert.Equal(t, "BK-5", booking.BookingReference)
}

func TestSplitHalfPayment(t *testing.T) {
	upfront, remaining := SplitHalfPayment(19001, 50)
	assert.Equal(t, int64(9501), upfront)
	assert.Equal(t, int64(9500), remaining)

	upfront, remaining = SplitHalfPayment(1000, 0)
	assert.Equal(t, int64(1000), upfront)
	assert.Zero(t, remaining)
}
