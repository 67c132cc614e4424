package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bookingFailedMessage = "We could not complete your booking. Please try again."

// BookingRequest is everything needed to submit one booking
type BookingRequest struct {
	Kind           models.CheckoutKind
	Customer       models.Customer
	TripID         int64
	TravelDate     string
	Guests         int
	EventID        int64
	Items          []models.LineItem
	Quote          *models.PricingQuote
	Selection      models.PaymentSelection
	IdempotencyKey string
}

// BookingOrchestrator submits bookings to the backend. It never retries a create call:
// a retried create could produce a duplicate booking.
type BookingOrchestrator struct {
	api                BookingCreator
	publisher          EventPublisher
	halfPaymentPercent int64
	logger             *zap.Logger
}

// NewBookingOrchestrator creates a booking orchestrator. publisher may be nil.
func NewBookingOrchestrator(api BookingCreator, publisher EventPublisher, halfPaymentPercent int64) *BookingOrchestrator {
	return &BookingOrchestrator{
		api:                api,
		publisher:          publisher,
		halfPaymentPercent: halfPaymentPercent,
		logger:             util.GetLogger(),
	}
}

// SplitHalfPayment returns the upfront and remaining parts of a half payment
func SplitHalfPayment(finalAmount, percent int64) (upfront, remaining int64) {
	if percent <= 0 || percent >= 100 {
		return finalAmount, 0
	}
	upfront = (finalAmount*percent + 99) / 100
	return upfront, finalAmount - upfront
}

// CreateBooking validates the request and submits it exactly once
func (o *BookingOrchestrator) CreateBooking(ctx context.Context, req *BookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingOrchestrator.CreateBooking")
	defer span.End()

	if err := o.validate(req); err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	body := o.buildRequest(req)

	var booking *models.Booking
	var err error
	if req.Kind == models.CheckoutEvent {
		booking, err = o.api.CreateEventBooking(ctx, body, req.IdempotencyKey)
	} else {
		booking, err = o.api.CreateTripBooking(ctx, body, req.IdempotencyKey)
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, o.bookingError(err)
	}

	if booking.CheckoutKind == "" {
		booking.CheckoutKind = req.Kind
	}

	util.BookingsCreatedTotal.WithLabelValues(string(req.Kind), body.PaymentType).Inc()
	o.logger.Info("Booking created",
		zap.String("booking_reference", booking.BookingReference),
		zap.String("kind", string(req.Kind)),
		zap.String("payment_type", body.PaymentType),
		zap.Int64("final_amount", body.FinalAmount))

	o.publishCreated(ctx, req, booking, body)
	return booking, nil
}

func (o *BookingOrchestrator) validate(req *BookingRequest) error {
	if req == nil {
		return models.NewValidationError("", "booking request is required")
	}
	if !req.Kind.Valid() {
		return models.NewValidationError("kind", "unknown checkout kind")
	}
	if err := ValidateCustomer(&req.Customer); err != nil {
		return err
	}
	if err := req.Selection.Validate(); err != nil {
		return err
	}
	if req.Quote == nil || len(req.Items) == 0 {
		return models.NewValidationError("items", "a priced checkout is required")
	}
	if req.Quote.Method != req.Selection.EffectiveMethod() {
		return models.NewValidationError("payment", "quote does not match the selected payment method")
	}
	if (req.Quote.EmiPlan != nil) != (req.Selection.EmiPlan != nil) {
		return models.NewValidationError("payment", "quote does not match the selected EMI plan")
	}
	if req.Kind == models.CheckoutTrip && req.TripID == 0 {
		return models.NewValidationError("tripId", "is required")
	}
	if req.Kind == models.CheckoutEvent && req.EventID == 0 {
		return models.NewValidationError("eventId", "is required")
	}
	return nil
}

func (o *BookingOrchestrator) buildRequest(req *BookingRequest) *bookingapi.CreateBookingRequest {
	q := req.Quote
	body := &bookingapi.CreateBookingRequest{
		CustomerName:     req.Customer.Name,
		CustomerEmail:    req.Customer.Email,
		CustomerPhone:    req.Customer.Phone,
		Address:          req.Customer.Address,
		SpecialRequests:  req.Customer.Notes,
		TravelDate:       req.TravelDate,
		PaymentMethod:    string(req.Selection.EffectiveMethod()),
		PaymentType:      req.Selection.PaymentType(),
		BaseAmount:       q.BaseAmount,
		DiscountPercent:  q.DiscountPercent,
		DiscountAmount:   q.DiscountAmount,
		SurchargePercent: q.SurchargePercent,
		SurchargeAmount:  q.SurchargeAmount,
		FinalAmount:      q.FinalAmount,
		AmountToPay:      q.ChargeAmount,
	}

	if req.Kind == models.CheckoutEvent {
		body.EventID = req.EventID
		body.Tickets = make([]bookingapi.TicketLine, 0, len(req.Items))
		for _, item := range req.Items {
			body.Tickets = append(body.Tickets, bookingapi.TicketLine{
				TicketTypeID: item.ReferenceID,
				Label:        item.Label,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice.String(),
			})
		}
	} else {
		body.TripID = req.TripID
		body.Guests = req.Guests
	}

	switch body.PaymentType {
	case models.PaymentTypeHalf:
		body.AmountToPay, body.RemainingAmount = SplitHalfPayment(q.FinalAmount, o.halfPaymentPercent)
	case models.PaymentTypeEMI:
		plan := q.EmiPlan
		body.EmiTenure = plan.TenureMonths
		body.EmiInterestRate = plan.AnnualInterestRate
		body.EmiMonthlyAmount = plan.MonthlyAmount
		body.EmiTotalAmount = plan.TotalAmount
		body.EmiInterestAmount = plan.InterestAmount
		body.IsNoCostEmi = plan.IsNoCost
	}

	return body
}

// bookingError keeps the backend's own message when it sent one
func (o *BookingOrchestrator) bookingError(err error) error {
	var apiErr *bookingapi.APIError
	if errors.As(err, &apiErr) {
		util.BookingsFailedTotal.WithLabelValues("api_" + strconv.Itoa(apiErr.StatusCode)).Inc()
		o.logger.Warn("Booking API rejected booking",
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message))
		return &bookingapi.APIError{
			Operation:  apiErr.Operation,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.ServerMessage(bookingFailedMessage),
			Err:        apiErr,
		}
	}

	util.BookingsFailedTotal.WithLabelValues("transport").Inc()
	o.logger.Error("Booking API unreachable", zap.Error(err))
	return &bookingapi.APIError{
		Operation:  "CreateBooking",
		StatusCode: http.StatusBadGateway,
		Message:    bookingFailedMessage,
		Err:        err,
	}
}

func (o *BookingOrchestrator) publishCreated(ctx context.Context, req *BookingRequest, booking *models.Booking, body *bookingapi.CreateBookingRequest) {
	if o.publisher == nil {
		return
	}

	event := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCreated,
			Timestamp: time.Now(),
		},
		BookingReference: booking.BookingReference,
		CheckoutKind:     req.Kind,
		PaymentType:      body.PaymentType,
		PaymentMethod:    body.PaymentMethod,
		CustomerEmail:    req.Customer.Email,
		Quote:            *req.Quote,
	}

	if err := o.publisher.PublishBookingCreated(ctx, event); err != nil {
		o.logger.Error("Failed to publish BookingCreated event",
			zap.String("booking_reference", booking.BookingReference),
			zap.Error(err))
	}
}
