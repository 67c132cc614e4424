package service

import (
	"context"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
)

// CatalogSource reads the price snapshot of trips and events
type CatalogSource interface {
	GetTrip(ctx context.Context, tripID int64) (*models.Trip, error)
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
}

// BookingCreator submits bookings to the backend
type BookingCreator interface {
	CreateTripBooking(ctx context.Context, req *bookingapi.CreateBookingRequest, idempotencyKey string) (*models.Booking, error)
	CreateEventBooking(ctx context.Context, req *bookingapi.CreateBookingRequest, idempotencyKey string) (*models.Booking, error)
}

// PaymentGateway opens payment sessions
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, bookingReference string) (*bookingapi.InitiatePaymentResponse, error)
}

// StatusSource reads the authoritative payment state of a booking
type StatusSource interface {
	GetPaymentStatus(ctx context.Context, bookingReference string) (*models.Booking, error)
}

// EventPublisher publishes checkout events
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishPaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error
	PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error
}

// JournalStore persists the checkout journal. Calls made with the ctx InTx hands to fn
// share its transaction.
type JournalStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	CreateCheckoutAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error
	UpdateCheckoutStatus(ctx context.Context, bookingReference, status string) error
	GetCheckoutAttempt(ctx context.Context, bookingReference string) (*models.CheckoutAttempt, error)
	RecordVerification(ctx context.Context, v *models.PaymentVerification) error
	ListVerifications(ctx context.Context, bookingReference string) ([]models.PaymentVerification, error)
}
