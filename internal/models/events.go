package models

import "time"

// Event types
const (
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypePaymentInitiated = "PAYMENT_INITIATED"
	EventTypePaymentVerified  = "PAYMENT_VERIFIED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published once the backend has accepted a booking
type BookingCreatedEvent struct {
	BaseEvent
	BookingReference string       `json:"booking_reference"`
	CheckoutKind     CheckoutKind `json:"checkout_kind"`
	PaymentType      string       `json:"payment_type"`
	PaymentMethod    string       `json:"payment_method"`
	CustomerEmail    string       `json:"customer_email"`
	Quote            PricingQuote `json:"quote"`
}

// PaymentInitiatedEvent published when the gateway issued a payment URL
type PaymentInitiatedEvent struct {
	BaseEvent
	BookingReference string `json:"booking_reference"`
	PaymentURL       string `json:"payment_url"`
}

// PaymentVerifiedEvent published when a verification run reached an outcome
type PaymentVerifiedEvent struct {
	BaseEvent
	BookingReference    string       `json:"booking_reference"`
	CheckoutKind        CheckoutKind `json:"checkout_kind,omitempty"`
	Outcome             Outcome      `json:"outcome"`
	RetryCount          int          `json:"retry_count"`
	ConfirmedByRedirect bool         `json:"confirmed_by_redirect"`
	Message             string       `json:"message,omitempty"`
}
