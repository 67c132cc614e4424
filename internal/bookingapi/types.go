package bookingapi

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the booking backend
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: booking api returned %d %s", e.Operation, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: booking api returned %d: %s", e.Operation, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// ServerMessage returns the backend's own message, or fallback when it sent none
func (e *APIError) ServerMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// TicketLine is one ticket type in an event booking
type TicketLine struct {
	TicketTypeID int64  `json:"ticketTypeId"`
	Label        string `json:"label"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
}

// CreateBookingRequest is the body of POST /bookings and POST /event-bookings
type CreateBookingRequest struct {
	TripID  int64 `json:"tripId,omitempty"`
	EventID int64 `json:"eventId,omitempty"`

	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	Address         string `json:"address,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`

	TravelDate string       `json:"travelDate,omitempty"`
	Guests     int          `json:"guests,omitempty"`
	Tickets    []TicketLine `json:"tickets,omitempty"`

	PaymentMethod    string  `json:"paymentMethod"`
	PaymentType      string  `json:"paymentType"`
	BaseAmount       int64   `json:"baseAmount"`
	DiscountPercent  float64 `json:"discountPercent"`
	DiscountAmount   int64   `json:"discountAmount"`
	SurchargePercent float64 `json:"surchargePercent"`
	SurchargeAmount  int64   `json:"surchargeAmount"`
	FinalAmount      int64   `json:"finalAmount"`
	AmountToPay      int64   `json:"amountToPay"`
	RemainingAmount  int64   `json:"remainingAmount"`

	EmiTenure         int     `json:"emiTenure,omitempty"`
	EmiInterestRate   float64 `json:"emiInterestRate,omitempty"`
	EmiMonthlyAmount  int64   `json:"emiMonthlyAmount,omitempty"`
	EmiTotalAmount    int64   `json:"emiTotalAmount,omitempty"`
	EmiInterestAmount int64   `json:"emiInterestAmount,omitempty"`
	IsNoCostEmi       bool    `json:"isNoCostEmi,omitempty"`
}

// InitiatePaymentResponse is the body of POST /payment/initiate/{ref}
type InitiatePaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
}
