package models

import "time"

// Outcome of a payment verification run
type Outcome string

const (
	OutcomeVerifying Outcome = "verifying"
	OutcomePaid      Outcome = "paid"
	OutcomePending   Outcome = "pending"
	OutcomeFailed    Outcome = "failed"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeInvalid   Outcome = "invalid"
)

func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomePaid, OutcomeFailed, OutcomeNotFound, OutcomeInvalid:
		return true
	}
	return false
}

// Redirect status values appended by the gateway
const (
	RedirectStatusSuccess = "success"
	RedirectStatusFailure = "failure"
)

// ReturnParams are the query parameters the gateway appends to the return URL
type ReturnParams struct {
	TxnID  string       `form:"txnid" json:"txnid"`
	Status string       `form:"status" json:"status"`
	Type   CheckoutKind `form:"type" json:"type"`
}

// PaymentAttemptState tracks one verification run. It is created per run and never shared.
type PaymentAttemptState struct {
	BookingReference    string       `json:"bookingReference"`
	CheckoutKind        CheckoutKind `json:"checkoutKind,omitempty"`
	LastPolledAt        time.Time    `json:"lastPolledAt,omitempty"`
	RetryCount          int          `json:"retryCount"`
	Attempts            int          `json:"attempts"`
	Outcome             Outcome      `json:"outcome"`
	Message             string       `json:"message,omitempty"`
	ConfirmedByRedirect bool         `json:"confirmedByRedirect"`
	Booking             *Booking     `json:"booking,omitempty"`
}

// Transition moves the state to the given outcome. Terminal states are final.
func (s *PaymentAttemptState) Transition(to Outcome, message string) bool {
	if s.Outcome.IsTerminal() {
		return false
	}
	s.Outcome = to
	s.Message = message
	return true
}
