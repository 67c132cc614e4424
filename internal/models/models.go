package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutKind distinguishes the two storefront checkout flows
type CheckoutKind string

const (
	CheckoutTrip  CheckoutKind = "trip"
	CheckoutEvent CheckoutKind = "event"
)

func (k CheckoutKind) Valid() bool {
	return k == CheckoutTrip || k == CheckoutEvent
}

// PaymentMethod is the instrument the customer pays with
type PaymentMethod string

const (
	MethodUPI        PaymentMethod = "upi"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCreditCard, MethodDebitCard:
		return true
	}
	return false
}

// Payment types
const (
	PaymentTypeFull = "FULL"
	PaymentTypeEMI  = "EMI"
	PaymentTypeHalf = "HALF_PAYMENT"
)

// Payment statuses as reported by the booking backend
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusHalfPaid = "HALF_PAID"
	PaymentStatusFailed   = "FAILED"
)

// LineItem is one priced unit contributing to a checkout total
type LineItem struct {
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Label       string          `json:"label"`
	ReferenceID int64           `json:"referenceId"`
}

// Subtotal returns unitPrice x quantity without rounding
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// PricingQuote is the committed price of a checkout in whole currency units.
// FinalAmount is what the customer sees; ChargeAmount is what payment initiation is tied to.
type PricingQuote struct {
	Site             CheckoutKind  `json:"site"`
	Method           PaymentMethod `json:"method"`
	BaseAmount       int64         `json:"baseAmount"`
	DiscountPercent  float64       `json:"discountPercent"`
	DiscountAmount   int64         `json:"discountAmount"`
	SurchargePercent float64       `json:"surchargePercent"`
	SurchargeAmount  int64         `json:"surchargeAmount"`
	InterestAmount   int64         `json:"interestAmount"`
	FinalAmount      int64         `json:"finalAmount"`
	ChargeAmount     int64         `json:"chargeAmount"`
	EmiPlan          *EmiPlan      `json:"emiPlan,omitempty"`
}

// EmiPlan is an installment schedule for a principal
type EmiPlan struct {
	TenureMonths       int     `json:"tenureMonths"`
	AnnualInterestRate float64 `json:"annualInterestRate"`
	Principal          int64   `json:"principal"`
	MonthlyAmount      int64   `json:"monthlyAmount"`
	FinalInstallment   int64   `json:"finalInstallment"`
	TotalAmount        int64   `json:"totalAmount"`
	InterestAmount     int64   `json:"interestAmount"`
	IsNoCost           bool    `json:"isNoCost"`
}

// Customer holds the contact details submitted with a booking
type Customer struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required,min=7,max=20"`
	Address string `json:"address,omitempty" binding:"max=500"`
	Notes   string `json:"notes,omitempty" binding:"max=1000"`
}

// Booking mirrors the record owned by the booking backend
type Booking struct {
	BookingReference   string       `json:"bookingReference"`
	CheckoutKind       CheckoutKind `json:"checkoutKind,omitempty"`
	PaymentType        string       `json:"paymentType"`
	PaymentMethod      string       `json:"paymentMethod"`
	FinalAmount        int64        `json:"finalAmount"`
	AmountPaid         int64        `json:"amountPaid"`
	RemainingAmount    int64        `json:"remainingAmount"`
	PaymentStatus      string       `json:"paymentStatus"`
	EmiTenure          int          `json:"emiTenure,omitempty"`
	EmiInterestRate    float64      `json:"emiInterestRate,omitempty"`
	EmiMonthlyAmount   int64        `json:"emiMonthlyAmount,omitempty"`
	EmiTotalAmount     int64        `json:"emiTotalAmount,omitempty"`
	CustomerName       string       `json:"customerName,omitempty"`
	CustomerEmail      string       `json:"customerEmail,omitempty"`
	CreatedAt          *time.Time   `json:"createdAt,omitempty"`
	HalfPaymentDueDate *time.Time   `json:"halfPaymentDueDate,omitempty"`
}

// Trip is the catalog snapshot needed to price a trip checkout
type Trip struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TicketType is one priced ticket class of an event
type TicketType struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Event is the catalog snapshot needed to price an event checkout
type Event struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	TicketTypes []TicketType `json:"ticketTypes"`
}

// TicketSelection is a requested quantity of one ticket type
type TicketSelection struct {
	TicketTypeID int64 `json:"ticketTypeId"`
	Quantity     int   `json:"quantity"`
}

// CheckoutAttempt is the journal row for one booking
type CheckoutAttempt struct {
	BookingReference string    `db:"booking_reference" json:"bookingReference"`
	CheckoutKind     string    `db:"checkout_kind" json:"checkoutKind"`
	PaymentType      string    `db:"payment_type" json:"paymentType"`
	PaymentMethod    string    `db:"payment_method" json:"paymentMethod"`
	BaseAmount       int64     `db:"base_amount" json:"baseAmount"`
	DiscountAmount   int64     `db:"discount_amount" json:"discountAmount"`
	SurchargeAmount  int64     `db:"surcharge_amount" json:"surchargeAmount"`
	FinalAmount      int64     `db:"final_amount" json:"finalAmount"`
	EmiTenure        int       `db:"emi_tenure" json:"emiTenure"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// PaymentVerification is the journal row for one reconciliation run
type PaymentVerification struct {
	ID                  int64     `db:"id" json:"id"`
	BookingReference    string    `db:"booking_reference" json:"bookingReference"`
	Outcome             string    `db:"outcome" json:"outcome"`
	RetryCount          int       `db:"retry_count" json:"retryCount"`
	ConfirmedByRedirect bool      `db:"confirmed_by_redirect" json:"confirmedByRedirect"`
	Message             string    `db:"message" json:"message"`
	VerifiedAt          time.Time `db:"verified_at" json:"verifiedAt"`
}

// Journal statuses
const (
	CheckoutStatusCreated   = "CREATED"
	CheckoutStatusInitiated = "INITIATED"
)

// EMI option sources
const (
	EmiSourceRemote     = "remote"
	EmiSourceCache      = "cache"
	EmiSourceFallback   = "fallback"
	EmiSourceIneligible = "ineligible"
)

// EmiOptions is the set of plans offered for an amount
type EmiOptions struct {
	Amount   int64     `json:"amount"`
	Eligible bool      `json:"eligible"`
	Options  []EmiPlan `json:"options"`
	Source   string    `json:"source,omitempty"`
}
