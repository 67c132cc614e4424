package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
	"checkout-service/internal/pricing"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// CheckoutService ties resolution, pricing and the payment flow together for the HTTP layer
type CheckoutService struct {
	catalog      CatalogSource
	resolver     *Resolver
	engines      map[models.CheckoutKind]*pricing.Engine
	advisor      *pricing.Advisor
	orchestrator *BookingOrchestrator
	initiator    *PaymentInitiator
	reconciler   *Reconciler
	journal      *CheckoutJournal
	halfPercent  int64
	logger       *zap.Logger
}

// CheckoutDeps are the collaborators of a CheckoutService
type CheckoutDeps struct {
	Catalog            CatalogSource
	Resolver           *Resolver
	TripEngine         *pricing.Engine
	EventEngine        *pricing.Engine
	Advisor            *pricing.Advisor
	Orchestrator       *BookingOrchestrator
	Initiator          *PaymentInitiator
	Reconciler         *Reconciler
	Journal            *CheckoutJournal
	HalfPaymentPercent int64
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(deps CheckoutDeps) *CheckoutService {
	return &CheckoutService{
		catalog:  deps.Catalog,
		resolver: deps.Resolver,
		engines: map[models.CheckoutKind]*pricing.Engine{
			models.CheckoutTrip:  deps.TripEngine,
			models.CheckoutEvent: deps.EventEngine,
		},
		advisor:      deps.Advisor,
		orchestrator: deps.Orchestrator,
		initiator:    deps.Initiator,
		reconciler:   deps.Reconciler,
		journal:      deps.Journal,
		halfPercent:  deps.HalfPaymentPercent,
		logger:       util.GetLogger(),
	}
}

// QuoteRequest asks for the price of a checkout before booking
type QuoteRequest struct {
	Kind    models.CheckoutKind      `json:"kind" binding:"required"`
	TripID  int64                    `json:"tripId,omitempty"`
	Guests  int                      `json:"guests,omitempty"`
	EventID int64                    `json:"eventId,omitempty"`
	Tickets []models.TicketSelection `json:"tickets,omitempty"`
	Payment models.PaymentSelection  `json:"payment"`
}

// QuoteResponse is a priced checkout
type QuoteResponse struct {
	Items           []models.LineItem    `json:"items"`
	Quote           *models.PricingQuote `json:"quote"`
	AmountToPay     int64                `json:"amountToPay"`
	RemainingAmount int64                `json:"remainingAmount"`
}

// CheckoutRequest submits a booking
type CheckoutRequest struct {
	Kind           models.CheckoutKind      `json:"-"`
	Customer       models.Customer          `json:"customer"`
	TripID         int64                    `json:"tripId,omitempty"`
	TravelDate     string                   `json:"travelDate,omitempty"`
	Guests         int                      `json:"guests,omitempty"`
	EventID        int64                    `json:"eventId,omitempty"`
	Tickets        []models.TicketSelection `json:"tickets,omitempty"`
	Payment        models.PaymentSelection  `json:"payment"`
	IdempotencyKey string                   `json:"-"`
}

// CheckoutResponse is a created booking with the price it was created at
type CheckoutResponse struct {
	Booking         *models.Booking      `json:"booking"`
	Quote           *models.PricingQuote `json:"quote"`
	AmountToPay     int64                `json:"amountToPay"`
	RemainingAmount int64                `json:"remainingAmount"`
}

// Quote prices a checkout for the selected payment path
func (s *CheckoutService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Quote")
	defer span.End()

	if err := req.Payment.Validate(); err != nil {
		return nil, err
	}

	items, quote, err := s.price(ctx, req.Kind, req.TripID, req.Guests, req.EventID, req.Tickets, req.Payment)
	if err != nil {
		return nil, err
	}

	upfront, remaining := s.split(quote, req.Payment)
	return &QuoteResponse{Items: items, Quote: quote, AmountToPay: upfront, RemainingAmount: remaining}, nil
}

// EmiOptions returns the EMI plans offered for an amount
func (s *CheckoutService) EmiOptions(ctx context.Context, amount int64) (*models.EmiOptions, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("amount", "must be positive")
	}
	return s.advisor.Options(ctx, amount), nil
}

// Checkout validates, prices and books a checkout. Customer details and the payment
// selection are checked before any network call.
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	if err := ValidateCustomer(&req.Customer); err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}
	if err := req.Payment.Validate(); err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	items, quote, err := s.price(ctx, req.Kind, req.TripID, req.Guests, req.EventID, req.Tickets, req.Payment)
	if err != nil {
		return nil, err
	}

	booking, err := s.orchestrator.CreateBooking(ctx, &BookingRequest{
		Kind:           req.Kind,
		Customer:       req.Customer,
		TripID:         req.TripID,
		TravelDate:     req.TravelDate,
		Guests:         req.Guests,
		EventID:        req.EventID,
		Items:          items,
		Quote:          quote,
		Selection:      req.Payment,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	upfront, remaining := s.split(quote, req.Payment)
	return &CheckoutResponse{Booking: booking, Quote: quote, AmountToPay: upfront, RemainingAmount: remaining}, nil
}

// Initiate opens a gateway session for a booking
func (s *CheckoutService) Initiate(ctx context.Context, bookingReference string) (*InitiateResult, error) {
	return s.initiator.Initiate(ctx, bookingReference)
}

// Verify reconciles a gateway return redirect
func (s *CheckoutService) Verify(ctx context.Context, params models.ReturnParams) (*models.PaymentAttemptState, error) {
	return s.reconciler.Verify(ctx, params)
}

// GetCheckout reads the journal of a booking
func (s *CheckoutService) GetCheckout(ctx context.Context, bookingReference string) (*CheckoutRecord, error) {
	return s.journal.GetCheckout(ctx, bookingReference)
}

// price loads the catalog snapshot, resolves the line items and quotes them
func (s *CheckoutService) price(
	ctx context.Context,
	kind models.CheckoutKind,
	tripID int64,
	guests int,
	eventID int64,
	tickets []models.TicketSelection,
	selection models.PaymentSelection,
) ([]models.LineItem, *models.PricingQuote, error) {
	engine, ok := s.engines[kind]
	if !ok || engine == nil {
		return nil, nil, models.NewValidationError("kind", fmt.Sprintf("unknown checkout kind %q", kind))
	}

	items, err := s.resolve(ctx, kind, tripID, guests, eventID, tickets)
	if err != nil {
		return nil, nil, err
	}

	quote, err := engine.Quote(items, selection.EffectiveMethod(), selection.EmiPlan)
	if err != nil {
		return nil, nil, err
	}

	if quote.EmiPlan != nil {
		if err := s.checkEmiOffered(ctx, quote); err != nil {
			return nil, nil, err
		}
	}

	util.QuotesTotal.WithLabelValues(string(kind), string(quote.Method), selection.PaymentType()).Inc()
	return items, quote, nil
}

func (s *CheckoutService) resolve(
	ctx context.Context,
	kind models.CheckoutKind,
	tripID int64,
	guests int,
	eventID int64,
	tickets []models.TicketSelection,
) ([]models.LineItem, error) {
	if kind == models.CheckoutEvent {
		if eventID <= 0 {
			return nil, models.NewValidationError("eventId", "is required")
		}
		event, err := s.catalog.GetEvent(ctx, eventID)
		if err != nil && !isCatalogMiss(err) {
			return nil, fmt.Errorf("failed to load event %d: %w", eventID, err)
		}
		return s.resolver.ResolveEvent(event, tickets)
	}

	if tripID <= 0 {
		return nil, models.NewValidationError("tripId", "is required")
	}
	trip, err := s.catalog.GetTrip(ctx, tripID)
	if err != nil && !isCatalogMiss(err) {
		return nil, fmt.Errorf("failed to load trip %d: %w", tripID, err)
	}
	return s.resolver.ResolveTrip(trip, guests)
}

// checkEmiOffered rejects plans that are not among the options offered for the base amount
func (s *CheckoutService) checkEmiOffered(ctx context.Context, quote *models.PricingQuote) error {
	if s.advisor == nil {
		return nil
	}

	opts := s.advisor.Options(ctx, quote.BaseAmount)
	for _, offered := range opts.Options {
		if offered.TenureMonths == quote.EmiPlan.TenureMonths && offered.AnnualInterestRate == quote.EmiPlan.AnnualInterestRate {
			return nil
		}
	}

	s.logger.Warn("EMI plan not offered for amount",
		zap.Int64("amount", quote.BaseAmount),
		zap.Int("tenure", quote.EmiPlan.TenureMonths),
		zap.Float64("rate", quote.EmiPlan.AnnualInterestRate))
	return models.NewValidationError("payment.emiPlan", "the selected EMI plan is not available for this amount")
}

func (s *CheckoutService) split(quote *models.PricingQuote, selection models.PaymentSelection) (int64, int64) {
	if selection.PaymentType() == models.PaymentTypeHalf {
		return SplitHalfPayment(quote.FinalAmount, s.halfPercent)
	}
	return quote.ChargeAmount, 0
}

func isCatalogMiss(err error) bool {
	var apiErr *bookingapi.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
