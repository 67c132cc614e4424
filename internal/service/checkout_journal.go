package service

import (
	"context"
	"fmt"
	"strings"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// CheckoutRecord is the journal view of one booking
type CheckoutRecord struct {
	Attempt       *models.CheckoutAttempt      `json:"attempt"`
	Verifications []models.PaymentVerification `json:"verifications"`
}

// CheckoutJournal projects checkout events into the journal tables. Each event is applied
// at most once, keyed by its event id.
type CheckoutJournal struct {
	store  JournalStore
	logger *zap.Logger
}

// NewCheckoutJournal creates a checkout journal
func NewCheckoutJournal(store JournalStore) *CheckoutJournal {
	return &CheckoutJournal{
		store:  store,
		logger: util.GetLogger(),
	}
}

// HandleBookingCreated records a new checkout attempt
func (j *CheckoutJournal) HandleBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "CheckoutJournal.HandleBookingCreated")
	defer span.End()

	return j.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		tenure := 0
		if event.Quote.EmiPlan != nil {
			tenure = event.Quote.EmiPlan.TenureMonths
		}

		attempt := &models.CheckoutAttempt{
			BookingReference: event.BookingReference,
			CheckoutKind:     string(event.CheckoutKind),
			PaymentType:      event.PaymentType,
			PaymentMethod:    event.PaymentMethod,
			BaseAmount:       event.Quote.BaseAmount,
			DiscountAmount:   event.Quote.DiscountAmount,
			SurchargeAmount:  event.Quote.SurchargeAmount,
			FinalAmount:      event.Quote.FinalAmount,
			EmiTenure:        tenure,
			Status:           models.CheckoutStatusCreated,
		}
		if err := j.store.CreateCheckoutAttempt(ctx, attempt); err != nil {
			return fmt.Errorf("failed to record checkout attempt: %w", err)
		}

		j.logger.Info("Checkout attempt recorded", zap.String("booking_reference", event.BookingReference))
		return nil
	})
}

// HandlePaymentInitiated marks the checkout as handed to the gateway
func (j *CheckoutJournal) HandlePaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error {
	ctx, span := util.StartSpan(ctx, "CheckoutJournal.HandlePaymentInitiated")
	defer span.End()

	return j.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		return j.updateStatus(ctx, event.BookingReference, models.CheckoutStatusInitiated)
	})
}

// HandlePaymentVerified appends the verification and moves the checkout to its outcome
func (j *CheckoutJournal) HandlePaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	ctx, span := util.StartSpan(ctx, "CheckoutJournal.HandlePaymentVerified")
	defer span.End()

	return j.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		verification := &models.PaymentVerification{
			BookingReference:    event.BookingReference,
			Outcome:             string(event.Outcome),
			RetryCount:          event.RetryCount,
			ConfirmedByRedirect: event.ConfirmedByRedirect,
			Message:             event.Message,
		}
		if err := j.store.RecordVerification(ctx, verification); err != nil {
			return fmt.Errorf("failed to record verification: %w", err)
		}

		// not_found means the backend has no booking to move
		if event.Outcome == models.OutcomeNotFound {
			return nil
		}
		return j.updateStatus(ctx, event.BookingReference, strings.ToUpper(string(event.Outcome)))
	})
}

// GetCheckout returns the journal row of a booking and its verification history
func (j *CheckoutJournal) GetCheckout(ctx context.Context, bookingReference string) (*CheckoutRecord, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutJournal.GetCheckout")
	defer span.End()

	attempt, err := j.store.GetCheckoutAttempt(ctx, bookingReference)
	if err != nil {
		return nil, err
	}

	verifications, err := j.store.ListVerifications(ctx, bookingReference)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}

	return &CheckoutRecord{Attempt: attempt, Verifications: verifications}, nil
}

// apply runs fn once per event id. The claim on the event id and the projection commit
// together, so a failed projection leaves the event to be redelivered.
func (j *CheckoutJournal) apply(ctx context.Context, event models.BaseEvent, fn func(ctx context.Context) error) error {
	duplicate := false
	err := j.store.InTx(ctx, func(ctx context.Context) error {
		claimed, err := j.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
		if err != nil {
			return err
		}
		if !claimed {
			duplicate = true
			return nil
		}
		return fn(ctx)
	})
	if err != nil {
		util.JournalEventsTotal.WithLabelValues(event.EventType, "error").Inc()
		return err
	}

	if duplicate {
		util.JournalEventsTotal.WithLabelValues(event.EventType, "duplicate").Inc()
		j.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	util.JournalEventsTotal.WithLabelValues(event.EventType, "applied").Inc()
	return nil
}

// updateStatus tolerates a missing row: the booking may predate the journal
func (j *CheckoutJournal) updateStatus(ctx context.Context, reference, status string) error {
	err := j.store.UpdateCheckoutStatus(ctx, reference, status)
	if models.IsNotFound(err) {
		j.logger.Warn("No checkout attempt to update",
			zap.String("booking_reference", reference),
			zap.String("status", status))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update checkout status: %w", err)
	}
	return nil
}
