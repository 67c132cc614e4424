package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lookup error classes
const (
	ClassMethodNotAllowed = "method_not_allowed"
	ClassNotFound         = "not_found"
	ClassServer           = "server"
	ClassTimeout          = "timeout"
	ClassClient           = "client"
	ClassTransport        = "transport"
)

// ClassifyLookupError maps a status lookup failure to a VerificationError with its class.
// Retryable is left for the RetryPolicy to decide.
func ClassifyLookupError(reference string, err error) *models.VerificationError {
	verr := &models.VerificationError{BookingReference: reference, Err: err}

	var apiErr *bookingapi.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusMethodNotAllowed:
			verr.Class = ClassMethodNotAllowed
			verr.Message = "Payment verification is temporarily unavailable"
		case apiErr.StatusCode == http.StatusNotFound:
			verr.Class = ClassNotFound
			verr.Message = "Booking not found"
		case apiErr.StatusCode >= 500:
			verr.Class = ClassServer
			verr.Message = apiErr.ServerMessage("Payment verification failed due to a server error")
		case apiErr.StatusCode == http.StatusRequestTimeout:
			verr.Class = ClassTimeout
			verr.Message = "Payment verification timed out"
		default:
			verr.Class = ClassClient
			verr.Message = apiErr.ServerMessage("Payment verification request was rejected")
		}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		verr.Class = ClassTimeout
		verr.Message = "Payment verification timed out"
	default:
		verr.Class = ClassTransport
		verr.Message = "Could not reach the payment service"
	}
	return verr
}

// RetryPolicy bounds status polling. Retryable decides which error classes are worth another poll.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(class string) bool
}

// DefaultRetryPolicy retries only method-not-allowed answers, three attempts in total
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Retryable:   RetryOn(ClassMethodNotAllowed),
	}
}

// RetryOn builds a predicate accepting the given classes
func RetryOn(classes ...string) func(string) bool {
	set := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		set[c] = struct{}{}
	}
	return func(class string) bool {
		_, ok := set[class]
		return ok
	}
}

// ShouldRetry reports whether another poll follows a failed attempt (1-based)
func (p RetryPolicy) ShouldRetry(class string, attempt int) bool {
	if p.Retryable == nil || !p.Retryable(class) {
		return false
	}
	return attempt < p.MaxAttempts
}

// Delay is the wait before the given retry (1-based): BaseDelay x retryIndex
func (p RetryPolicy) Delay(retryIndex int) time.Duration {
	if retryIndex < 1 {
		retryIndex = 1
	}
	return p.BaseDelay * time.Duration(retryIndex)
}

// Reconciler turns a gateway return redirect into a definitive payment outcome. Every
// Verify call is an independent run with its own retry budget; nothing is shared across runs.
type Reconciler struct {
	source      StatusSource
	publisher   EventPublisher
	policy      RetryPolicy
	pollTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	logger      *zap.Logger
}

// NewReconciler creates a reconciler. publisher may be nil.
func NewReconciler(source StatusSource, publisher EventPublisher, policy RetryPolicy, pollTimeout time.Duration) *Reconciler {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Reconciler{
		source:      source,
		publisher:   publisher,
		policy:      policy,
		pollTimeout: pollTimeout,
		sleep:       sleepContext,
		now:         time.Now,
		logger:      util.GetLogger(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Verify polls the booking's payment status and resolves the outcome. It only returns an
// error when ctx is cancelled; every other failure is reported through the returned state.
func (r *Reconciler) Verify(ctx context.Context, params models.ReturnParams) (*models.PaymentAttemptState, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Verify")
	defer span.End()

	reference := strings.TrimSpace(params.TxnID)
	state := &models.PaymentAttemptState{
		BookingReference: reference,
		CheckoutKind:     params.Type,
	}

	if reference == "" {
		state.Transition(models.OutcomeInvalid, "The payment redirect did not include a transaction reference")
		r.finish(ctx, state)
		return state, nil
	}

	state.Transition(models.OutcomeVerifying, "")

	for attempt := 1; ; attempt++ {
		state.Attempts = attempt
		state.LastPolledAt = r.now()

		booking, err := r.poll(ctx, reference)
		if err == nil {
			util.PaymentStatusPollsTotal.WithLabelValues("ok").Inc()
			r.resolve(state, booking, params.Status)
			break
		}
		if ctx.Err() != nil {
			r.logger.Info("Verification abandoned", zap.String("booking_reference", reference))
			return nil, ctx.Err()
		}

		verr := ClassifyLookupError(reference, err)
		util.PaymentStatusPollsTotal.WithLabelValues(verr.Class).Inc()

		if r.policy.ShouldRetry(verr.Class, attempt) {
			verr.Retryable = true
			state.RetryCount++
			delay := r.policy.Delay(state.RetryCount)
			r.logger.Warn("Payment status lookup failed, retrying",
				zap.String("booking_reference", reference),
				zap.String("class", verr.Class),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			if err := r.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		r.logger.Warn("Payment status lookup failed",
			zap.String("booking_reference", reference),
			zap.Int("attempt", attempt),
			zap.Error(verr))
		if verr.Class == ClassNotFound {
			state.Transition(models.OutcomeNotFound, verr.Message)
		} else {
			state.Transition(models.OutcomeFailed, verr.Message)
		}
		break
	}

	r.finish(ctx, state)
	return state, nil
}

// poll runs one status lookup under its own timeout. A missing payload is a not-found answer.
func (r *Reconciler) poll(ctx context.Context, reference string) (*models.Booking, error) {
	pollCtx := ctx
	if r.pollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, r.pollTimeout)
		defer cancel()
	}

	booking, err := r.source.GetPaymentStatus(pollCtx, reference)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, &bookingapi.APIError{Operation: "GetPaymentStatus", StatusCode: http.StatusNotFound}
	}
	return booking, nil
}

// resolve applies the authoritative record. The redirect status only settles a booking the
// backend still reports as pending; it never overrides a failed record.
func (r *Reconciler) resolve(state *models.PaymentAttemptState, booking *models.Booking, redirectStatus string) {
	state.Booking = booking
	if state.CheckoutKind == "" {
		state.CheckoutKind = booking.CheckoutKind
	}

	redirect := strings.ToLower(strings.TrimSpace(redirectStatus))

	switch strings.ToUpper(booking.PaymentStatus) {
	case models.PaymentStatusPaid:
		state.Transition(models.OutcomePaid, "Payment confirmed")

	case models.PaymentStatusHalfPaid:
		if booking.PaymentType == models.PaymentTypeHalf {
			state.Transition(models.OutcomePaid, "Advance payment confirmed")
		} else {
			state.Transition(models.OutcomePending, "Payment partially received")
		}

	case models.PaymentStatusPending, "":
		switch redirect {
		case models.RedirectStatusSuccess:
			state.ConfirmedByRedirect = true
			state.Transition(models.OutcomePaid, "Payment received, confirmation pending")
		case models.RedirectStatusFailure:
			state.Transition(models.OutcomeFailed, "Payment was not completed")
		default:
			state.Transition(models.OutcomePending, "Payment is still being processed")
		}

	default:
		state.Transition(models.OutcomeFailed, "Payment failed")
	}
}

func (r *Reconciler) finish(ctx context.Context, state *models.PaymentAttemptState) {
	util.PaymentVerificationsTotal.WithLabelValues(string(state.Outcome)).Inc()
	r.logger.Info("Payment verification finished",
		zap.String("booking_reference", state.BookingReference),
		zap.String("outcome", string(state.Outcome)),
		zap.Int("attempts", state.Attempts),
		zap.Int("retry_count", state.RetryCount),
		zap.Bool("confirmed_by_redirect", state.ConfirmedByRedirect))

	if r.publisher == nil || state.BookingReference == "" {
		return
	}

	event := &models.PaymentVerifiedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentVerified,
			Timestamp: time.Now(),
		},
		BookingReference:    state.BookingReference,
		CheckoutKind:        state.CheckoutKind,
		Outcome:             state.Outcome,
		RetryCount:          state.RetryCount,
		ConfirmedByRedirect: state.ConfirmedByRedirect,
		Message:             state.Message,
	}

	if err := r.publisher.PublishPaymentVerified(ctx, event); err != nil {
		r.logger.Error("Failed to publish PaymentVerified event",
			zap.String("booking_reference", state.BookingReference),
			zap.Error(err))
	}
}
