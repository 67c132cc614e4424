package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const initiationFailedMessage = "Payment could not be started. Please try again."

// InitiateResult is where the browser goes next
type InitiateResult struct {
	BookingReference string `json:"bookingReference"`
	PaymentURL       string `json:"paymentUrl"`
}

// PaymentInitiator asks the backend for a gateway session. After a successful call the
// browser leaves for the gateway and comes back on the return URL.
type PaymentInitiator struct {
	gateway   PaymentGateway
	publisher EventPublisher
	logger    *zap.Logger
}

// NewPaymentInitiator creates a payment initiator. publisher may be nil.
func NewPaymentInitiator(gateway PaymentGateway, publisher EventPublisher) *PaymentInitiator {
	return &PaymentInitiator{
		gateway:   gateway,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Initiate returns the gateway URL for a booking or a GatewayError
func (p *PaymentInitiator) Initiate(ctx context.Context, bookingReference string) (*InitiateResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentInitiator.Initiate")
	defer span.End()

	bookingReference = strings.TrimSpace(bookingReference)
	if bookingReference == "" {
		return nil, models.NewValidationError("bookingReference", "is required")
	}

	resp, err := p.gateway.InitiatePayment(ctx, bookingReference)
	if err != nil {
		util.PaymentInitiationsTotal.WithLabelValues("error").Inc()
		util.RecordError(span, err)

		message := initiationFailedMessage
		var apiErr *bookingapi.APIError
		if errors.As(err, &apiErr) {
			message = apiErr.ServerMessage(initiationFailedMessage)
		}
		p.logger.Error("Payment initiation failed",
			zap.String("booking_reference", bookingReference),
			zap.Error(err))
		return nil, &models.GatewayError{BookingReference: bookingReference, Message: message, Err: err}
	}

	if !resp.Success {
		util.PaymentInitiationsTotal.WithLabelValues("declined").Inc()
		message := firstNonEmpty(resp.Error, resp.Message, "Payment gateway declined to start a session")
		p.logger.Warn("Payment gateway declined session",
			zap.String("booking_reference", bookingReference),
			zap.String("message", message))
		return nil, &models.GatewayError{BookingReference: bookingReference, Message: message}
	}

	if !validPaymentURL(resp.PaymentURL) {
		util.PaymentInitiationsTotal.WithLabelValues("no_url").Inc()
		p.logger.Warn("Payment gateway returned no usable URL",
			zap.String("booking_reference", bookingReference),
			zap.String("payment_url", resp.PaymentURL))
		return nil, &models.GatewayError{BookingReference: bookingReference, Message: "Payment gateway did not return a payment URL"}
	}

	util.PaymentInitiationsTotal.WithLabelValues("success").Inc()
	p.logger.Info("Payment session initiated", zap.String("booking_reference", bookingReference))

	p.publishInitiated(ctx, bookingReference, resp.PaymentURL)

	return &InitiateResult{BookingReference: bookingReference, PaymentURL: resp.PaymentURL}, nil
}

func (p *PaymentInitiator) publishInitiated(ctx context.Context, reference, paymentURL string) {
	if p.publisher == nil {
		return
	}

	event := &models.PaymentInitiatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentInitiated,
			Timestamp: time.Now(),
		},
		BookingReference: reference,
		PaymentURL:       paymentURL,
	}

	if err := p.publisher.PublishPaymentInitiated(ctx, event); err != nil {
		p.logger.Error("Failed to publish PaymentInitiated event",
			zap.String("booking_reference", reference),
			zap.Error(err))
	}
}

// validPaymentURL accepts absolute http(s) URLs only
func validPaymentURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
