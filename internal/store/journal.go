package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// CreateCheckoutAttempt records a booking. Replays of the same reference are ignored.
func (s *Store) CreateCheckoutAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error {
	query := `
		INSERT INTO checkout_attempts (booking_reference, checkout_kind, payment_type, payment_method,
			base_amount, discount_amount, surcharge_amount, final_amount, emi_tenure, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (booking_reference) DO NOTHING`

	_, err := s.conn(ctx).ExecContext(ctx, query,
		attempt.BookingReference, attempt.CheckoutKind, attempt.PaymentType, attempt.PaymentMethod,
		attempt.BaseAmount, attempt.DiscountAmount, attempt.SurchargeAmount, attempt.FinalAmount,
		attempt.EmiTenure, attempt.Status)
	if err != nil {
		return fmt.Errorf("failed to insert checkout attempt: %w", err)
	}
	return nil
}

// UpdateCheckoutStatus updates the journal status of a booking
func (s *Store) UpdateCheckoutStatus(ctx context.Context, bookingReference, status string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		"UPDATE checkout_attempts SET status = $1, updated_at = NOW() WHERE booking_reference = $2",
		status, bookingReference)
	if err != nil {
		return fmt.Errorf("failed to update checkout status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "checkout", ID: bookingReference}
	}
	return nil
}

// GetCheckoutAttempt retrieves the journal row of a booking
func (s *Store) GetCheckoutAttempt(ctx context.Context, bookingReference string) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	err := s.conn(ctx).GetContext(ctx, &attempt,
		"SELECT * FROM checkout_attempts WHERE booking_reference = $1", bookingReference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "checkout", ID: bookingReference}
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// RecordVerification appends a verification outcome
func (s *Store) RecordVerification(ctx context.Context, v *models.PaymentVerification) error {
	query := `
		INSERT INTO payment_verifications (booking_reference, outcome, retry_count, confirmed_by_redirect, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, verified_at`

	return s.conn(ctx).QueryRowxContext(ctx, query,
		v.BookingReference, v.Outcome, v.RetryCount, v.ConfirmedByRedirect, v.Message).
		Scan(&v.ID, &v.VerifiedAt)
}

// ListVerifications returns the verification history of a booking, newest first
func (s *Store) ListVerifications(ctx context.Context, bookingReference string) ([]models.PaymentVerification, error) {
	verifications := []models.PaymentVerification{}
	err := s.conn(ctx).SelectContext(ctx, &verifications,
		"SELECT * FROM payment_verifications WHERE booking_reference = $1 ORDER BY verified_at DESC, id DESC",
		bookingReference)
	return verifications, err
}

// MarkEventProcessed claims an event id. It reports false when the event was already
// processed, so callers running it in a transaction can skip the projection.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
