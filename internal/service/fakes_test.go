package service

import (
	"context"
	"sync"
	"time"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"
)

type fakeCatalog struct {
	trips  map[int64]*models.Trip
	events map[int64]*models.Event
	err    error
	calls  int
}

func (f *fakeCatalog) GetTrip(ctx context.Context, tripID int64) (*models.Trip, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if trip, ok := f.trips[tripID]; ok {
		return trip, nil
	}
	return nil, &bookingapi.APIError{Operation: "GetTrip", StatusCode: 404}
}

func (f *fakeCatalog) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if event, ok := f.events[eventID]; ok {
		return event, nil
	}
	return nil, &bookingapi.APIError{Operation: "GetEvent", StatusCode: 404}
}

type bookingCall struct {
	path string
	req  *bookingapi.CreateBookingRequest
	key  string
}

type fakeBookingAPI struct {
	reference string
	err       error
	calls     []bookingCall
}

func (f *fakeBookingAPI) create(path string, req *bookingapi.CreateBookingRequest, key string) (*models.Booking, error) {
	f.calls = append(f.calls, bookingCall{path: path, req: req, key: key})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Booking{
		BookingReference: f.reference,
		PaymentType:      req.PaymentType,
		PaymentMethod:    req.PaymentMethod,
		FinalAmount:      req.FinalAmount,
		PaymentStatus:    models.PaymentStatusPending,
	}, nil
}

func (f *fakeBookingAPI) CreateTripBooking(ctx context.Context, req *bookingapi.CreateBookingRequest, key string) (*models.Booking, error) {
	return f.create("/bookings", req, key)
}

func (f *fakeBookingAPI) CreateEventBooking(ctx context.Context, req *bookingapi.CreateBookingRequest, key string) (*models.Booking, error) {
	return f.create("/event-bookings", req, key)
}

type fakeGateway struct {
	resp  *bookingapi.InitiatePaymentResponse
	err   error
	calls int
}

func (f *fakeGateway) InitiatePayment(ctx context.Context, reference string) (*bookingapi.InitiatePaymentResponse, error) {
	f.calls++
	return f.resp, f.err
}

type statusAnswer struct {
	booking *models.Booking
	err     error
}

// scriptedStatus answers polls in order and repeats the last answer
type scriptedStatus struct {
	answers []statusAnswer
	calls   int
	block   bool
}

func (f *scriptedStatus) GetPaymentStatus(ctx context.Context, reference string) (*models.Booking, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	i := f.calls - 1
	if i >= len(f.answers) {
		i = len(f.answers) - 1
	}
	return f.answers[i].booking, f.answers[i].err
}

type fakePublisher struct {
	mu       sync.Mutex
	created  []*models.BookingCreatedEvent
	inited   []*models.PaymentInitiatedEvent
	verified []*models.PaymentVerifiedEvent
	err      error
}

func (f *fakePublisher) PublishBookingCreated(ctx context.Context, e *models.BookingCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, e)
	return f.err
}

func (f *fakePublisher) PublishPaymentInitiated(ctx context.Context, e *models.PaymentInitiatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inited = append(f.inited, e)
	return f.err
}

func (f *fakePublisher) PublishPaymentVerified(ctx context.Context, e *models.PaymentVerifiedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, e)
	return f.err
}

type fakeJournalStore struct {
	processed     map[string]bool
	attempts      map[string]*models.CheckoutAttempt
	verifications []models.PaymentVerification
	failCreate    error
	failUpdate    error
	rollbacks     int
}

func newFakeJournalStore() *fakeJournalStore {
	return &fakeJournalStore{
		processed: map[string]bool{},
		attempts:  map[string]*models.CheckoutAttempt{},
	}
}

// InTx restores the previous state when fn fails
func (f *fakeJournalStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	processed := make(map[string]bool, len(f.processed))
	for k, v := range f.processed {
		processed[k] = v
	}
	attempts := make(map[string]*models.CheckoutAttempt, len(f.attempts))
	for k, v := range f.attempts {
		copied := *v
		attempts[k] = &copied
	}
	verifications := append([]models.PaymentVerification(nil), f.verifications...)

	if err := fn(ctx); err != nil {
		f.processed, f.attempts, f.verifications = processed, attempts, verifications
		f.rollbacks++
		return err
	}
	return nil
}

func (f *fakeJournalStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	if f.processed[eventID] {
		return false, nil
	}
	f.processed[eventID] = true
	return true, nil
}

func (f *fakeJournalStore) CreateCheckoutAttempt(ctx context.Context, a *models.CheckoutAttempt) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	if _, ok := f.attempts[a.BookingReference]; !ok {
		f.attempts[a.BookingReference] = a
	}
	return nil
}

func (f *fakeJournalStore) UpdateCheckoutStatus(ctx context.Context, reference, status string) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	a, ok := f.attempts[reference]
	if !ok {
		return &models.NotFoundError{Resource: "checkout", ID: reference}
	}
	a.Status = status
	return nil
}

func (f *fakeJournalStore) GetCheckoutAttempt(ctx context.Context, reference string) (*models.CheckoutAttempt, error) {
	a, ok := f.attempts[reference]
	if !ok {
		return nil, &models.NotFoundError{Resource: "checkout", ID: reference}
	}
	return a, nil
}

func (f *fakeJournalStore) RecordVerification(ctx context.Context, v *models.PaymentVerification) error {
	v.ID = int64(len(f.verifications) + 1)
	v.VerifiedAt = time.Now()
	f.verifications = append(f.verifications, *v)
	return nil
}

func (f *fakeJournalStore) ListVerifications(ctx context.Context, reference string) ([]models.PaymentVerification, error) {
	out := []models.PaymentVerification{}
	for _, v := range f.verifications {
		if v.BookingReference == reference {
			out = append(out, v)
		}
	}
	return out, nil
}
