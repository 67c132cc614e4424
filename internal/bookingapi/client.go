package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Client talks to the catalog/booking backend, which owns bookings and the gateway integration
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

// NewClient creates a booking API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// GetTrip fetches the price snapshot of a trip
func (c *Client) GetTrip(ctx context.Context, tripID int64) (*models.Trip, error) {
	var trip models.Trip
	path := fmt.Sprintf("/trips/%d", tripID)
	if err := c.do(ctx, "GetTrip", http.MethodGet, path, nil, nil, nil, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// GetEvent fetches an event with its ticket type price list
func (c *Client) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	path := fmt.Sprintf("/events/%d", eventID)
	if err := c.do(ctx, "GetEvent", http.MethodGet, path, nil, nil, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateTripBooking submits a trip booking. It is never retried here.
func (c *Client) CreateTripBooking(ctx context.Context, req *CreateBookingRequest, idempotencyKey string) (*models.Booking, error) {
	return c.createBooking(ctx, "CreateTripBooking", "/bookings", req, idempotencyKey)
}

// CreateEventBooking submits an event booking. It is never retried here.
func (c *Client) CreateEventBooking(ctx context.Context, req *CreateBookingRequest, idempotencyKey string) (*models.Booking, error) {
	return c.createBooking(ctx, "CreateEventBooking", "/event-bookings", req, idempotencyKey)
}

func (c *Client) createBooking(ctx context.Context, op, path string, req *CreateBookingRequest, idempotencyKey string) (*models.Booking, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}

	var booking models.Booking
	if err := c.do(ctx, op, http.MethodPost, path, nil, req, headers, &booking); err != nil {
		return nil, err
	}
	if booking.BookingReference == "" {
		return nil, fmt.Errorf("%s: response carried no booking reference", op)
	}
	return &booking, nil
}

// InitiatePayment asks the backend for a gateway session
func (c *Client) InitiatePayment(ctx context.Context, bookingReference string) (*InitiatePaymentResponse, error) {
	var resp InitiatePaymentResponse
	path := "/payment/initiate/" + url.PathEscape(bookingReference)
	if err := c.doRaw(ctx, "InitiatePayment", http.MethodPost, path, nil, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPaymentStatus reads the booking's payment state. Every call defeats HTTP caches.
// A nil booking with a nil error means the backend answered without a payload.
func (c *Client) GetPaymentStatus(ctx context.Context, bookingReference string) (*models.Booking, error) {
	query := url.Values{}
	query.Set("_t", strconv.FormatInt(c.now().UnixNano(), 10))

	headers := http.Header{}
	headers.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	headers.Set("Pragma", "no-cache")
	headers.Set("Expires", "0")

	var booking *models.Booking
	path := "/payment/status/" + url.PathEscape(bookingReference)
	if err := c.do(ctx, "GetPaymentStatus", http.MethodGet, path, query, nil, headers, &booking); err != nil {
		return nil, err
	}
	if booking == nil || (booking.BookingReference == "" && booking.PaymentStatus == "") {
		return nil, nil
	}
	return booking, nil
}

// GetEmiOptions fetches the authoritative EMI plans for an amount
func (c *Client) GetEmiOptions(ctx context.Context, amount int64) (*models.EmiOptions, error) {
	query := url.Values{}
	query.Set("amount", strconv.FormatInt(amount, 10))

	var opts models.EmiOptions
	if err := c.do(ctx, "GetEmiOptions", http.MethodGet, "/emi/options", query, nil, nil, &opts); err != nil {
		return nil, err
	}
	opts.Amount = amount
	return &opts, nil
}

// do performs a request and decodes the payload, unwrapping a {"data": ...} envelope when present
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body interface{}, headers http.Header, out interface{}) error {
	var raw json.RawMessage
	if err := c.doRaw(ctx, op, method, path, query, body, headers, &raw); err != nil {
		return err
	}
	return decodePayload(op, raw, out)
}

func (c *Client) doRaw(ctx context.Context, op, method, path string, query url.Values, body interface{}, headers http.Header, out interface{}) error {
	ctx, span := util.StartSpan(ctx, "BookingAPI."+op)
	defer span.End()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		util.BookingAPILatency.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		util.RecordError(span, err)
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()
	util.BookingAPILatency.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Operation: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
		c.logger.Warn("Booking API returned error",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		util.RecordError(span, apiErr)
		return apiErr
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func decodePayload(op string, raw json.RawMessage, out interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 {
			trimmed = bytes.TrimSpace(env.Data)
			if bytes.Equal(trimmed, []byte("null")) {
				return nil
			}
		}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: failed to parse payload: %w", op, err)
	}
	return nil
}

// errorMessage pulls "error" or "message" out of an error body
func errorMessage(body []byte) string {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Error.(string); ok && s != "" {
		return s
	}
	if m, ok := payload.Error.(map[string]interface{}); ok {
		if s, ok := m["message"].(string); ok && s != "" {
			return s
		}
	}
	return payload.Message
}
