package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_quotes_total",
		Help: "Total number of pricing quotes computed",
	}, []string{"site", "method", "payment_type"})

	EmiOptionsServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emi_options_served_total",
		Help: "EMI option lookups by source (remote, cache, fallback, ineligible)",
	}, []string{"source"})

	LineItemsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "line_items_dropped_total",
		Help: "Ticket selections dropped because the ticket type is unknown",
	})

	BookingsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	}, []string{"kind", "payment_type"})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking submissions",
	}, []string{"reason"})

	PaymentInitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiations_total",
		Help: "Payment session initiations by result",
	}, []string{"result"})

	PaymentVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment verification runs by outcome",
	}, []string{"outcome"})

	PaymentStatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_polls_total",
		Help: "Individual payment status polls by result class",
	}, []string{"class"})

	BookingAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_api_request_duration_seconds",
		Help:    "Latency of calls to the booking backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	JournalEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_journal_events_total",
		Help: "Checkout events projected into the journal",
	}, []string{"event_type", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
