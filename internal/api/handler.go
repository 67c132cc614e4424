package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CheckoutAPI is the checkout facade served over HTTP
type CheckoutAPI interface {
	Quote(ctx context.Context, req *service.QuoteRequest) (*service.QuoteResponse, error)
	EmiOptions(ctx context.Context, amount int64) (*models.EmiOptions, error)
	Checkout(ctx context.Context, req *service.CheckoutRequest) (*service.CheckoutResponse, error)
	Initiate(ctx context.Context, bookingReference string) (*service.InitiateResult, error)
	Verify(ctx context.Context, params models.ReturnParams) (*models.PaymentAttemptState, error)
	GetCheckout(ctx context.Context, bookingReference string) (*service.CheckoutRecord, error)
}

// IdempotencyStore remembers checkout results per Idempotency-Key and serializes
// concurrent submissions of the same key
type IdempotencyStore interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	GetIdempotencyResult(ctx context.Context, key string, out interface{}) (bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the handler
type Options struct {
	IdempotencyTTL time.Duration
	LockTTL        time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	checkout    CheckoutAPI
	idempotency IdempotencyStore
	readiness   map[string]Pinger
	opts        Options
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. idempotency may be nil.
func NewHandler(checkout CheckoutAPI, idempotency IdempotencyStore, readiness map[string]Pinger, opts Options) *Handler {
	return &Handler{
		checkout:    checkout,
		idempotency: idempotency,
		readiness:   readiness,
		opts:        opts,
		logger:      util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(recoveryMiddleware())
	router.Use(tracingMiddleware())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/quotes", h.quote)
		v1.GET("/emi/options", h.emiOptions)
		v1.POST("/checkout/trips", h.checkoutHandler(models.CheckoutTrip))
		v1.POST("/checkout/events", h.checkoutHandler(models.CheckoutEvent))
		v1.POST("/payments/:reference/initiate", h.initiatePayment)
		v1.GET("/payments/verify", h.verifyPayment)
		v1.GET("/checkouts/:reference", h.getCheckout)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, dep := range h.readiness {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

// quote prices a checkout without booking it
func (h *Handler) quote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.checkout.Quote(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// emiOptions lists the EMI plans offered for ?amount=
func (h *Handler) emiOptions(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "amount must be a whole number", nil)
		return
	}

	opts, err := h.checkout.EmiOptions(c.Request.Context(), amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, opts)
}

// checkoutHandler books a trip or an event. A repeated Idempotency-Key replays the
// stored result; a concurrent one is rejected while the first is in flight.
func (h *Handler) checkoutHandler(kind models.CheckoutKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		req.Kind = kind

		ctx := c.Request.Context()
		key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

		if key != "" && h.idempotency != nil {
			if h.replayCheckout(c, key) {
				return
			}

			lockKey := "checkout:" + key
			locked, err := h.idempotency.AcquireLock(ctx, lockKey, h.opts.LockTTL)
			if err != nil {
				h.logger.Warn("Failed to acquire checkout lock", zap.String("idempotency_key", key), zap.Error(err))
			} else if !locked {
				respondError(c, http.StatusConflict, "conflict", "A checkout with this idempotency key is already in progress", nil)
				return
			} else {
				defer func() {
					if err := h.idempotency.ReleaseLock(context.Background(), lockKey); err != nil {
						h.logger.Warn("Failed to release checkout lock", zap.String("idempotency_key", key), zap.Error(err))
					}
				}()
				// a request holding the lock before us may have stored its result and released it
				if h.replayCheckout(c, key) {
					return
				}
			}
		}

		req.IdempotencyKey = key
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = uuid.New().String()
		}

		resp, err := h.checkout.Checkout(ctx, &req)
		if err != nil {
			h.respondError(c, err)
			return
		}

		if key != "" && h.idempotency != nil {
			if err := h.idempotency.SetIdempotencyKey(ctx, key, resp, h.opts.IdempotencyTTL); err != nil {
				h.logger.Warn("Failed to store checkout result", zap.String("idempotency_key", key), zap.Error(err))
			}
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// replayCheckout writes the stored result for key, reporting whether one was found
func (h *Handler) replayCheckout(c *gin.Context, key string) bool {
	var cached service.CheckoutResponse
	found, err := h.idempotency.GetIdempotencyResult(c.Request.Context(), key, &cached)
	if err != nil {
		h.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	h.logger.Info("Replaying checkout for idempotency key", zap.String("idempotency_key", key))
	c.JSON(http.StatusCreated, cached)
	return true
}

// initiatePayment opens a gateway session for a booking
func (h *Handler) initiatePayment(c *gin.Context) {
	result, err := h.checkout.Initiate(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// verifyPayment reconciles the gateway return redirect. The outcome is in the body;
// only a cancelled request or an internal failure is an HTTP error.
func (h *Handler) verifyPayment(c *gin.Context) {
	var params models.ReturnParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	state, err := h.checkout.Verify(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// getCheckout returns the journal of a booking
func (h *Handler) getCheckout(c *gin.Context) {
	record, err := h.checkout.GetCheckout(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
