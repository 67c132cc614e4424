package api

import (
	"context"
	"errors"
	"net/http"

	"checkout-service/internal/bookingapi"
	"checkout-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusClientClosedRequest is the nginx convention for a caller that went away
const statusClientClosedRequest = 499

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func respondBindError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body", err.Error())
}

// respondError maps checkout errors to HTTP answers
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validationErr   *models.ValidationError
		notFoundErr     *models.NotFoundError
		gatewayErr      *models.GatewayError
		verificationErr *models.VerificationError
		apiErr          *bookingapi.APIError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "validation_error", validationErr.Message, gin.H{"field": validationErr.Field})
	case errors.As(err, &notFoundErr):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.As(err, &gatewayErr):
		respondError(c, http.StatusBadGateway, "payment_initiation_failed", gatewayErr.Message, nil)
	case errors.As(err, &verificationErr):
		respondError(c, http.StatusBadGateway, "payment_verification_failed", verificationErr.Message, gin.H{"class": verificationErr.Class})
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		respondError(c, status, "booking_failed", apiErr.ServerMessage(http.StatusText(apiErr.StatusCode)), nil)
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "timeout", "The request timed out", nil)
	default:
		h.logger.Error("Unhandled checkout error", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Something went wrong, please try again", nil)
	}
}
