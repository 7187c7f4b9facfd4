package handler

import (
	"errors"
	"net/http"

	"github.com/cbtprep/cbtprep-backend/internal/middleware"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/cbtprep/cbtprep-backend/internal/response"
	"github.com/cbtprep/cbtprep-backend/internal/service"
	"github.com/cbtprep/cbtprep-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles premium purchase and unlock-code endpoints.
type PaymentHandler struct {
	paymentService *service.PaymentService
	accessService  *service.AccessService
	userService    *service.UserService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, accessService *service.AccessService, userService *service.UserService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		accessService:  accessService,
		userService:    userService,
	}
}

// Initialize godoc
// POST /api/v1/payments/initialize
// Starts a Paystack transaction for the premium upgrade.
func (h *PaymentHandler) Initialize(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	init, err := h.paymentService.Initialize(c.Request.Context(), claims.UserID, user.Email)
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrPaymentInitFailed)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payment": init})
}

// Verify godoc
// GET /api/v1/payments/verify/:reference
// Confirms a transaction; on first success mints an unlock code and upgrades
// the buyer. Safe to call repeatedly.
func (h *PaymentHandler) Verify(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reference := c.Param("reference")
	if reference == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	verified, err := h.paymentService.Verify(c.Request.Context(), claims.UserID, reference)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrPaymentNotFound)
		case errors.Is(err, service.ErrPaymentNotConfirmed):
			response.Fail(c, http.StatusConflict, response.ErrPaymentUnconfirmed)
		default:
			response.Fail(c, http.StatusBadGateway, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payment": verified})
}

// RedeemCode godoc
// POST /api/v1/access/code
// Redeems an unlock code outside the session flow; a valid code upgrades the
// user to premium immediately.
func (h *PaymentHandler) RedeemCode(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ValidateCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	decision, err := h.accessService.Authorize(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !decision.Allowed {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidUnlockCode)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"access": decision})
}
