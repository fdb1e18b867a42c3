package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/services/charity"
	"github.com/samafal/backend/internal/services/payment"
)

// PaymentAPI is the slice of the payment service the handler needs
type PaymentAPI interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error)
	GetStatus(ctx context.Context, token string) (*payment.StatusResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*payment.WebhookResult, error)
	ManualCredit(ctx context.Context, paymentID uuid.UUID) (*payment.CreditResult, error)
	ListPayments(ctx context.Context, page, pageSize int) ([]models.Payment, int64, error)
}

// PaymentHandler handles payment-related requests
type PaymentHandler struct {
	paymentService PaymentAPI
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentAPI) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiateDonationRequest is the donor-facing charge request body
type InitiateDonationRequest struct {
	Method    models.PaymentMethod `json:"method"`
	Amount    float64              `json:"amount"`
	Currency  string               `json:"currency"`
	Name      string               `json:"name"`
	Phone     string               `json:"phone"`
	Email     string               `json:"email"`
	Note      string               `json:"note"`
	CharityID string               `json:"charityId"`
}

// InitiateDonation handles POST /api/payments/mobile/initiate
func (h *PaymentHandler) InitiateDonation(c *gin.Context) {
	var req InitiateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if req.Method == "" {
		req.Method = models.PaymentMethodEVC
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), payment.InitiateRequest{
		Method:    req.Method,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Note:      req.Note,
		CharityID: req.CharityID,
	})
	if err != nil {
		h.respondInitiateError(c, result, err)
		return
	}

	status := http.StatusCreated
	if result.Status == models.PaymentStatusFailed {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

func (h *PaymentHandler) respondInitiateError(c *gin.Context, result *payment.InitiateResult, err error) {
	var validationErr *payment.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Message})
	case errors.Is(err, payment.ErrUnsupportedMethod):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unsupported method"})
	case errors.Is(err, payment.ErrProviderNotConfigured):
		c.JSON(http.StatusNotImplemented, gin.H{"message": "Payment method not yet available"})
	default:
		body := gin.H{"message": err.Error()}
		if result != nil {
			body["reference"] = result.Reference
			body["status"] = result.Status
			if result.Message != "" {
				body["message"] = result.Message
			}
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// GetStatus handles GET /api/payments/status/:id where :id may be the
// merchant reference or the internal id
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	result, err := h.paymentService.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Webhook handles POST /api/payments/webhook (provider → us)
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unable to read body"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		var validationErr *payment.ValidationError
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid signature"})
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Message})
		case errors.Is(err, payment.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": result.OK})
}

// ManualCredit handles POST /api/payments/manual-credit/:paymentId. It is an
// operator escape hatch for payments whose credit never fired; it is not
// idempotent and is admin-gated in the routes.
func (h *PaymentHandler) ManualCredit(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("paymentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payment id"})
		return
	}

	result, err := h.paymentService.ManualCredit(c.Request.Context(), paymentID)
	if err != nil {
		var validationErr *payment.ValidationError
		switch {
		case errors.Is(err, payment.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
		case errors.Is(err, charity.ErrCharityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Charity not found"})
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// AdminListPayments handles GET /api/payments/admin
func (h *PaymentHandler) AdminListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	items, total, err := h.paymentService.ListPayments(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
