package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"go.uber.org/zap"
)

type cardRequest struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

type chargeRequest struct {
	SessionID      string       `json:"session_id"`
	IdempotencyKey string       `json:"idempotency_key"`
	Email          string       `json:"email"`
	Name           string       `json:"name"`
	Phone          string       `json:"phone"`
	TaxID          string       `json:"tax_id"`
	Amount         int64        `json:"amount"`
	Method         string       `json:"method"`
	Card           *cardRequest `json:"card"`
	PixKey         string       `json:"pix_key"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Processor     string `json:"processor"`
	Status        string `json:"status"`
	PaymentCode   string `json:"payment_code,omitempty"`
	FallbackUsed  bool   `json:"fallback_used"`
}

// Charge is the cascade entry point. The attempt is tracked before
// the gateways are asked so a failed session still leaves a pending
// row for recovery messaging.
func (s *Server) Charge(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()

	if req.SessionID != "" {
		if _, err := s.checkoutSvc.Track(ctx, checkoutdomain.TrackRequest{
			SessionID: req.SessionID,
			Email:     req.Email,
			Name:      req.Name,
			Phone:     req.Phone,
			Amount:    req.Amount,
		}); err != nil {
			s.log.Warn("failed to track checkout attempt before charge",
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
		}
	}

	charge := paymentdomain.ChargeRequest{
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      req.SessionID,
		Email:          req.Email,
		Name:           req.Name,
		Phone:          req.Phone,
		TaxID:          req.TaxID,
		Amount:         req.Amount,
		Method:         req.Method,
		PixKey:         req.PixKey,
	}
	if req.Card != nil {
		charge.Card = &paymentdomain.Card{
			Number:      req.Card.Number,
			HolderName:  req.Card.HolderName,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVV:         req.Card.CVV,
		}
	}

	result, err := s.paymentSvc.Charge(ctx, charge)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chargeResponse{
		TransactionID: result.TransactionID,
		Processor:     result.Processor,
		Status:        result.Status,
		PaymentCode:   result.PaymentCode,
		FallbackUsed:  result.FallbackUsed,
	})
}

type trackRequest struct {
	SessionID string         `json:"session_id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone"`
	Cart      map[string]any `json:"cart"`
	Amount    int64          `json:"amount"`
}

func (s *Server) TrackCheckout(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	attempt, err := s.checkoutSvc.Track(c.Request.Context(), checkoutdomain.TrackRequest{
		SessionID: req.SessionID,
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Cart:      req.Cart,
		Amount:    req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

type abandonRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) AbandonCheckout(c *gin.Context) {
	var req abandonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.checkoutSvc.Abandon(c.Request.Context(), req.SessionID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
