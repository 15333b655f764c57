package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	customerdomain "github.com/smallbiznis/storefront/internal/customer/domain"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError translates domain sentinels into the public taxonomy. Raw
// processor strings never reach the client.
func mapError(err error) (int, errorPayload) {
	var gerr *paymentdomain.GatewayError
	if errors.As(err, &gerr) {
		return mapGatewayError(gerr)
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrInvalidSession),
		errors.Is(err, customerdomain.ErrInvalidEmail):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, checkoutdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, orderdomain.ErrNoIdentity):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func mapGatewayError(gerr *paymentdomain.GatewayError) (int, errorPayload) {
	switch gerr.Class {
	case paymentdomain.ErrorClassInvalidRequest:
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    gerr.Code,
			Message: "Dados de pagamento inválidos. Revise as informações e tente novamente.",
		}
	case paymentdomain.ErrorClassTerminal:
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_declined",
			Code:    gerr.Code,
			Message: "Pagamento recusado. Verifique os dados do cartão ou tente outro meio de pagamento.",
		}
	default:
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_failed",
			Code:    gerr.Code,
			Message: "Não foi possível processar o pagamento no momento. Tente novamente em instantes.",
		}
	}
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status == http.StatusPaymentRequired:
		return "payment_error", payload.Code
	default:
		return "client_error", payload.Type
	}
}
