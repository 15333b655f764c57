package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/storefront/internal/webhook/domain"
)

const maxWebhookBodyBytes = 1 << 20

// HandleWebhook answers 401 for authentication failures, 400 for
// unparseable bodies and 200 for everything else, ignored events
// included, so processors never retry deliveries the core chose to
// skip.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorPayload{
			Type:    "malformed_payload",
			Message: "unreadable request body",
		}})
		return
	}

	result, _ := s.webhookSvc.Ingest(c.Request.Context(), webhookdomain.Delivery{
		Provider:  c.Param("provider"),
		Payload:   payload,
		Signature: c.GetHeader("X-Webhook-Signature"),
		Timestamp: c.GetHeader("X-Webhook-Timestamp"),
	})

	if result.StatusCode >= http.StatusOK && result.StatusCode < http.StatusMultipleChoices {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	c.JSON(result.StatusCode, errorResponse{Error: errorPayload{
		Type:    webhookErrorType(result.Outcome),
		Message: webhookErrorMessage(result.Outcome),
	}})
}

func webhookErrorType(outcome string) string {
	switch outcome {
	case webhookdomain.OutcomeRejectedSignature, webhookdomain.OutcomeRejectedStale:
		return "authentication_failure"
	case webhookdomain.OutcomeRejectedMalformed:
		return "malformed_payload"
	case webhookdomain.OutcomeRejectedUnknownProvider:
		return "not_found"
	default:
		return "internal_error"
	}
}

func webhookErrorMessage(outcome string) string {
	switch outcome {
	case webhookdomain.OutcomeRejectedSignature:
		return "invalid signature"
	case webhookdomain.OutcomeRejectedStale:
		return "stale timestamp"
	case webhookdomain.OutcomeRejectedMalformed:
		return "malformed payload"
	case webhookdomain.OutcomeRejectedUnknownProvider:
		return "unknown provider"
	default:
		return "internal server error"
	}
}
