package atlaspay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/storefront/internal/payment/domain"
)

const providerName = "atlaspay"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Gateway is the AtlasPay charge client. AtlasPay speaks a nested
// JSON shape and authenticates with a bearer key.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func New(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

func (g *Gateway) Name() string { return providerName }

type chargeRequest struct {
	ReferenceID string       `json:"reference_id"`
	Customer    customerBody `json:"customer"`
	Payment     paymentBody  `json:"payment"`
}

type customerBody struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

type paymentBody struct {
	Method      string    `json:"method"`
	AmountCents int64     `json:"amount_cents"`
	Card        *cardBody `json:"card,omitempty"`
	PixKey      string    `json:"pix_key,omitempty"`
}

type cardBody struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

type chargeResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Payment struct {
		QRCode string `json:"qr_code"`
	} `json:"payment"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	body := chargeRequest{
		ReferenceID: req.SessionID,
		Customer: customerBody{
			Email:    req.Email,
			Name:     req.Name,
			Phone:    req.Phone,
			Document: req.TaxID,
		},
		Payment: paymentBody{
			Method:      req.Method,
			AmountCents: req.Amount,
			PixKey:      req.PixKey,
		},
	}
	if req.Card != nil {
		body.Payment.Card = &cardBody{
			Number:      req.Card.Number,
			HolderName:  req.Card.HolderName,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVV:         req.Card.CVV,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		var out chargeResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &domain.ChargeResult{
			TransactionID: out.ID,
			Processor:     providerName,
			Status:        out.Status,
			PaymentCode:   out.Payment.QRCode,
		}, nil
	}

	var failure errorResponse
	_ = json.Unmarshal(raw, &failure)
	code := failure.Error.Code
	if code == "" {
		code = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return nil, &domain.GatewayError{
		Code:    code,
		Message: failure.Error.Message,
		Class:   classify(resp.StatusCode, code),
	}
}

// Declines that would repeat identically at any processor stay
// terminal; everything else is eligible for cascade.
var terminalCodes = map[string]struct{}{
	"invalid_card":       {},
	"expired_card":       {},
	"invalid_amount":     {},
	"invalid_request":    {},
	"insufficient_funds": {},
}

func classify(statusCode int, code string) domain.ErrorClass {
	if _, ok := terminalCodes[strings.ToLower(code)]; ok {
		return domain.ErrorClassTerminal
	}
	if statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity {
		return domain.ErrorClassTerminal
	}
	return domain.ErrorClassCascade
}
