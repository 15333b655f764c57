package nexopay

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

const providerName = "nexopay"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Gateway is the NexoPay charge client. NexoPay takes a flat JSON
// body and authenticates with an X-Api-Key header.
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
	IdempotencyKey  string `json:"idempotency_key"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Method          string `json:"method"`
	CustomerEmail   string `json:"customer_email"`
	CustomerName    string `json:"customer_name,omitempty"`
	CustomerPhone   string `json:"customer_phone,omitempty"`
	CustomerTaxID   string `json:"customer_tax_id,omitempty"`
	CardNumber      string `json:"card_number,omitempty"`
	CardHolderName  string `json:"card_holder_name,omitempty"`
	CardExpiryMonth string `json:"card_expiry_month,omitempty"`
	CardExpiryYear  string `json:"card_expiry_year,omitempty"`
	CardCVV         string `json:"card_cvv,omitempty"`
	PixKey          string `json:"pix_key,omitempty"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PixQRCode     string `json:"pix_qr_code"`
	ErrorCode     string `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

func (g *Gateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	body := chargeRequest{
		IdempotencyKey: req.IdempotencyKey,
		Reference:      req.SessionID,
		Amount:         req.Amount,
		Method:         req.Method,
		CustomerEmail:  req.Email,
		CustomerName:   req.Name,
		CustomerPhone:  req.Phone,
		CustomerTaxID:  req.TaxID,
		PixKey:         req.PixKey,
	}
	if req.Card != nil {
		body.CardNumber = req.Card.Number
		body.CardHolderName = req.Card.HolderName
		body.CardExpiryMonth = req.Card.ExpiryMonth
		body.CardExpiryYear = req.Card.ExpiryYear
		body.CardCVV = req.Card.CVV
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/transactions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	ok := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices

	var out chargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// Error bodies are not always JSON; the status code still
		// carries enough to classify.
		if ok {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if ok && out.ErrorCode == "" {
		return &domain.ChargeResult{
			TransactionID: out.TransactionID,
			Processor:     providerName,
			Status:        out.Status,
			PaymentCode:   out.PixQRCode,
		}, nil
	}

	code := out.ErrorCode
	if code == "" {
		code = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return nil, &domain.GatewayError{
		Code:    code,
		Message: out.ErrorMessage,
		Class:   classify(resp.StatusCode, code),
	}
}

var terminalCodes = map[string]struct{}{
	"card_invalid":       {},
	"card_expired":       {},
	"amount_invalid":     {},
	"request_invalid":    {},
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
