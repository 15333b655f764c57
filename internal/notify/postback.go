package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PostbackNotifier delivers purchase-completed events to a configured
// HTTP endpoint as a JSON POST.
type PostbackNotifier struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

func NewPostbackNotifier(url string, timeout time.Duration, log *zap.Logger) *PostbackNotifier {
	return &PostbackNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.Named("notify.postback"),
	}
}

func (n *PostbackNotifier) PurchaseCompleted(ctx context.Context, event PurchaseEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("purchase postback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("purchase postback: unexpected status %d", resp.StatusCode)
	}

	n.log.Info("purchase postback delivered",
		zap.Int64("order_id", int64(event.OrderID)),
		zap.String("processor", event.Processor),
		zap.Bool("fallback_used", event.FallbackUsed),
	)
	return nil
}
