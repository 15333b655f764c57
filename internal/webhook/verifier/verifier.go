package verifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/webhook/domain"
	"go.uber.org/zap"
)

// Verifier authenticates inbound webhook deliveries with a
// per-provider HMAC-SHA256 shared secret.
type Verifier struct {
	log     *zap.Logger
	clock   clock.Clock
	secrets map[string]string
	window  time.Duration
}

func New(cfg config.Config, clk clock.Clock, log *zap.Logger) *Verifier {
	window := time.Duration(cfg.WebhookTimestampWindowMin) * time.Minute
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Verifier{
		log:   log.Named("webhook.verifier"),
		clock: clk,
		secrets: map[string]string{
			"atlaspay": cfg.AtlasPayWebhookSecret,
			"nexopay":  cfg.NexoPayWebhookSecret,
		},
		window: window,
	}
}

// Verify checks the signature over the raw body and, when a
// timestamp header is present, its freshness. An empty configured
// secret disables verification for that provider.
func (v *Verifier) Verify(provider string, payload []byte, signature, timestamp string) error {
	secret, ok := v.secrets[provider]
	if !ok {
		return domain.ErrUnknownProvider
	}
	if secret == "" {
		v.log.Warn("webhook secret not configured, accepting unverified delivery",
			zap.String("provider", provider),
		)
		return nil
	}

	if timestamp != "" {
		if err := v.checkFreshness(timestamp); err != nil {
			return err
		}
	}

	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (v *Verifier) checkFreshness(timestamp string) error {
	seconds, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return domain.ErrStaleTimestamp
	}
	sent := time.Unix(seconds, 0)
	drift := v.clock.Now().Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.window {
		return domain.ErrStaleTimestamp
	}
	return nil
}

// Sign computes the signature a provider would attach to payload.
// Used by tests and local tooling.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
