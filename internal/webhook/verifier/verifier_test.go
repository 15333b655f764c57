package verifier

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/webhook/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVerifier(t *testing.T) (*Verifier, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	v := New(config.Config{
		AtlasPayWebhookSecret:     "atlas-secret",
		NexoPayWebhookSecret:      "nexo-secret",
		WebhookTimestampWindowMin: 5,
	}, clk, zap.NewNop())
	return v, clk
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v, clk := newVerifier(t)
	payload := []byte(`{"event":"order.paid"}`)
	ts := fmt.Sprintf("%d", clk.Now().Unix())

	require.NoError(t, v.Verify("atlaspay", payload, Sign("atlas-secret", payload), ts))
}

func TestVerifyAcceptsBareHexSignature(t *testing.T) {
	v, _ := newVerifier(t)
	payload := []byte(`{"event":"order.paid"}`)
	sig := strings.TrimPrefix(Sign("nexo-secret", payload), "sha256=")

	require.NoError(t, v.Verify("nexopay", payload, sig, ""))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v, _ := newVerifier(t)
	sig := Sign("atlas-secret", []byte(`{"amount":100}`))

	err := v.Verify("atlaspay", []byte(`{"amount":99900}`), sig, "")
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsWrongProviderSecret(t *testing.T) {
	v, _ := newVerifier(t)
	payload := []byte(`{}`)

	err := v.Verify("atlaspay", payload, Sign("nexo-secret", payload), "")
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v, clk := newVerifier(t)
	payload := []byte(`{}`)
	ts := fmt.Sprintf("%d", clk.Now().Add(-10*time.Minute).Unix())

	err := v.Verify("atlaspay", payload, Sign("atlas-secret", payload), ts)
	require.ErrorIs(t, err, domain.ErrStaleTimestamp)
}

func TestVerifyRejectsFutureTimestamp(t *testing.T) {
	v, clk := newVerifier(t)
	payload := []byte(`{}`)
	ts := fmt.Sprintf("%d", clk.Now().Add(10*time.Minute).Unix())

	err := v.Verify("atlaspay", payload, Sign("atlas-secret", payload), ts)
	require.ErrorIs(t, err, domain.ErrStaleTimestamp)
}

func TestVerifyRejectsGarbageTimestamp(t *testing.T) {
	v, _ := newVerifier(t)
	payload := []byte(`{}`)

	err := v.Verify("atlaspay", payload, Sign("atlas-secret", payload), "not-a-number")
	require.ErrorIs(t, err, domain.ErrStaleTimestamp)
}

func TestVerifyUnknownProvider(t *testing.T) {
	v, _ := newVerifier(t)

	err := v.Verify("acme", []byte(`{}`), "sha256=00", "")
	require.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestVerifySkipsWhenSecretUnset(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	v := New(config.Config{NexoPayWebhookSecret: "nexo-secret"}, clk, zap.NewNop())

	require.NoError(t, v.Verify("atlaspay", []byte(`{}`), "", ""))
}
