package status_test

import (
	"testing"

	"github.com/smallbiznis/storefront/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestResolveEventNameWins(t *testing.T) {
	res, ok := status.Resolve("Pedido Aprovado", "")
	assert.True(t, ok)
	assert.Equal(t, status.Approved, res.Status)
	assert.Empty(t, res.FailureReason)

	// Event name takes precedence over a conflicting status string.
	res, ok = status.Resolve("pedido aprovado", "recusado")
	assert.True(t, ok)
	assert.Equal(t, status.Approved, res.Status)
}

func TestResolveDiacriticsAndCase(t *testing.T) {
	res, ok := status.Resolve("Pedido em Análise", "")
	assert.True(t, ok)
	assert.Equal(t, status.FraudAnalysis, res.Status)

	res, ok = status.Resolve("", "  ESTORNADO ")
	assert.True(t, ok)
	assert.Equal(t, status.Refunded, res.Status)
}

func TestResolveAliasCarriesFailureReason(t *testing.T) {
	res, ok := status.Resolve("", "pix expirado")
	assert.True(t, ok)
	assert.Equal(t, status.Expired, res.Status)
	assert.Equal(t, "PIX expirado", res.FailureReason)
}

func TestResolvePassThrough(t *testing.T) {
	res, ok := status.Resolve("", "underwriting_hold")
	assert.True(t, ok)
	assert.Equal(t, status.Status("underwriting_hold"), res.Status)
	assert.Empty(t, res.FailureReason)
	assert.False(t, res.Status.Known())
}

func TestResolveNothing(t *testing.T) {
	_, ok := status.Resolve("", "")
	assert.False(t, ok)

	_, ok = status.Resolve("evento desconhecido", "")
	assert.False(t, ok)
}

func TestTerminalSets(t *testing.T) {
	assert.True(t, status.Approved.TerminalSuccess())
	assert.True(t, status.Paid.TerminalSuccess())
	assert.False(t, status.Refunded.TerminalSuccess())

	for _, s := range []status.Status{status.Refused, status.Cancelled, status.Expired, status.Chargeback} {
		assert.True(t, s.TerminalFailure(), string(s))
		assert.True(t, s.Terminal(), string(s))
	}

	assert.True(t, status.Refunded.Terminal())
	assert.False(t, status.Refunded.TerminalFailure())

	assert.False(t, status.Pending.Terminal())
	assert.False(t, status.FraudAnalysis.Terminal())
	assert.False(t, status.FraudAnalysis.TerminalFailure())
	assert.False(t, status.FraudAnalysis.TerminalSuccess())
}
