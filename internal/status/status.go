package status

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status is the canonical order status the reconciler operates on,
// independent of which processor reported it.
type Status string

const (
	Pending       Status = "pending"
	FraudAnalysis Status = "fraud_analysis"
	Approved      Status = "approved"
	Paid          Status = "paid"
	Refused       Status = "refused"
	Cancelled     Status = "cancelled"
	Expired       Status = "expired"
	Refunded      Status = "refunded"
	Chargeback    Status = "chargeback"
)

// TerminalSuccess reports whether s represents a completed purchase.
func (s Status) TerminalSuccess() bool {
	return s == Approved || s == Paid
}

// TerminalFailure reports whether s represents a definitive failure.
// Refunded is terminal but not a failure: it follows a prior success.
func (s Status) TerminalFailure() bool {
	switch s {
	case Refused, Cancelled, Expired, Chargeback:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s.TerminalSuccess() || s.TerminalFailure() || s == Refunded
}

// Known reports whether s is one of the enumerated canonical statuses.
func (s Status) Known() bool {
	switch s {
	case Pending, FraudAnalysis, Approved, Paid, Refused, Cancelled, Expired, Refunded, Chargeback:
		return true
	}
	return false
}

// Resolution is the outcome of mapping a processor event.
type Resolution struct {
	Status        Status
	FailureReason string
}

// eventTable maps normalized processor event names. Consulted first.
var eventTable = map[string]Resolution{
	"pedido aprovado":       {Status: Approved},
	"compra aprovada":       {Status: Approved},
	"pedido pago":           {Status: Paid},
	"pagamento confirmado":  {Status: Paid},
	"pedido criado":         {Status: Pending},
	"aguardando pagamento":  {Status: Pending},
	"pedido em analise":     {Status: FraudAnalysis},
	"analise de fraude":     {Status: FraudAnalysis},
	"pedido recusado":       {Status: Refused, FailureReason: "Pagamento recusado"},
	"pagamento recusado":    {Status: Refused, FailureReason: "Pagamento recusado"},
	"pedido cancelado":      {Status: Cancelled, FailureReason: "Pedido cancelado"},
	"pedido expirado":       {Status: Expired, FailureReason: "Pedido expirado"},
	"pedido reembolsado":    {Status: Refunded, FailureReason: "Pagamento estornado"},
	"pagamento estornado":   {Status: Refunded, FailureReason: "Pagamento estornado"},
	"chargeback recebido":   {Status: Chargeback, FailureReason: "Chargeback"},
	"order.created":         {Status: Pending},
	"order.approved":        {Status: Approved},
	"order.paid":            {Status: Paid},
	"order.in_analysis":     {Status: FraudAnalysis},
	"order.refused":         {Status: Refused, FailureReason: "Pagamento recusado"},
	"order.cancelled":       {Status: Cancelled, FailureReason: "Pedido cancelado"},
	"order.expired":         {Status: Expired, FailureReason: "Pedido expirado"},
	"order.refunded":        {Status: Refunded, FailureReason: "Pagamento estornado"},
	"order.chargeback":      {Status: Chargeback, FailureReason: "Chargeback"},
	"payment.authorized":    {Status: Approved},
	"payment.captured":      {Status: Paid},
	"payment.failed":        {Status: Refused, FailureReason: "Pagamento recusado"},
}

// aliasTable maps normalized raw status strings. Consulted when the
// event name did not resolve.
var aliasTable = map[string]Resolution{
	"pendente":             {Status: Pending},
	"pending":              {Status: Pending},
	"aguardando":           {Status: Pending},
	"aguardando pagamento": {Status: Pending},
	"waiting_payment":      {Status: Pending},
	"em analise":           {Status: FraudAnalysis},
	"in_analysis":          {Status: FraudAnalysis},
	"analise":              {Status: FraudAnalysis},
	"aprovado":             {Status: Approved},
	"approved":             {Status: Approved},
	"autorizado":           {Status: Approved},
	"pago":                 {Status: Paid},
	"paid":                 {Status: Paid},
	"captured":             {Status: Paid},
	"recusado":             {Status: Refused, FailureReason: "Pagamento recusado"},
	"refused":              {Status: Refused, FailureReason: "Pagamento recusado"},
	"declined":             {Status: Refused, FailureReason: "Pagamento recusado"},
	"cancelado":            {Status: Cancelled, FailureReason: "Pedido cancelado"},
	"canceled":             {Status: Cancelled, FailureReason: "Pedido cancelado"},
	"cancelled":            {Status: Cancelled, FailureReason: "Pedido cancelado"},
	"expirado":             {Status: Expired, FailureReason: "Pedido expirado"},
	"expired":              {Status: Expired, FailureReason: "Pedido expirado"},
	"pix expirado":         {Status: Expired, FailureReason: "PIX expirado"},
	"boleto vencido":       {Status: Expired, FailureReason: "Boleto vencido"},
	"estornado":            {Status: Refunded, FailureReason: "Pagamento estornado"},
	"reembolsado":          {Status: Refunded, FailureReason: "Pagamento estornado"},
	"refunded":             {Status: Refunded, FailureReason: "Pagamento estornado"},
	"chargeback":           {Status: Chargeback, FailureReason: "Chargeback"},
}

// Resolve maps a processor event name and/or raw status string to a
// canonical resolution. Resolution order: event table, alias table,
// then verbatim pass-through of a present status string. It returns
// false only when neither input yields anything, in which case the
// event should be acknowledged and ignored.
func Resolve(eventName, rawStatus string) (Resolution, bool) {
	if key := Normalize(eventName); key != "" {
		if res, ok := eventTable[key]; ok {
			return res, true
		}
	}
	if key := Normalize(rawStatus); key != "" {
		if res, ok := aliasTable[key]; ok {
			return res, true
		}
	}
	// Unknown but not discarded: keep the processor's own wording so
	// nothing is silently swallowed.
	if raw := strings.TrimSpace(rawStatus); raw != "" {
		return Resolution{Status: Status(raw)}, true
	}
	return Resolution{}, false
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}
