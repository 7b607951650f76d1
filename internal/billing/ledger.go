package billing

import (
	"github.com/google/uuid"

	"github.com/abelcubano/main-project/internal/models"
)

// Ledger answers whether a billing owner was already invoiced for a period.
// It is built once from the invoice history and is read-only afterwards, so
// concurrent lookups need no locking.
type Ledger struct {
	billed map[string]struct{}
}

// NewLedger indexes the given invoices. An invoice contributes a key from its
// persisted billing period when present, otherwise from the period encoded in
// its number. Invoices with neither are silently left out of the index.
func NewLedger(invoices []*models.Invoice) *Ledger {
	l := &Ledger{billed: make(map[string]struct{}, len(invoices))}
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		if p, ok := invoicePeriod(inv); ok {
			l.billed[PeriodKey(inv.UserID, p)] = struct{}{}
		}
	}
	return l
}

// Has reports whether owner already has an invoice for period.
func (l *Ledger) Has(owner uuid.UUID, period Period) bool {
	_, ok := l.billed[PeriodKey(owner, period)]
	return ok
}

// Len returns the number of indexed (owner, period) pairs.
func (l *Ledger) Len() int {
	return len(l.billed)
}

// PeriodKey returns the {ownerID}:{YYYY-MM} dedup key.
func PeriodKey(owner uuid.UUID, period Period) string {
	return owner.String() + ":" + period.String()
}

func invoicePeriod(inv *models.Invoice) (Period, bool) {
	if inv.BillingPeriod != nil && *inv.BillingPeriod != "" {
		if p, err := ParsePeriod(*inv.BillingPeriod); err == nil {
			return p, true
		}
	}
	return ParseInvoiceNumberPeriod(inv.InvoiceNumber)
}
