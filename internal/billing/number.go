package billing

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NumberAllocator produces human-facing invoice numbers.
type NumberAllocator interface {
	Allocate(issueDate time.Time) string
}

// RandomNumberAllocator produces INV-YYYYMM-NNNN numbers with a random
// four-digit suffix. The suffix only makes collisions unlikely; the unique
// index on invoice_number is what rejects a duplicate.
type RandomNumberAllocator struct{}

// Allocate returns a new invoice number for the given issue date.
func (RandomNumberAllocator) Allocate(issueDate time.Time) string {
	return FormatInvoiceNumber(issueDate, rand.IntN(10000))
}

// FormatInvoiceNumber formats an invoice number from an issue date and a
// numeric suffix (taken modulo 10000).
func FormatInvoiceNumber(issueDate time.Time, suffix int) string {
	if suffix < 0 {
		suffix = -suffix
	}
	return fmt.Sprintf("INV-%04d%02d-%04d", issueDate.Year(), int(issueDate.Month()), suffix%10000)
}
