// Package billing holds the pure parts of the monthly billing engine: billing
// periods, the ledger of periods already invoiced, invoice numbering and line
// item materialization. Nothing in this package performs I/O.
package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Period is a calendar month, the idempotency unit of invoice generation.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the YYYY-MM form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid billing period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// String returns the YYYY-MM form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// FirstDay returns midnight of the first day of the period.
func (p Period) FirstDay(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// LastDay returns midnight of the last day of the period.
func (p Period) LastDay(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, loc)
}

// invoiceNumberPeriod matches the INV-YYYYMM- prefix shared with the number
// allocator. Historical data depends on it; do not change it without a
// migration for existing invoices.
var invoiceNumberPeriod = regexp.MustCompile(`^INV-(\d{4})(\d{2})-`)

// ParseInvoiceNumberPeriod recovers the billing period embedded in an invoice
// number. It reports false for numbers that do not follow the INV-YYYYMM-
// format, including hand-edited ones.
func ParseInvoiceNumberPeriod(number string) (Period, bool) {
	m := invoiceNumberPeriod.FindStringSubmatch(number)
	if m == nil {
		return Period{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Period{}, false
	}
	return Period{Year: year, Month: time.Month(month)}, true
}
