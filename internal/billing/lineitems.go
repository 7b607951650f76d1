package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abelcubano/main-project/internal/models"
)

// LineItems is the monetary content of an invoice before it is persisted.
type LineItems struct {
	Items    []*models.InvoiceItem
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Materialize builds one line item per service, each a snapshot of the
// service's current monthly price, and sums them exactly. Tax is always zero.
func Materialize(services []*models.Service) LineItems {
	li := LineItems{
		Items:    make([]*models.InvoiceItem, 0, len(services)),
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
	}
	for _, svc := range services {
		serviceID := svc.ID
		li.Items = append(li.Items, &models.InvoiceItem{
			ServiceID:   &serviceID,
			Description: Describe(svc),
			Quantity:    1,
			UnitPrice:   svc.MonthlyPrice,
			Total:       svc.MonthlyPrice,
		})
		li.Subtotal = li.Subtotal.Add(svc.MonthlyPrice)
	}
	li.Total = li.Subtotal.Add(li.Tax)
	return li
}

// Describe returns the invoice line description of a service.
func Describe(svc *models.Service) string {
	return fmt.Sprintf("%s - %s (%s)", svc.Name, svc.Type, svc.Location)
}

// FormatAmount formats a monetary value with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
