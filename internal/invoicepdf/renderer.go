// Package invoicepdf renders invoices as single or multi page US Letter PDF
// documents.
package invoicepdf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/abelcubano/main-project/internal/models"
)

// Document is everything printed on one invoice.
type Document struct {
	Invoice  *models.Invoice
	Items    []*models.InvoiceItem
	Customer *models.Customer
	// FallbackName is printed as the bill-to name when Customer is nil.
	FallbackName string
}

// Branding is the issuer block printed in the header and footer.
type Branding struct {
	Company      string
	Tagline      string
	Address      string
	Locality     string
	ContactLine  string
	PaymentTerms string
	BillingEmail string
}

// Renderer draws invoice documents.
type Renderer struct {
	branding Branding
	loc      *time.Location
	compress bool
}

// NewRenderer creates a renderer. Dates are printed in loc.
func NewRenderer(branding Branding, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{branding: branding, loc: loc, compress: true}
}

type rgb struct{ r, g, b int }

var (
	colorNavy    = rgb{30, 58, 95}
	colorSlate   = rgb{100, 116, 139}
	colorInk     = rgb{30, 41, 59}
	colorMuted   = rgb{71, 85, 105}
	colorFaint   = rgb{148, 163, 184}
	colorRule    = rgb{226, 232, 240}
	colorHeadBg  = rgb{241, 245, 249}
	colorPaid    = rgb{22, 163, 74}
	colorOverdue = rgb{220, 38, 38}
	colorPending = rgb{245, 158, 11}
)

func statusColor(status models.InvoiceStatus) rgb {
	switch status {
	case models.InvoiceStatusPaid:
		return colorPaid
	case models.InvoiceStatusPastDue, "overdue":
		return colorOverdue
	default:
		return colorPending
	}
}

type canvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (c *canvas) font(style string, size float64, col rgb) {
	c.pdf.SetFont("Helvetica", style, size)
	c.pdf.SetTextColor(col.r, col.g, col.b)
}

// text draws s with its top edge at y.
func (c *canvas) text(x, y, w float64, align, s string) {
	size, _ := c.pdf.GetFontSize()
	c.pdf.SetXY(x, y)
	c.pdf.CellFormat(w, size, c.tr(s), "", 0, align+"T", false, 0, "")
}

func (c *canvas) rule(y float64) {
	c.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	c.pdf.SetLineWidth(0.5)
	c.pdf.Line(marginLeft, y, marginRight, y)
}

// Render writes the PDF for doc to w and returns the number of pages.
// Output is byte-identical for identical input.
func (r *Renderer) Render(w io.Writer, doc Document) (int, error) {
	inv := doc.Invoice
	if inv == nil {
		return 0, errors.New("invoicepdf: document has no invoice")
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(marginLeft, pageTop, marginLeft)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)

	stamp := inv.CreatedAt
	if stamp.IsZero() {
		stamp = inv.IssueDate
	}
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.SetAuthor(r.branding.Company, true)
	pdf.SetCreator(r.branding.Company, true)

	c := &canvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()

	r.header(c, inv)
	billY := r.billTo(c, doc)
	tableTop := max(billY+20, minTableTop)
	r.tableHeader(c, tableTop)

	c.font("", 8, colorInk)
	wrapped := make([][]string, len(doc.Items))
	lineCounts := make([]int, len(doc.Items))
	for i, item := range doc.Items {
		wrapped[i] = pdf.SplitText(c.tr(item.Description), descColumnWidth)
		lineCounts[i] = len(wrapped[i])
	}

	plan := PlanRows(lineCounts, tableTop+26)
	page := 1
	for i, item := range doc.Items {
		slot := plan.Rows[i]
		for page < slot.Page {
			pdf.AddPage()
			page++
		}
		r.row(c, item, wrapped[i], slot)
	}

	hasTax := inv.Tax.IsPositive()
	totals := PlaceTotals(plan.EndY, hasTax)
	if totals.NewPage {
		pdf.AddPage()
	}
	r.totals(c, inv, totals, hasTax)
	r.footer(c, totals.FooterY)

	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("invoicepdf: %w", err)
	}
	return pdf.PageCount(), nil
}

func (r *Renderer) header(c *canvas, inv *models.Invoice) {
	c.font("B", 22, colorNavy)
	c.text(marginLeft, 50, 300, "L", r.branding.Company)
	c.font("", 8, colorSlate)
	c.text(marginLeft, 75, 300, "L", r.branding.Tagline)
	c.text(marginLeft, 86, 300, "L", r.branding.Address)
	c.text(marginLeft, 97, 300, "L", r.branding.ContactLine)

	c.font("B", 28, colorNavy)
	c.text(400, 50, marginRight-400, "R", "INVOICE")

	labels := []string{"Invoice #:", "Issue Date:", "Due Date:", "Status:"}
	c.font("", 8, colorSlate)
	for i, label := range labels {
		c.text(400, detailsY+float64(i)*12, 55, "R", label)
	}

	c.font("B", 8, colorInk)
	c.text(460, detailsY, 85, "L", inv.InvoiceNumber)
	c.text(460, detailsY+12, 85, "L", inv.IssueDate.In(r.loc).Format("1/2/2006"))
	c.text(460, detailsY+24, 85, "L", inv.DueDate.In(r.loc).Format("1/2/2006"))
	col := statusColor(inv.Status)
	c.pdf.SetTextColor(col.r, col.g, col.b)
	c.text(460, detailsY+36, 85, "L", strings.ToUpper(string(inv.Status)))

	c.rule(headerRuleY)
}

// billTo draws the recipient block and returns the y below it.
func (r *Renderer) billTo(c *canvas, doc Document) float64 {
	c.font("B", 8, colorSlate)
	c.text(marginLeft, billToLabelY, 200, "L", "BILL TO")

	name := doc.FallbackName
	if doc.Customer != nil && doc.Customer.Name != "" {
		name = doc.Customer.Name
	}
	c.font("B", 10, colorInk)
	c.text(marginLeft, billToNameY, 300, "L", name)

	c.font("", 8, colorMuted)
	y := billToLinesY
	cust := doc.Customer
	if cust == nil {
		return y
	}

	var lines []string
	if cust.ContactName != "" {
		lines = append(lines, "Attn: "+cust.ContactName)
	}
	if cust.Address != "" {
		lines = append(lines, cust.Address)
	}
	if cust.City != "" || cust.State != "" || cust.Zip != "" {
		lines = append(lines, cityLine(cust))
	}
	if cust.Email != "" {
		lines = append(lines, cust.Email)
	}
	if cust.Phone != "" {
		lines = append(lines, cust.Phone)
	}
	for _, line := range lines {
		c.text(marginLeft, y, 300, "L", line)
		y += billToLineH
	}
	return y
}

func cityLine(cust *models.Customer) string {
	s := cust.City
	if cust.City != "" && cust.State != "" {
		s += ", "
	}
	s += cust.State + " " + cust.Zip
	return strings.TrimSpace(s)
}

func (r *Renderer) tableHeader(c *canvas, top float64) {
	c.pdf.SetFillColor(colorHeadBg.r, colorHeadBg.g, colorHeadBg.b)
	c.pdf.Rect(marginLeft, top, marginRight-marginLeft, 20, "F")

	c.font("B", 7, colorMuted)
	c.text(55, top+6, descColumnWidth, "L", "DESCRIPTION")
	c.text(340, top+6, 40, "C", "QTY")
	c.text(385, top+6, 70, "R", "UNIT PRICE")
	c.text(460, top+6, 80, "R", "TOTAL")

	c.rule(top + 20)
}

func (r *Renderer) row(c *canvas, item *models.InvoiceItem, desc []string, slot RowSlot) {
	c.font("", 8, colorInk)
	for i, line := range desc {
		// line is already translated.
		c.pdf.SetXY(55, slot.Y+float64(i)*rowLineHeight)
		c.pdf.CellFormat(descColumnWidth, 8, line, "", 0, "LT", false, 0, "")
	}
	c.text(340, slot.Y, 40, "C", strconv.Itoa(item.Quantity))
	c.text(385, slot.Y, 70, "R", "$"+item.UnitPrice.StringFixed(2))
	c.text(460, slot.Y, 80, "R", "$"+item.Total.StringFixed(2))

	c.rule(slot.Y + slot.Height - 4)
}

func (r *Renderer) totals(c *canvas, inv *models.Invoice, p TotalsPlacement, hasTax bool) {
	c.font("", 8, colorSlate)
	c.text(385, p.TotalsY, 70, "R", "Subtotal:")
	c.pdf.SetTextColor(colorInk.r, colorInk.g, colorInk.b)
	c.text(460, p.TotalsY, 80, "R", "$"+inv.Subtotal.StringFixed(2))

	if hasTax {
		c.pdf.SetTextColor(colorSlate.r, colorSlate.g, colorSlate.b)
		c.text(385, p.TaxY, 70, "R", "Tax:")
		c.pdf.SetTextColor(colorInk.r, colorInk.g, colorInk.b)
		c.text(460, p.TaxY, 80, "R", "$"+inv.Tax.StringFixed(2))
	}

	c.rule(p.TotalLineY)
	c.font("B", 11, colorNavy)
	c.text(385, p.TotalLineY+6, 70, "R", "Total Due:")
	c.text(460, p.TotalLineY+6, 80, "R", "$"+inv.Total.StringFixed(2))
}

func (r *Renderer) footer(c *canvas, y float64) {
	c.rule(y)
	c.font("B", 7, colorSlate)
	c.text(marginLeft, y+8, 300, "L", "PAYMENT TERMS")

	c.font("", 7, colorMuted)
	c.text(marginLeft, y+20, marginRight-marginLeft, "L", r.branding.PaymentTerms)
	if r.branding.BillingEmail != "" {
		c.text(marginLeft, y+32, marginRight-marginLeft, "L", "For questions about this invoice, please contact "+r.branding.BillingEmail)
	}

	parts := []string{r.branding.Company}
	for _, p := range []string{r.branding.Tagline, r.branding.Locality} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	c.font("", 6, colorFaint)
	c.text(marginLeft, companyLineY, 512, "C", strings.Join(parts, "  |  "))
}
