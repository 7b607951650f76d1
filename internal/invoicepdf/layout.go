package invoicepdf

// Coordinates are in points on a US Letter page (612 x 792).
const (
	marginLeft  = 50.0
	marginRight = 545.0
	pageTop     = 50.0

	detailsY     = 85.0
	headerRuleY  = 130.0
	billToLabelY = 145.0
	billToNameY  = 160.0
	billToLinesY = 174.0
	billToLineH  = 12.0
	minTableTop  = 240.0

	rowHeight     = 18.0
	rowLineHeight = 10.0
	rowLimitY     = 680.0
	rowBottomY    = 730.0

	descColumnWidth = 280.0

	footerTopY   = 700.0
	companyLineY = 740.0
)

// RowSlot is where one item row is drawn.
type RowSlot struct {
	Page   int
	Y      float64
	Height float64
}

// RowPlan is the pagination of the items table.
type RowPlan struct {
	Rows []RowSlot
	// Pages is the number of pages the rows span, starting at 1.
	Pages int
	// EndY is the y position below the last row on the last page.
	EndY float64
}

// rowHeightFor returns the height of a row whose description wraps to lines
// lines.
func rowHeightFor(lines int) float64 {
	if lines < 1 {
		lines = 1
	}
	return rowHeight + float64(lines-1)*rowLineHeight
}

// PlanRows lays out rows starting at startY on page 1. lineCounts holds the
// number of wrapped description lines for each row. A row starts a new page
// when its top would be below rowLimitY or its bottom would run past
// rowBottomY.
func PlanRows(lineCounts []int, startY float64) RowPlan {
	plan := RowPlan{Rows: make([]RowSlot, 0, len(lineCounts)), Pages: 1, EndY: startY}
	y := startY
	for _, lines := range lineCounts {
		h := rowHeightFor(lines)
		if y > rowLimitY || (y+h > rowBottomY && y > pageTop) {
			plan.Pages++
			y = pageTop
		}
		plan.Rows = append(plan.Rows, RowSlot{Page: plan.Pages, Y: y, Height: h})
		y += h
	}
	plan.EndY = y
	return plan
}

// TotalsPlacement positions the totals block and the payment terms footer.
type TotalsPlacement struct {
	NewPage    bool
	TotalsY    float64
	TaxY       float64
	TotalLineY float64
	FooterY    float64
}

// PlaceTotals positions the totals below endY, moving them to a fresh page
// when the "Total Due" line would reach the footer zone.
func PlaceTotals(endY float64, hasTax bool) TotalsPlacement {
	p := place(endY, hasTax)
	if p.TotalLineY+20 > footerTopY {
		p = place(pageTop, hasTax)
		p.NewPage = true
	}
	return p
}

func place(endY float64, hasTax bool) TotalsPlacement {
	p := TotalsPlacement{TotalsY: endY + 10}
	p.TotalLineY = p.TotalsY + 14
	if hasTax {
		p.TaxY = p.TotalsY + 14
		p.TotalLineY = p.TotalsY + 28
	}
	p.FooterY = min(p.TotalLineY+50, footerTopY)
	return p
}
