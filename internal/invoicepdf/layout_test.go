package invoicepdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ones(n int) []int {
	counts := make([]int, n)
	for i := range counts {
		counts[i] = 1
	}
	return counts
}

func TestPlanRows(t *testing.T) {
	t.Run("fits on first page", func(t *testing.T) {
		plan := PlanRows(ones(3), 266)

		require.Len(t, plan.Rows, 3)
		assert.Equal(t, 1, plan.Pages)
		assert.Equal(t, RowSlot{Page: 1, Y: 266, Height: 18}, plan.Rows[0])
		assert.Equal(t, RowSlot{Page: 1, Y: 302, Height: 18}, plan.Rows[2])
		assert.Equal(t, 320.0, plan.EndY)
	})

	t.Run("breaks after row limit", func(t *testing.T) {
		plan := PlanRows(ones(40), 266)

		assert.Equal(t, 2, plan.Pages)
		// 266 + 23*18 = 680 is still on page 1, 698 is not.
		assert.Equal(t, RowSlot{Page: 1, Y: 680, Height: 18}, plan.Rows[23])
		assert.Equal(t, RowSlot{Page: 2, Y: pageTop, Height: 18}, plan.Rows[24])
		assert.Equal(t, RowSlot{Page: 2, Y: pageTop + 18, Height: 18}, plan.Rows[25])
		assert.Equal(t, pageTop+16*18, plan.EndY)
	})

	t.Run("wrapped row grows", func(t *testing.T) {
		plan := PlanRows([]int{3, 1}, 266)

		assert.Equal(t, 38.0, plan.Rows[0].Height)
		assert.Equal(t, 304.0, plan.Rows[1].Y)
	})

	t.Run("tall row moves to next page instead of overflowing", func(t *testing.T) {
		plan := PlanRows([]int{6}, 680)

		assert.Equal(t, 2, plan.Pages)
		assert.Equal(t, RowSlot{Page: 2, Y: pageTop, Height: 68}, plan.Rows[0])
	})

	t.Run("empty", func(t *testing.T) {
		plan := PlanRows(nil, 266)

		assert.Empty(t, plan.Rows)
		assert.Equal(t, 1, plan.Pages)
		assert.Equal(t, 266.0, plan.EndY)
	})
}

func TestPlaceTotals(t *testing.T) {
	t.Run("without tax", func(t *testing.T) {
		p := PlaceTotals(320, false)

		assert.False(t, p.NewPage)
		assert.Equal(t, 330.0, p.TotalsY)
		assert.Equal(t, 344.0, p.TotalLineY)
		assert.Equal(t, 394.0, p.FooterY)
	})

	t.Run("with tax", func(t *testing.T) {
		p := PlaceTotals(320, true)

		assert.Equal(t, 344.0, p.TaxY)
		assert.Equal(t, 358.0, p.TotalLineY)
	})

	t.Run("footer is capped", func(t *testing.T) {
		p := PlaceTotals(640, false)

		assert.False(t, p.NewPage)
		assert.Equal(t, footerTopY, p.FooterY)
	})

	t.Run("moves to a new page near the bottom", func(t *testing.T) {
		p := PlaceTotals(698, true)

		assert.True(t, p.NewPage)
		assert.Equal(t, pageTop+10, p.TotalsY)
	})
}
