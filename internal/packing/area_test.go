package packing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMeasure_Empty(t *testing.T) {
	m := Measure(nil, d("3.0"), d("0.3"))

	assert.True(t, m.UsedLength.Equal(d("0.3")))
	assert.True(t, m.TotalArea.Equal(d("0.9")))
	assert.True(t, m.WasteArea.Equal(d("0.9")))
	assert.True(t, m.UtilizationPct.IsZero())
}

func TestMeasure_UsesFurthestEdge(t *testing.T) {
	items := []PlacedItem{
		{Y: d("0.3"), Length: d("2.0"), Area: d("2.0")},
		{Y: d("2.45"), Length: d("0.5"), Area: d("0.5")},
		{Y: d("0.3"), Length: d("1.0"), Area: d("1.0")},
	}
	m := Measure(items, d("3.0"), d("0.3"))

	assert.True(t, m.UsedLength.Equal(d("3.25")))
	assert.True(t, m.UsedArea.Equal(d("3.5")))
	assert.True(t, m.TotalArea.Equal(d("9.75")))
	assert.True(t, m.WasteArea.Equal(d("6.25")))
}

func TestUtilization_ZeroTotal(t *testing.T) {
	assert.True(t, Utilization(d("1"), decimal.Zero).IsZero())
	assert.True(t, Utilization(d("1"), d("4")).Equal(d("25")))
}

func TestUsableWidth(t *testing.T) {
	assert.True(t, rollParams().UsableWidth().Equal(d("2.4")))
	narrow := Params{RollWidth: d("0.6"), OuterSpacing: d("0.3")}
	assert.True(t, narrow.UsableWidth().IsZero())
}
