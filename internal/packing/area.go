package packing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Metrics summarises how much of the roll a layout consumes.
type Metrics struct {
	RollWidth      decimal.Decimal `json:"roll_width_m"`
	UsedLength     decimal.Decimal `json:"used_length_m"`
	UsedArea       decimal.Decimal `json:"used_area_sqm"`
	TotalArea      decimal.Decimal `json:"total_area_sqm"`
	WasteArea      decimal.Decimal `json:"waste_area_sqm"`
	UtilizationPct decimal.Decimal `json:"utilization_pct"`
}

// PieceArea returns width × length.
func PieceArea(width, length decimal.Decimal) decimal.Decimal {
	return width.Mul(length)
}

// UsedLength is the furthest placed edge plus the trailing outer margin, or just
// the margin when nothing was placed.
func UsedLength(items []PlacedItem, outerSpacing decimal.Decimal) decimal.Decimal {
	if len(items) == 0 {
		return outerSpacing
	}
	far := items[0].Y.Add(items[0].Length)
	for _, it := range items[1:] {
		if edge := it.Y.Add(it.Length); edge.GreaterThan(far) {
			far = edge
		}
	}
	return far.Add(outerSpacing)
}

// UsedArea sums the area of every placed item.
func UsedArea(items []PlacedItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Area)
	}
	return sum
}

// Utilization returns used/total as a percentage, or zero when total is not positive.
func Utilization(used, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return used.Div(total).Mul(hundred)
}

// Measure computes the full metric set for a list of placed items.
func Measure(items []PlacedItem, rollWidth, outerSpacing decimal.Decimal) Metrics {
	usedLength := UsedLength(items, outerSpacing)
	usedArea := UsedArea(items)
	totalArea := rollWidth.Mul(usedLength)
	return Metrics{
		RollWidth:      rollWidth,
		UsedLength:     usedLength,
		UsedArea:       usedArea,
		TotalArea:      totalArea,
		WasteArea:      totalArea.Sub(usedArea),
		UtilizationPct: Utilization(usedArea, totalArea),
	}
}
