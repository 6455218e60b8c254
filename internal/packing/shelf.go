package packing

import "github.com/shopspring/decimal"

// row is one shelf of the layout. Rows live in an arena slice indexed by
// creation order and placed items refer to them by index.
type row struct {
	y         decimal.Decimal
	height    decimal.Decimal
	cursor    decimal.Decimal
	remaining decimal.Decimal
	count     int
}

// Pack places pieces in the given order using first-fit shelf packing.
//
// A piece wider than the usable width is turned on its side when its length fits;
// if neither side fits it is excluded as too wide. Each piece goes into the first
// row with enough remaining width, whatever its age or height. With
// RotationAware set, a piece that fits no row is tried rotated against the open
// rows before a new row is started.
//
// Callers must drop pieces with non-positive dimensions before calling Pack.
func Pack(pieces []Piece, p Params) Outcome {
	usable := p.UsableWidth()
	out := Outcome{
		Items:    make([]PlacedItem, 0, len(pieces)),
		Excluded: []Excluded{},
	}
	var rows []row

	for _, pc := range pieces {
		width, length := pc.Width, pc.Length
		rotated := false

		if width.GreaterThan(usable) && length.LessThanOrEqual(usable) {
			width, length = length, width
			rotated = true
		}
		if width.GreaterThan(usable) {
			out.Excluded = append(out.Excluded, Excluded{
				Barcode: pc.Barcode,
				OrderNo: pc.OrderNo,
				Reason:  ReasonTooWide,
				Message: "width exceeds usable roll width",
			})
			continue
		}

		idx := firstFit(rows, width, p.InnerSpacing)
		if idx < 0 && p.RotationAware && !rotated && length.LessThanOrEqual(usable) {
			if i := firstFit(rows, length, p.InnerSpacing); i >= 0 {
				width, length = length, width
				rotated = true
				idx = i
			}
		}
		if idx < 0 {
			rows = append(rows, openRow(rows, usable, p.OuterSpacing, p.InnerSpacing))
			idx = len(rows) - 1
		}

		r := &rows[idx]
		x := r.cursor
		if r.count > 0 {
			x = x.Add(p.InnerSpacing)
		}

		out.Items = append(out.Items, PlacedItem{
			Barcode:   pc.Barcode,
			OrderNo:   pc.OrderNo,
			OrderKind: pc.OrderKind,
			X:         x,
			Y:         r.y,
			Width:     width,
			Length:    length,
			Area:      PieceArea(width, length),
			Rotated:   rotated,
			Row:       idx,
		})

		r.count++
		r.cursor = x.Add(width)
		r.remaining = usable.Sub(r.cursor.Sub(p.OuterSpacing))
		if length.GreaterThan(r.height) {
			r.height = length
		}
	}

	out.RowCount = len(rows)
	out.Metrics = Measure(out.Items, p.RollWidth, p.OuterSpacing)
	return out
}

// firstFit returns the index of the oldest row with room for width, or -1.
// Only remaining width is checked.
func firstFit(rows []row, width, innerSpacing decimal.Decimal) int {
	for i := range rows {
		r := &rows[i]
		need := width
		if r.count > 0 {
			need = need.Add(innerSpacing)
		}
		if r.remaining.LessThan(need) {
			continue
		}
		return i
	}
	return -1
}

func openRow(rows []row, usable, outerSpacing, innerSpacing decimal.Decimal) row {
	y := outerSpacing
	if n := len(rows); n > 0 {
		prev := rows[n-1]
		y = prev.y.Add(prev.height).Add(innerSpacing)
	}
	return row{
		y:         y,
		cursor:    outerSpacing,
		remaining: usable,
	}
}
