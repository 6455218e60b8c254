package packing

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func piece(barcode, width, length string) Piece {
	w, l := d(width), d(length)
	return Piece{
		Barcode:   barcode,
		OrderNo:   "ORD-" + barcode,
		OrderKind: "Order",
		Width:     w,
		Length:    l,
		Area:      w.Mul(l),
	}
}

func rollParams() Params {
	return Params{RollWidth: d("3.0"), OuterSpacing: d("0.3"), InnerSpacing: d("0.15")}
}

func TestPack_TwoPiecesShareFirstRow(t *testing.T) {
	out := Pack([]Piece{piece("A", "1.0", "2.0"), piece("B", "1.0", "1.5")}, rollParams())

	require.Len(t, out.Items, 2)
	assert.Empty(t, out.Excluded)
	assert.Equal(t, 1, out.RowCount)

	a, b := out.Items[0], out.Items[1]
	assert.True(t, a.X.Equal(d("0.3")), "first item starts at outer spacing, got %s", a.X)
	assert.True(t, a.Y.Equal(d("0.3")))
	assert.True(t, b.X.Equal(d("1.45")), "second item is offset by inner spacing, got %s", b.X)
	assert.True(t, b.Y.Equal(a.Y))

	assert.True(t, out.UsedLength.Equal(d("2.6")), "used length %s", out.UsedLength)
	assert.True(t, out.UsedArea.Equal(d("3.5")))
	assert.True(t, out.TotalArea.Equal(d("7.8")))
	assert.True(t, out.WasteArea.Equal(d("4.3")))
	assert.Equal(t, "44.87", out.UtilizationPct.StringFixed(2))
}

func TestPack_ForceRotatesTooWidePiece(t *testing.T) {
	out := Pack([]Piece{piece("W", "2.5", "1.0")}, rollParams())

	require.Len(t, out.Items, 1)
	it := out.Items[0]
	assert.True(t, it.Rotated)
	assert.True(t, it.Width.Equal(d("1.0")))
	assert.True(t, it.Length.Equal(d("2.5")))
}

func TestPack_ExcludesPieceWiderThanRollBothWays(t *testing.T) {
	out := Pack([]Piece{piece("X", "2.5", "2.6"), piece("A", "1.0", "1.0")}, rollParams())

	require.Len(t, out.Items, 1)
	assert.Equal(t, "A", out.Items[0].Barcode)
	require.Len(t, out.Excluded, 1)
	assert.Equal(t, "X", out.Excluded[0].Barcode)
	assert.Equal(t, ReasonTooWide, out.Excluded[0].Reason)
}

func TestPack_NarrowRollExcludesEverything(t *testing.T) {
	p := Params{RollWidth: d("0.5"), OuterSpacing: d("0.3"), InnerSpacing: d("0.15")}
	out := Pack([]Piece{piece("A", "0.1", "0.1"), piece("B", "1", "1")}, p)

	assert.Empty(t, out.Items)
	assert.Len(t, out.Excluded, 2)
	assert.True(t, out.UsedLength.Equal(d("0.3")))
	assert.True(t, out.UsedArea.IsZero())
	assert.True(t, out.UtilizationPct.IsZero())
}

func TestPack_OpensNewRowBelowLast(t *testing.T) {
	pieces := []Piece{
		piece("A", "1.5", "2.0"),
		piece("B", "1.5", "1.0"),
	}
	out := Pack(pieces, rollParams())

	require.Len(t, out.Items, 2)
	assert.Equal(t, 2, out.RowCount)
	second := out.Items[1]
	assert.Equal(t, 1, second.Row)
	assert.True(t, second.X.Equal(d("0.3")))
	// 0.3 + 2.0 + 0.15
	assert.True(t, second.Y.Equal(d("2.45")), "second row y %s", second.Y)
	assert.True(t, out.UsedLength.Equal(d("3.75")))
}

func TestPack_FirstFitPrefersOldestRow(t *testing.T) {
	pieces := []Piece{
		piece("A", "1.5", "2.0"), // row 0, 0.9 left
		piece("B", "2.0", "1.0"), // row 1, 0.4 left
		piece("C", "0.2", "0.8"), // 0.35 needed, fits both rows
	}
	out := Pack(pieces, rollParams())

	require.Len(t, out.Items, 3)
	assert.Equal(t, 0, out.Items[2].Row)
	assert.True(t, out.Items[2].X.Equal(d("1.95")))
}

func TestPack_LaterTallerPieceReturnsToFirstRow(t *testing.T) {
	pieces := []Piece{
		piece("A", "1.0", "1.0"), // row 0, 1.4 left
		piece("B", "2.0", "1.0"), // 2.15 needed, opens row 1 at y=1.45
		piece("C", "1.0", "2.0"), // 1.15 needed, fits row 0 by width
	}
	out := Pack(pieces, rollParams())

	require.Len(t, out.Items, 3)
	assert.Equal(t, 2, out.RowCount)
	c := out.Items[2]
	assert.Equal(t, 0, c.Row)
	assert.True(t, c.X.Equal(d("1.45")), "x %s", c.X)
	assert.True(t, c.Y.Equal(d("0.3")), "y %s", c.Y)
	assert.True(t, out.Items[1].Y.Equal(d("1.45")))
	// furthest edge is row 1 (1.45 + 1.0), not the taller piece in row 0 (0.3 + 2.0)
	assert.True(t, out.UsedLength.Equal(d("2.75")), "used length %s", out.UsedLength)
	assertNoOverlap(t, out, d("0.15"))
}

func TestPack_RotationRetrofitUsesOpenRow(t *testing.T) {
	pieces := []Piece{
		piece("A", "1.6", "1.2"), // row 0, 0.8 left
		piece("B", "1.0", "0.6"), // 1.15 needed unrotated, 0.75 rotated
	}

	plain := Pack(pieces, rollParams())
	assert.Equal(t, 2, plain.RowCount)
	assert.False(t, plain.Items[1].Rotated)

	p := rollParams()
	p.RotationAware = true
	rotated := Pack(pieces, p)
	require.Len(t, rotated.Items, 2)
	assert.Equal(t, 1, rotated.RowCount)
	b := rotated.Items[1]
	assert.True(t, b.Rotated)
	assert.True(t, b.Width.Equal(d("0.6")))
	assert.True(t, b.Length.Equal(d("1.0")))
	assert.Equal(t, 0, b.Row)
}

func TestPack_RotationNeverUsedToOpenRow(t *testing.T) {
	p := rollParams()
	p.RotationAware = true
	out := Pack([]Piece{piece("A", "2.0", "1.0")}, p)

	require.Len(t, out.Items, 1)
	assert.False(t, out.Items[0].Rotated)
}

func TestPack_Deterministic(t *testing.T) {
	var pieces []Piece
	for i := 0; i < 40; i++ {
		w := decimal.NewFromInt(int64(i%7 + 2)).Div(decimal.NewFromInt(5))
		l := decimal.NewFromInt(int64(i%5 + 1)).Div(decimal.NewFromInt(3))
		pieces = append(pieces, Piece{Barcode: fmt.Sprintf("P%02d", i), Width: w, Length: l, Area: w.Mul(l)})
	}
	p := rollParams()
	p.RotationAware = true

	first, err := json.Marshal(Pack(pieces, p))
	require.NoError(t, err)
	second, err := json.Marshal(Pack(pieces, p))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestPack_Invariants(t *testing.T) {
	var pieces []Piece
	for i := 0; i < 60; i++ {
		w := decimal.NewFromInt(int64((i*7)%23 + 1)).Div(decimal.NewFromInt(10))
		l := decimal.NewFromInt(int64((i*11)%19 + 1)).Div(decimal.NewFromInt(10))
		pieces = append(pieces, Piece{Barcode: fmt.Sprintf("P%02d", i), Width: w, Length: l, Area: w.Mul(l)})
	}

	for _, rot := range []bool{false, true} {
		p := rollParams()
		p.RotationAware = rot
		out := Pack(pieces, p)

		assert.Equal(t, len(pieces), len(out.Items)+len(out.Excluded))
		assert.True(t, out.UsedArea.LessThanOrEqual(out.TotalArea))
		assert.True(t, out.WasteArea.Equal(out.TotalArea.Sub(out.UsedArea)))
		assert.False(t, out.WasteArea.IsNegative())

		right := p.RollWidth.Sub(p.OuterSpacing)
		for _, it := range out.Items {
			assert.True(t, it.X.GreaterThanOrEqual(p.OuterSpacing), "%s left of margin", it.Barcode)
			assert.True(t, it.X.Add(it.Width).LessThanOrEqual(right), "%s past right margin", it.Barcode)
		}
		assertNoOverlap(t, out, p.InnerSpacing)
	}
}

func assertNoOverlap(t *testing.T, out Outcome, gap decimal.Decimal) {
	t.Helper()
	rowY := map[int]decimal.Decimal{}
	for i, a := range out.Items {
		if y, ok := rowY[a.Row]; ok {
			assert.True(t, y.Equal(a.Y), "row %d items must share Y", a.Row)
		} else {
			rowY[a.Row] = a.Y
		}
		for _, b := range out.Items[i+1:] {
			if a.Row != b.Row {
				continue
			}
			apart := a.X.Add(a.Width).Add(gap).LessThanOrEqual(b.X) || b.X.Add(b.Width).Add(gap).LessThanOrEqual(a.X)
			assert.True(t, apart, "%s and %s overlap in row %d", a.Barcode, b.Barcode, a.Row)
		}
	}
}
