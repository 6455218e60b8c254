package packing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/fabricplan/internal/apperr"
)

// orderSensitivePieces pack best in their given order: the two short pieces share
// row 0 above the big one. Sorted by size, the big piece takes row 0 alone and
// pushes the short pieces into a second row below it.
func orderSensitivePieces() []Piece {
	return []Piece{
		piece("A", "1.0", "0.5"),
		piece("B", "2.0", "2.0"),
		piece("C", "1.0", "0.6"),
	}
}

func TestPreview_PicksLowestWaste(t *testing.T) {
	out, err := NewSelector(nil).Preview(orderSensitivePieces(), rollParams())
	require.NoError(t, err)

	// OriginalOrder: 0.3 + 0.5 + 0.15 + 2.0 + 0.3 = 3.25 long, 9.75 - 5.1 waste.
	// AreaDesc and MaxDimensionDesc both end at 3.35 with 4.95 waste.
	assert.Equal(t, HeuristicOriginalOrder, out.Strategy)
	assert.True(t, out.UsedLength.Equal(d("3.25")), "used length %s", out.UsedLength)
	assert.True(t, out.WasteArea.Equal(d("4.65")), "waste %s", out.WasteArea)
	require.Len(t, out.Items, 3)
	assert.Equal(t, 0, out.Items[2].Row, "C joins row 0 beside A")
	assert.Equal(t, 2, out.RowCount)
}

func TestPreview_OriginalOrderWhenAlreadyBest(t *testing.T) {
	pieces := []Piece{piece("A", "1.0", "2.0"), piece("B", "1.0", "1.5")}
	out, err := NewSelector(nil).Preview(pieces, rollParams())
	require.NoError(t, err)
	assert.Equal(t, HeuristicOriginalOrder, out.Strategy)
	assert.True(t, out.WasteArea.Equal(d("4.3")))
}

func TestPreview_NeverRetrofitsRotation(t *testing.T) {
	pieces := []Piece{piece("A", "1.6", "1.2"), piece("B", "1.0", "0.6")}
	out, err := NewSelector(nil).Preview(pieces, rollParams())
	require.NoError(t, err)
	for _, it := range out.Items {
		assert.False(t, it.Rotated, "%s rotated", it.Barcode)
	}
}

func TestExplore_RanksAllStrategies(t *testing.T) {
	outcomes, err := NewSelector(nil).Explore(orderSensitivePieces(), rollParams())
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	seen := map[Strategy]Outcome{}
	for i, o := range outcomes {
		seen[o.Strategy] = o
		if i > 0 {
			assert.True(t, outcomes[i-1].UtilizationPct.GreaterThanOrEqual(o.UtilizationPct))
		}
	}
	assert.Contains(t, seen, StrategyStandard)
	assert.Contains(t, seen, StrategySizeBased)
	assert.Contains(t, seen, StrategyRotated)
	assert.Contains(t, seen, StrategyCutCorner)

	assert.Equal(t, seen[StrategySizeBased].Items, seen[StrategyCutCorner].Items)
}

func TestExplore_RotatedStrategyRetrofits(t *testing.T) {
	pieces := []Piece{piece("A", "1.6", "1.2"), piece("B", "1.0", "0.6")}
	outcomes, err := NewSelector(nil).Explore(pieces, rollParams())
	require.NoError(t, err)

	assert.Equal(t, StrategyRotated, outcomes[0].Strategy, "rotation keeps both pieces on one row")
	assert.Equal(t, 1, outcomes[0].RowCount)
}

func TestSelector_InvalidDimensionsReported(t *testing.T) {
	pieces := []Piece{
		piece("A", "1.0", "1.0"),
		piece("Z", "0", "1.0"),
		piece("N", "1.0", "-2"),
	}
	outcomes, err := NewSelector(nil).Explore(pieces, rollParams())
	require.NoError(t, err)

	for _, o := range outcomes {
		require.Len(t, o.Items, 1)
		assert.Equal(t, "A", o.Items[0].Barcode)
		require.Len(t, o.Excluded, 2)
		assert.Equal(t, ReasonInvalidDimensions, o.Excluded[0].Reason)
		assert.Equal(t, "Z", o.Excluded[0].Barcode)
		assert.Equal(t, "N", o.Excluded[1].Barcode)
	}
}

func TestSelector_InvalidInput(t *testing.T) {
	sel := NewSelector(nil)
	cases := []struct {
		name   string
		pieces []Piece
		params Params
	}{
		{"no pieces", nil, rollParams()},
		{"only invalid pieces", []Piece{piece("Z", "0", "0")}, rollParams()},
		{"zero roll width", []Piece{piece("A", "1", "1")}, Params{OuterSpacing: d("0.3"), InnerSpacing: d("0.15")}},
		{"zero outer spacing", []Piece{piece("A", "1", "1")}, Params{RollWidth: d("3"), InnerSpacing: d("0.15")}},
		{"negative inner spacing", []Piece{piece("A", "1", "1")}, Params{RollWidth: d("3"), OuterSpacing: d("0.3"), InnerSpacing: d("-1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sel.Explore(tc.pieces, tc.params)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
			_, err = sel.Preview(tc.pieces, tc.params)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestSelector_AllTooWideIsNotAnError(t *testing.T) {
	out, err := NewSelector(nil).Preview([]Piece{piece("X", "2.5", "2.5")}, rollParams())
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	require.Len(t, out.Excluded, 1)
	assert.Equal(t, ReasonTooWide, out.Excluded[0].Reason)
}

func TestSelector_ObserverSeesEveryAttempt(t *testing.T) {
	var mu sync.Mutex
	calls := map[Strategy]int{}
	sel := NewSelector(func(s Strategy, _ time.Duration, o *Outcome) {
		mu.Lock()
		defer mu.Unlock()
		calls[s]++
	})

	_, err := sel.Explore(orderSensitivePieces(), rollParams())
	require.NoError(t, err)
	_, err = sel.Preview(orderSensitivePieces(), rollParams())
	require.NoError(t, err)

	assert.Len(t, calls, 7)
	for s, n := range calls {
		assert.Equal(t, 1, n, "strategy %s", s)
	}
}

func TestSelector_StandardReportsToObserver(t *testing.T) {
	var seen []Strategy
	sel := NewSelector(func(s Strategy, _ time.Duration, _ *Outcome) {
		seen = append(seen, s)
	})

	pieces := append(orderSensitivePieces(), piece("Z", "0", "1.0"))
	out, err := sel.Standard(pieces, rollParams())
	require.NoError(t, err)

	assert.Equal(t, []Strategy{StrategyStandard}, seen)
	assert.Equal(t, StrategyStandard, out.Strategy)
	assert.Len(t, out.Items, 3)
	require.Len(t, out.Excluded, 1)
	assert.Equal(t, "Z", out.Excluded[0].Barcode)
	assert.Equal(t, ReasonInvalidDimensions, out.Excluded[0].Reason)
}

func TestSelector_StandardRejectsOnlyInvalidPieces(t *testing.T) {
	_, err := NewSelector(nil).Standard([]Piece{piece("Z", "0", "1.0")}, rollParams())
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestOrderings(t *testing.T) {
	pieces := []Piece{
		piece("A", "1.0", "1.0"),
		piece("B", "0.5", "3.0"),
		piece("C", "2.0", "1.0"),
		piece("D", "1.5", "1.0"),
	}
	barcodes := func(ps []Piece) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Barcode)
		}
		return out
	}

	assert.Equal(t, []string{"B", "C", "D", "A"}, barcodes(ByLengthThenWidth(pieces)))
	assert.Equal(t, []string{"C", "B", "D", "A"}, barcodes(ByArea(pieces)))
	assert.Equal(t, []string{"B", "C", "D", "A"}, barcodes(ByMaxDimension(pieces)))
	assert.Equal(t, []string{"A", "B", "C", "D"}, barcodes(pieces), "input untouched")
}
