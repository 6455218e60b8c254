package packing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"golang.org/x/sync/errgroup"
)

// Strategy names an ordering/rotation combination the selector can run.
type Strategy string

// Exploration strategies, reported to the caller as a ranked set.
const (
	StrategyStandard  Strategy = "Standard"
	StrategySizeBased Strategy = "SizeBased"
	StrategyRotated   Strategy = "Rotated"
	// StrategyCutCorner currently packs exactly like SizeBased. It is kept as its
	// own name so stored option sets stay comparable once it diverges.
	StrategyCutCorner Strategy = "CutCorner"
)

// Preview heuristics; the one with the least waste wins.
const (
	HeuristicOriginalOrder    Strategy = "OriginalOrder"
	HeuristicAreaDesc         Strategy = "AreaDesc"
	HeuristicMaxDimensionDesc Strategy = "MaxDimensionDesc"
)

type attempt struct {
	strategy      Strategy
	order         func([]Piece) []Piece
	rotationAware bool
}

var explorationAttempts = []attempt{
	{strategy: StrategyStandard, order: ByLengthThenWidth},
	{strategy: StrategySizeBased, order: ByArea},
	{strategy: StrategyRotated, order: ByLengthThenWidth, rotationAware: true},
	{strategy: StrategyCutCorner, order: ByArea},
}

var previewAttempts = []attempt{
	{strategy: HeuristicOriginalOrder, order: Unsorted},
	{strategy: HeuristicAreaDesc, order: ByArea},
	{strategy: HeuristicMaxDimensionDesc, order: ByMaxDimension},
}

// Observer is notified after every packing attempt.
type Observer func(strategy Strategy, elapsed time.Duration, outcome *Outcome)

// Selector runs the packer under several strategies. The zero value is ready to use.
type Selector struct {
	observe Observer
}

// NewSelector returns a Selector reporting each attempt to obs, which may be nil.
// Attempts run concurrently, so obs must be safe for concurrent use.
func NewSelector(obs Observer) *Selector {
	return &Selector{observe: obs}
}

// ValidateParams rejects a non-positive roll width or spacing.
func ValidateParams(p Params) error {
	if !p.RollWidth.IsPositive() {
		return apperr.Invalid("roll width must be greater than 0")
	}
	if !p.OuterSpacing.IsPositive() {
		return apperr.Invalid("outer spacing must be greater than 0")
	}
	if !p.InnerSpacing.IsPositive() {
		return apperr.Invalid("inner spacing must be greater than 0")
	}
	return nil
}

// Partition separates pieces with a non-positive width or length. Those pieces
// never reach the packer.
func Partition(pieces []Piece) (valid []Piece, excluded []Excluded) {
	valid = make([]Piece, 0, len(pieces))
	excluded = []Excluded{}
	for _, pc := range pieces {
		if !pc.Width.IsPositive() || !pc.Length.IsPositive() {
			excluded = append(excluded, Excluded{
				Barcode: pc.Barcode,
				OrderNo: pc.OrderNo,
				Reason:  ReasonInvalidDimensions,
				Message: "width or length <= 0",
			})
			continue
		}
		valid = append(valid, pc)
	}
	return valid, excluded
}

// Explore runs the four exploration strategies and returns every outcome sorted
// by utilization, highest first. Equal utilizations keep strategy order.
func (s *Selector) Explore(pieces []Piece, p Params) ([]Outcome, error) {
	outcomes, err := s.run(explorationAttempts, pieces, p)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].UtilizationPct.GreaterThan(outcomes[j].UtilizationPct)
	})
	return outcomes, nil
}

// Preview runs the three preview heuristics without rotation retrofit and returns
// the outcome with the lowest waste area. Ties go to the earlier heuristic.
func (s *Selector) Preview(pieces []Piece, p Params) (Outcome, error) {
	outcomes, err := s.run(previewAttempts, pieces, p)
	if err != nil {
		return Outcome{}, err
	}
	best := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.WasteArea.LessThan(best.WasteArea) {
			best = o
		}
	}
	return best, nil
}

// Standard runs the Standard exploration strategy alone. Pieces with
// non-positive dimensions are reported as excluded rather than packed.
func (s *Selector) Standard(pieces []Piece, p Params) (Outcome, error) {
	outcomes, err := s.run(explorationAttempts[:1], pieces, p)
	if err != nil {
		return Outcome{}, err
	}
	return outcomes[0], nil
}

func (s *Selector) run(attempts []attempt, pieces []Piece, p Params) ([]Outcome, error) {
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, apperr.Invalid("no pieces to pack")
	}
	valid, invalid := Partition(pieces)
	if len(valid) == 0 {
		return nil, apperr.Invalid("no valid pieces with positive width and length")
	}

	outcomes := make([]Outcome, len(attempts))
	var g errgroup.Group
	for i, a := range attempts {
		i, a := i, a
		g.Go(func() error {
			params := p
			params.RotationAware = a.rotationAware

			start := time.Now()
			o := Pack(a.order(valid), params)
			o.Strategy = a.strategy
			o.Excluded = append(append([]Excluded{}, invalid...), o.Excluded...)
			if s != nil && s.observe != nil {
				s.observe(a.strategy, time.Since(start), &o)
			}
			outcomes[i] = o
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// Unsorted returns a copy of pieces in their original order.
func Unsorted(pieces []Piece) []Piece {
	return append([]Piece(nil), pieces...)
}

// ByLengthThenWidth orders pieces by length, then width, both descending.
func ByLengthThenWidth(pieces []Piece) []Piece {
	out := Unsorted(pieces)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Length.Cmp(out[j].Length); c != 0 {
			return c > 0
		}
		return out[i].Width.GreaterThan(out[j].Width)
	})
	return out
}

// ByArea orders pieces by width × length, descending.
func ByArea(pieces []Piece) []Piece {
	out := Unsorted(pieces)
	sort.SliceStable(out, func(i, j int) bool {
		return PieceArea(out[i].Width, out[i].Length).GreaterThan(PieceArea(out[j].Width, out[j].Length))
	})
	return out
}

// ByMaxDimension orders pieces by their longer side, descending.
func ByMaxDimension(pieces []Piece) []Piece {
	out := Unsorted(pieces)
	sort.SliceStable(out, func(i, j int) bool {
		return decimal.Max(out[i].Width, out[i].Length).GreaterThan(decimal.Max(out[j].Width, out[j].Length))
	})
	return out
}
