// Package packing arranges rectangular fabric pieces onto a roll of fixed width.
//
// The packer is a deterministic first-fit shelf heuristic: pieces are placed left to
// right into rows, and a new row is opened below the last one when nothing fits.
// StrategySelector runs the packer under several piece orderings and picks a result.
// Everything in this package is pure computation with no I/O.
package packing

import "github.com/shopspring/decimal"

// Piece is a rectangular input to the packer. Pieces are never mutated.
type Piece struct {
	Barcode      string          `json:"barcode_no"`
	OrderNo      string          `json:"order_no"`
	OrderKind    string          `json:"order_type"`
	FabricTypeID string          `json:"fabric_type_id,omitempty"`
	Width        decimal.Decimal `json:"width"`
	Length       decimal.Decimal `json:"length"`
	Area         decimal.Decimal `json:"area_sqm"`
}

// PlacedItem is a piece positioned on the roll. Width and Length are the
// dimensions after any rotation; X/Y is the top-left corner.
type PlacedItem struct {
	Barcode   string          `json:"barcode_no"`
	OrderNo   string          `json:"order_no"`
	OrderKind string          `json:"order_type"`
	X         decimal.Decimal `json:"x_position"`
	Y         decimal.Decimal `json:"y_position"`
	Width     decimal.Decimal `json:"width"`
	Length    decimal.Decimal `json:"length"`
	Area      decimal.Decimal `json:"area_sqm"`
	Rotated   bool            `json:"is_rotated"`
	Row       int             `json:"row"`
}

// Reason explains why a piece was left out of a layout.
type Reason string

const (
	ReasonInvalidDimensions Reason = "invalid dimensions"
	ReasonTooWide           Reason = "too wide"
)

// Excluded records a piece that could not be placed.
type Excluded struct {
	Barcode string `json:"barcode_no"`
	OrderNo string `json:"order_no,omitempty"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Params describes the roll and the spacing rules for one packing run.
type Params struct {
	RollWidth     decimal.Decimal `json:"roll_width_m"`
	OuterSpacing  decimal.Decimal `json:"outer_spacing"`
	InnerSpacing  decimal.Decimal `json:"inner_spacing"`
	RotationAware bool            `json:"rotation_aware"`
}

var two = decimal.NewFromInt(2)

// UsableWidth is the roll width minus the outer margin on both edges. It can be
// zero or negative for very narrow rolls.
func (p Params) UsableWidth() decimal.Decimal {
	return p.RollWidth.Sub(p.OuterSpacing.Mul(two))
}

// Outcome is one complete packing result.
type Outcome struct {
	Strategy Strategy     `json:"strategy,omitempty"`
	Items    []PlacedItem `json:"items"`
	Excluded []Excluded   `json:"excluded"`
	RowCount int          `json:"row_count"`
	Metrics
}

// PieceCount returns the number of placed pieces.
func (o Outcome) PieceCount() int {
	return len(o.Items)
}
