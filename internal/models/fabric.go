package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/packing"
)

// Order kinds as delivered by the source system
const (
	OrderKindOrder  = "Order"
	OrderKindSample = "Sample"
)

// FabricType describes a roll material. ID is the source system's conversion code.
type FabricType struct {
	ID          string          `gorm:"primaryKey;type:varchar(50)" json:"id"`
	Description string          `gorm:"type:varchar(255)" json:"description"`
	RollWidth   decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"roll_width_m"`
	Thickness   decimal.Decimal `gorm:"type:numeric(12,4)" json:"thickness"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for FabricType model
func (FabricType) TableName() string {
	return "fabric_types"
}

// FabricPiece is a pre-cut piece identified by its barcode. Pieces are written by
// the ingestion side; planning only reads them and sets LayoutID.
type FabricPiece struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	BarcodeNo    string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"barcode_no"`
	OrderNo      string          `gorm:"type:varchar(50);index;not null" json:"order_no"`
	ListNo       *int            `json:"list_no,omitempty"`
	ItemNo       *int            `json:"item_no,omitempty"`
	FabricTypeID string          `gorm:"type:varchar(50);index;not null" json:"fabric_type_id"`
	FabricDesc   string          `gorm:"type:varchar(255)" json:"fabric_desc"`
	Width        decimal.Decimal `gorm:"type:numeric(12,4)" json:"width"`
	Length       decimal.Decimal `gorm:"type:numeric(12,4)" json:"length"`
	Sqm          decimal.Decimal `gorm:"type:numeric(12,4)" json:"sqm"`
	Qty          *int            `json:"qty,omitempty"`
	OrderType    string          `gorm:"type:varchar(20);index;not null" json:"order_type"`
	SyncedAt     time.Time       `json:"synced_at"`
	LayoutID     *uint           `gorm:"index" json:"layout_id,omitempty"`
}

// TableName specifies the table name for FabricPiece model
func (FabricPiece) TableName() string {
	return "fabric_pieces"
}

// ToPiece converts the record into packer input.
func (f FabricPiece) ToPiece() packing.Piece {
	return packing.Piece{
		Barcode:      f.BarcodeNo,
		OrderNo:      f.OrderNo,
		OrderKind:    f.OrderType,
		FabricTypeID: f.FabricTypeID,
		Width:        f.Width,
		Length:       f.Length,
		Area:         f.Sqm,
	}
}

// ToPieces converts a slice of records, keeping their order.
func ToPieces(records []FabricPiece) []packing.Piece {
	out := make([]packing.Piece, len(records))
	for i, r := range records {
		out[i] = r.ToPiece()
	}
	return out
}

// OrderSummary aggregates the pieces of one order.
type OrderSummary struct {
	OrderNo      string          `json:"order_no"`
	OrderType    string          `json:"order_type"`
	FabricTypeID string          `json:"fabric_type_id"`
	PieceCount   int             `json:"piece_count"`
	TotalAreaSqm decimal.Decimal `json:"total_area_sqm"`
}
