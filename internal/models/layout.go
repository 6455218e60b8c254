package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LayoutStatus defines the lifecycle of a persisted layout
type LayoutStatus string

const (
	LayoutStatusPending    LayoutStatus = "Pending"
	LayoutStatusCalculated LayoutStatus = "Calculated"
)

// Layout is a persisted packing result. Pieces placed on it carry its ID in
// fabric_pieces.layout_id. PlanID is set when the layout was derived from a plan.
type Layout struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"column:layout_name;type:varchar(100);not null" json:"layout_name"`
	PlanID          *uint           `gorm:"index" json:"plan_id,omitempty"`
	Strategy        string          `gorm:"type:varchar(30)" json:"strategy"`
	TotalWidth      decimal.Decimal `gorm:"type:numeric(12,4)" json:"total_width"`
	TotalLength     decimal.Decimal `gorm:"type:numeric(12,4)" json:"total_length"`
	TotalAreaSqm    decimal.Decimal `gorm:"type:numeric(14,4)" json:"total_area_sqm"`
	UsedAreaSqm     decimal.Decimal `gorm:"type:numeric(14,4)" json:"used_area_sqm"`
	WasteAreaSqm    decimal.Decimal `gorm:"type:numeric(14,4)" json:"waste_area_sqm"`
	WastePercentage decimal.Decimal `gorm:"type:numeric(7,4)" json:"waste_percentage"`
	OuterSpacing    decimal.Decimal `gorm:"type:numeric(12,4)" json:"outer_spacing"`
	InnerSpacing    decimal.Decimal `gorm:"type:numeric(12,4)" json:"inner_spacing"`
	PieceCount      int             `json:"piece_count"`
	OrderCount      int             `json:"order_count"`
	SampleCount     int             `json:"sample_count"`
	Status          LayoutStatus    `gorm:"type:varchar(20);default:Pending;index" json:"status"`
	Excluded        datatypes.JSON  `json:"excluded"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	CalculatedAt    *time.Time      `json:"calculated_at,omitempty"`

	Items []LayoutItem `gorm:"foreignKey:LayoutID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName specifies the table name for Layout model
func (Layout) TableName() string {
	return "layouts"
}

// LayoutItem is one placed piece of a layout
type LayoutItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	LayoutID  uint            `gorm:"uniqueIndex:ix_layout_items_layout_barcode;not null" json:"layout_id"`
	BarcodeNo string          `gorm:"type:varchar(100);uniqueIndex:ix_layout_items_layout_barcode;index;not null" json:"barcode_no"`
	XPosition decimal.Decimal `gorm:"type:numeric(12,4)" json:"x_position"`
	YPosition decimal.Decimal `gorm:"type:numeric(12,4)" json:"y_position"`
	Width     decimal.Decimal `gorm:"type:numeric(12,4)" json:"width"`
	Length    decimal.Decimal `gorm:"type:numeric(12,4)" json:"length"`
	IsRotated bool            `json:"is_rotated"`
	AreaSqm   decimal.Decimal `gorm:"type:numeric(12,4)" json:"area_sqm"`
	OrderNo   string          `gorm:"type:varchar(50);not null" json:"order_no"`
	OrderType string          `gorm:"type:varchar(20);not null" json:"order_type"`
	Sequence  int             `json:"sequence"`
}

// TableName specifies the table name for LayoutItem model
func (LayoutItem) TableName() string {
	return "layout_items"
}
