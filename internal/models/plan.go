package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanStatusPlanned is the only status a live plan has
const PlanStatusPlanned = "Planned"

// Plan is an exclusive claim over a set of orders of one fabric type, together
// with the geometry snapshot that was chosen for them.
type Plan struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Reference      uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"reference"`
	FabricTypeID   string          `gorm:"type:varchar(50);index;not null" json:"fabric_type_id"`
	Strategy       string          `gorm:"type:varchar(30)" json:"strategy,omitempty"`
	RollWidthM     decimal.Decimal `gorm:"type:numeric(12,4)" json:"roll_width_m"`
	OuterSpacing   decimal.Decimal `gorm:"type:numeric(12,4)" json:"outer_spacing"`
	InnerSpacing   decimal.Decimal `gorm:"type:numeric(12,4)" json:"inner_spacing"`
	UsedLengthM    decimal.Decimal `gorm:"type:numeric(12,4)" json:"used_length_m"`
	UsedAreaSqm    decimal.Decimal `gorm:"type:numeric(14,4)" json:"used_area_sqm"`
	TotalAreaSqm   decimal.Decimal `gorm:"type:numeric(14,4)" json:"total_area_sqm"`
	WasteAreaSqm   decimal.Decimal `gorm:"type:numeric(14,4)" json:"waste_area_sqm"`
	UtilizationPct decimal.Decimal `gorm:"type:numeric(7,4)" json:"utilization_pct"`
	PieceCount     int             `json:"piece_count"`
	OrderCount     int             `json:"order_count"`
	Status         string          `gorm:"type:varchar(20);default:Planned" json:"status"`
	Excluded       datatypes.JSON  `json:"excluded"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`

	Orders []PlanOrder `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"orders"`
	Items  []PlanItem  `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName specifies the table name for Plan model
func (Plan) TableName() string {
	return "plans"
}

// BeforeCreate assigns the public reference
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.Reference == uuid.Nil {
		p.Reference = uuid.New()
	}
	if p.Status == "" {
		p.Status = PlanStatusPlanned
	}
	return nil
}

// PlanOrder claims one order for a plan. (fabric_type_id, order_no) is unique
// across all live rows; that index is what makes a claim exclusive.
type PlanOrder struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	PlanID       uint            `gorm:"index;not null" json:"plan_id"`
	FabricTypeID string          `gorm:"type:varchar(50);uniqueIndex:ux_plan_orders_fabric_order;not null" json:"fabric_type_id"`
	OrderNo      string          `gorm:"type:varchar(50);uniqueIndex:ux_plan_orders_fabric_order;not null" json:"order_no"`
	OrderType    string          `gorm:"type:varchar(20);not null" json:"order_type"`
	PieceCount   int             `json:"piece_count"`
	TotalAreaSqm decimal.Decimal `gorm:"type:numeric(14,4)" json:"total_area_sqm"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName specifies the table name for PlanOrder model
func (PlanOrder) TableName() string {
	return "plan_orders"
}

// PlanItem is one placed piece of the committed geometry
type PlanItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	PlanID    uint            `gorm:"index;not null" json:"plan_id"`
	BarcodeNo string          `gorm:"type:varchar(100);not null" json:"barcode_no"`
	OrderNo   string          `gorm:"type:varchar(50);not null" json:"order_no"`
	OrderType string          `gorm:"type:varchar(20)" json:"order_type"`
	XPosition decimal.Decimal `gorm:"type:numeric(12,4)" json:"x_position"`
	YPosition decimal.Decimal `gorm:"type:numeric(12,4)" json:"y_position"`
	Width     decimal.Decimal `gorm:"type:numeric(12,4)" json:"width"`
	Length    decimal.Decimal `gorm:"type:numeric(12,4)" json:"length"`
	IsRotated bool            `json:"is_rotated"`
	AreaSqm   decimal.Decimal `gorm:"type:numeric(12,4)" json:"area_sqm"`
	Sequence  int             `json:"sequence"`
}

// TableName specifies the table name for PlanItem model
func (PlanItem) TableName() string {
	return "plan_items"
}

// OrderNos lists the claimed order numbers
func (p *Plan) OrderNos() []string {
	out := make([]string, len(p.Orders))
	for i, o := range p.Orders {
		out[i] = o.OrderNo
	}
	return out
}
