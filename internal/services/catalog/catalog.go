// Package catalog reads fabric types and pieces. Pieces are written by the
// ingestion side; this package never changes them except for layout assignment,
// which lives in the layouts service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/models"
	"gorm.io/gorm"
)

// Selection picks the pieces a caller wants to pack. Exactly one of Barcodes,
// OrderNos or AllUnassigned should be set. FabricTypeID narrows order and
// unassigned selections; with barcodes, every piece must be of that type.
type Selection struct {
	FabricTypeID  string   `json:"fabric_type_id,omitempty"`
	Barcodes      []string `json:"barcodes,omitempty"`
	OrderNos      []string `json:"order_nos,omitempty"`
	AllUnassigned bool     `json:"all_unassigned,omitempty"`
}

// Normalize trims and de-duplicates the barcode and order lists, keeping first occurrence order.
func (s Selection) Normalize() Selection {
	s.FabricTypeID = strings.TrimSpace(s.FabricTypeID)
	s.Barcodes = Distinct(s.Barcodes)
	s.OrderNos = Distinct(s.OrderNos)
	return s
}

// Empty reports whether the selection names nothing.
func (s Selection) Empty() bool {
	return len(s.Barcodes) == 0 && len(s.OrderNos) == 0 && !s.AllUnassigned
}

// Service is the gorm-backed piece catalog
type Service struct {
	db *gorm.DB
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// FabricTypes lists all fabric types ordered by id
func (s *Service) FabricTypes(ctx context.Context) ([]models.FabricType, error) {
	var types []models.FabricType
	if err := s.db.WithContext(ctx).Order("id").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list fabric types: %w", err)
	}
	return types, nil
}

// FabricType returns one fabric type
func (s *Service) FabricType(ctx context.Context, id string) (*models.FabricType, error) {
	var ft models.FabricType
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&ft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("fabric type %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fabric type %s: %w", id, err)
	}
	return &ft, nil
}

// RollWidth returns the nominal roll width of a fabric type
func (s *Service) RollWidth(ctx context.Context, fabricTypeID string) (decimal.Decimal, error) {
	ft, err := s.FabricType(ctx, fabricTypeID)
	if err != nil {
		return decimal.Zero, err
	}
	return ft.RollWidth, nil
}

// PiecesByBarcodes returns the pieces with the given barcodes in the order the
// barcodes were given. Unknown barcodes are skipped; see Missing.
func (s *Service) PiecesByBarcodes(ctx context.Context, barcodes []string) ([]models.FabricPiece, error) {
	if len(barcodes) == 0 {
		return []models.FabricPiece{}, nil
	}
	var found []models.FabricPiece
	if err := s.db.WithContext(ctx).Where("barcode_no IN ?", barcodes).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load pieces by barcode: %w", err)
	}

	byBarcode := make(map[string]models.FabricPiece, len(found))
	for _, p := range found {
		byBarcode[p.BarcodeNo] = p
	}
	out := make([]models.FabricPiece, 0, len(found))
	for _, b := range barcodes {
		if p, ok := byBarcode[b]; ok {
			out = append(out, p)
			delete(byBarcode, b)
		}
	}
	return out, nil
}

// PiecesByOrders returns the pieces of the given orders, optionally restricted to a
// fabric type, ordered by order number then id.
func (s *Service) PiecesByOrders(ctx context.Context, fabricTypeID string, orderNos []string) ([]models.FabricPiece, error) {
	if len(orderNos) == 0 {
		return []models.FabricPiece{}, nil
	}
	q := s.db.WithContext(ctx).Where("order_no IN ?", orderNos)
	if fabricTypeID != "" {
		q = q.Where("fabric_type_id = ?", fabricTypeID)
	}
	var pieces []models.FabricPiece
	if err := q.Order("order_no").Order("id").Find(&pieces).Error; err != nil {
		return nil, fmt.Errorf("failed to load pieces by order: %w", err)
	}
	return pieces, nil
}

// UnassignedPieces returns pieces not placed on any layout
func (s *Service) UnassignedPieces(ctx context.Context, fabricTypeID string) ([]models.FabricPiece, error) {
	q := s.db.WithContext(ctx).Where("layout_id IS NULL")
	if fabricTypeID != "" {
		q = q.Where("fabric_type_id = ?", fabricTypeID)
	}
	var pieces []models.FabricPiece
	if err := q.Order("id").Find(&pieces).Error; err != nil {
		return nil, fmt.Errorf("failed to load unassigned pieces: %w", err)
	}
	return pieces, nil
}

// Resolve loads the pieces named by sel. A selection that names nothing, or
// that matches no stored piece, is invalid input.
func (s *Service) Resolve(ctx context.Context, sel Selection) ([]models.FabricPiece, error) {
	sel = sel.Normalize()

	var (
		pieces []models.FabricPiece
		err    error
	)
	switch {
	case len(sel.Barcodes) > 0:
		pieces, err = s.PiecesByBarcodes(ctx, sel.Barcodes)
	case len(sel.OrderNos) > 0:
		pieces, err = s.PiecesByOrders(ctx, sel.FabricTypeID, sel.OrderNos)
	case sel.AllUnassigned:
		pieces, err = s.UnassignedPieces(ctx, sel.FabricTypeID)
	default:
		return nil, apperr.Invalid("selection is empty: give barcodes, order numbers or all_unassigned")
	}
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, apperr.Invalid("selection does not match any fabric piece")
	}
	if other := OtherFabric(pieces, sel.FabricTypeID); len(other) > 0 {
		return nil, apperr.Invalid("pieces not of fabric type %s: %s", sel.FabricTypeID, strings.Join(other, ", "))
	}
	return pieces, nil
}

// OtherFabric returns the barcodes of pieces whose fabric type is not
// fabricTypeID. An empty fabricTypeID matches every piece.
func OtherFabric(pieces []models.FabricPiece, fabricTypeID string) []string {
	if fabricTypeID == "" {
		return nil
	}
	var out []string
	for _, p := range pieces {
		if p.FabricTypeID != fabricTypeID {
			out = append(out, p.BarcodeNo)
		}
	}
	return out
}

// UnplannedOrders summarizes orders of a fabric type that no plan has claimed
func (s *Service) UnplannedOrders(ctx context.Context, fabricTypeID string) ([]models.OrderSummary, error) {
	claimed := s.db.Model(&models.PlanOrder{}).
		Select("order_no").
		Where("fabric_type_id = ?", fabricTypeID)

	var orders []models.OrderSummary
	err := s.db.WithContext(ctx).Model(&models.FabricPiece{}).
		Select("order_no, MIN(order_type) AS order_type, fabric_type_id, COUNT(*) AS piece_count, COALESCE(SUM(sqm), 0) AS total_area_sqm").
		Where("fabric_type_id = ?", fabricTypeID).
		Where("order_no NOT IN (?)", claimed).
		Group("order_no, fabric_type_id").
		Order("order_no").
		Scan(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load unplanned orders: %w", err)
	}
	return orders, nil
}

// Missing returns the requested barcodes absent from found, in request order.
func Missing(requested []string, found []models.FabricPiece) []string {
	have := make(map[string]struct{}, len(found))
	for _, p := range found {
		have[p.BarcodeNo] = struct{}{}
	}
	missing := []string{}
	for _, b := range requested {
		if _, ok := have[b]; !ok {
			missing = append(missing, b)
		}
	}
	return missing
}

// Distinct trims values, drops blanks and duplicates, and keeps first occurrence order.
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
