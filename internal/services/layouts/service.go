// Package layouts persists packing results and assigns the packed pieces to them.
package layouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xelth-com/fabricplan/internal/packing"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
	"github.com/xelth-com/fabricplan/internal/services/planner"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types published after a layout change
const (
	EventLayoutCreated = "layout.created"
	EventLayoutDeleted = "layout.deleted"
)

// Catalog is the part of the piece catalog layouts read
type Catalog interface {
	Resolve(ctx context.Context, sel catalog.Selection) ([]models.FabricPiece, error)
	PiecesByBarcodes(ctx context.Context, barcodes []string) ([]models.FabricPiece, error)
}

// CalculateRequest selects pieces to pack onto a new layout
type CalculateRequest struct {
	catalog.Selection
	FabricWidth decimal.Decimal `json:"fabric_width"`
	Name        string          `json:"layout_name"`
}

// OptionsRequest asks for every exploration strategy over a set of barcodes
type OptionsRequest struct {
	Barcodes   []string        `json:"barcodes"`
	TotalWidth decimal.Decimal `json:"total_width"`
}

// Service manages persisted layouts
type Service struct {
	db        *gorm.DB
	catalog   Catalog
	plans     planner.Store
	selector  *packing.Selector
	defaults  config.LayoutConfig
	publisher planner.Publisher
}

// NewService creates a new layout service
func NewService(db *gorm.DB, cat Catalog, plans planner.Store, selector *packing.Selector, defaults config.LayoutConfig) *Service {
	if selector == nil {
		selector = packing.NewSelector(nil)
	}
	return &Service{
		db:       db,
		catalog:  cat,
		plans:    plans,
		selector: selector,
		defaults: defaults,
	}
}

// SetPublisher sets where layout events go
func (s *Service) SetPublisher(p planner.Publisher) {
	s.publisher = p
}

func (s *Service) params(width decimal.Decimal) (packing.Params, error) {
	p := packing.Params{
		RollWidth:    width,
		OuterSpacing: s.defaults.OuterSpacing,
		InnerSpacing: s.defaults.InnerSpacing,
	}
	if err := packing.ValidateParams(p); err != nil {
		return packing.Params{}, err
	}
	return p, nil
}

// Options packs the barcodes under every exploration strategy, best utilization
// first. Every barcode must exist.
func (s *Service) Options(ctx context.Context, req OptionsRequest) ([]packing.Outcome, error) {
	barcodes := catalog.Distinct(req.Barcodes)
	if len(barcodes) == 0 {
		return nil, apperr.Invalid("barcodes cannot be empty")
	}
	params, err := s.params(req.TotalWidth)
	if err != nil {
		return nil, err
	}

	records, err := s.catalog.PiecesByBarcodes(ctx, barcodes)
	if err != nil {
		return nil, err
	}
	if missing := catalog.Missing(barcodes, records); len(missing) > 0 {
		return nil, apperr.Invalid("barcodes not found: %s", strings.Join(missing, ", "))
	}
	return s.selector.Explore(models.ToPieces(records), params)
}

// Calculate packs the selected pieces with the Standard strategy, stores the
// layout and assigns the placed pieces to it.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (*models.Layout, error) {
	params, err := s.params(req.FabricWidth)
	if err != nil {
		return nil, err
	}
	// Resolve de-duplicates, so repeats are only visible in the raw request.
	if dup := duplicateBarcodes(req.Barcodes); len(dup) > 0 {
		return nil, apperr.Invalid("duplicate barcodes not allowed in layout: %s", strings.Join(dup, ", "))
	}

	records, err := s.catalog.Resolve(ctx, req.Selection)
	if err != nil {
		return nil, err
	}
	if taken := assigned(records); len(taken) > 0 {
		return nil, apperr.Invalid("pieces already assigned to a layout: %s", strings.Join(taken, ", "))
	}

	outcome, err := s.selector.Standard(models.ToPieces(records), params)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Layout " + time.Now().UTC().Format("2006-01-02 15:04")
	}
	layout, err := FromOutcome(name, outcome, params)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, layout); err != nil {
		return nil, err
	}
	log.Printf("📐 Layout %d calculated: %d pieces, length %sm, waste %s%%",
		layout.ID, layout.PieceCount, layout.TotalLength.String(), layout.WastePercentage.StringFixed(2))
	s.publish(EventLayoutCreated, layout)
	return layout, nil
}

// Materialize turns a committed plan into a layout and assigns its pieces
func (s *Service) Materialize(ctx context.Context, planID uint) (*models.Layout, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Layout{}).Where("plan_id = ?", planID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if existing > 0 {
		return nil, apperr.Invalid("plan %d already has a layout", planID)
	}

	barcodes := make([]string, len(plan.Items))
	for i, it := range plan.Items {
		barcodes[i] = it.BarcodeNo
	}
	records, err := s.catalog.PiecesByBarcodes(ctx, barcodes)
	if err != nil {
		return nil, err
	}
	if taken := assigned(records); len(taken) > 0 {
		return nil, apperr.Invalid("pieces already assigned to a layout: %s", strings.Join(taken, ", "))
	}

	layout := fromPlan(plan, records)
	if err := s.persist(ctx, layout); err != nil {
		return nil, err
	}
	log.Printf("📐 Layout %d materialized from plan %d", layout.ID, planID)
	s.publish(EventLayoutCreated, layout)
	return layout, nil
}

// List returns layouts newest first, without items
func (s *Service) List(ctx context.Context) ([]models.Layout, error) {
	var layouts []models.Layout
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&layouts).Error; err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	return layouts, nil
}

// Get returns a layout with its items in placement order
func (s *Service) Get(ctx context.Context, id uint) (*models.Layout, error) {
	var layout models.Layout
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		First(&layout, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("layout %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load layout %d: %w", id, err)
	}
	return &layout, nil
}

// Delete detaches the layout's pieces and removes the layout with its items
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FabricPiece{}).Where("layout_id = ?", id).Update("layout_id", nil)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where("layout_id = ?", id).Delete(&models.LayoutItem{}).Error; err != nil {
			return err
		}
		del := tx.Delete(&models.Layout{}, id)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return apperr.NotFound("layout %d", id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	log.Printf("🗑️  Layout %d deleted, pieces detached", id)
	s.publish(EventLayoutDeleted, map[string]interface{}{"id": id})
	return nil
}

// persist stores the layout with its items and assigns the placed pieces. A
// piece assigned elsewhere in the meantime aborts the whole write.
func (s *Service) persist(ctx context.Context, layout *models.Layout) error {
	barcodes := make([]string, len(layout.Items))
	for i, it := range layout.Items {
		barcodes[i] = it.BarcodeNo
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(layout).Error; err != nil {
			return err
		}
		if len(barcodes) == 0 {
			return nil
		}
		res := tx.Model(&models.FabricPiece{}).
			Where("barcode_no IN ? AND layout_id IS NULL", barcodes).
			Update("layout_id", layout.ID)
		if res.Error != nil {
			return res.Error
		}
		if int(res.RowsAffected) != len(barcodes) {
			return apperr.Invalid("pieces were assigned to another layout while calculating")
		}
		return nil
	})
	if err != nil {
		layout.ID = 0
		if errors.Is(err, apperr.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}

// FromOutcome builds an unsaved layout from a packing outcome
func FromOutcome(name string, o packing.Outcome, p packing.Params) (*models.Layout, error) {
	excluded := o.Excluded
	if excluded == nil {
		excluded = []packing.Excluded{}
	}
	snapshot, err := json.Marshal(excluded)
	if err != nil {
		return nil, fmt.Errorf("encode excluded pieces: %w", err)
	}

	now := time.Now().UTC()
	layout := &models.Layout{
		Name:            name,
		Strategy:        string(o.Strategy),
		TotalWidth:      p.RollWidth,
		TotalLength:     o.UsedLength,
		TotalAreaSqm:    o.TotalArea,
		UsedAreaSqm:     o.UsedArea,
		WasteAreaSqm:    o.WasteArea,
		WastePercentage: wastePercentage(o.WasteArea, o.TotalArea),
		OuterSpacing:    p.OuterSpacing,
		InnerSpacing:    p.InnerSpacing,
		Status:          models.LayoutStatusCalculated,
		Excluded:        datatypes.JSON(snapshot),
		CalculatedAt:    &now,
		Items:           make([]models.LayoutItem, len(o.Items)),
	}
	for i, it := range o.Items {
		layout.Items[i] = models.LayoutItem{
			BarcodeNo: it.Barcode,
			XPosition: it.X,
			YPosition: it.Y,
			Width:     it.Width,
			Length:    it.Length,
			IsRotated: it.Rotated,
			AreaSqm:   it.Area,
			OrderNo:   it.OrderNo,
			OrderType: it.OrderKind,
			Sequence:  i + 1,
		}
		countKind(layout, it.OrderKind)
	}
	layout.PieceCount = len(o.Items)
	return layout, nil
}

func fromPlan(plan *models.Plan, records []models.FabricPiece) *models.Layout {
	now := time.Now().UTC()
	planID := plan.ID
	layout := &models.Layout{
		Name:            fmt.Sprintf("Plan %d", plan.ID),
		PlanID:          &planID,
		Strategy:        plan.Strategy,
		TotalWidth:      plan.RollWidthM,
		TotalLength:     plan.UsedLengthM,
		TotalAreaSqm:    plan.TotalAreaSqm,
		UsedAreaSqm:     plan.UsedAreaSqm,
		WasteAreaSqm:    plan.WasteAreaSqm,
		WastePercentage: wastePercentage(plan.WasteAreaSqm, plan.TotalAreaSqm),
		OuterSpacing:    plan.OuterSpacing,
		InnerSpacing:    plan.InnerSpacing,
		Status:          models.LayoutStatusCalculated,
		Excluded:        plan.Excluded,
		CalculatedAt:    &now,
		Items:           make([]models.LayoutItem, 0, len(plan.Items)),
	}

	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.BarcodeNo] = struct{}{}
	}
	for _, it := range plan.Items {
		// Pieces removed from the catalog since the commit cannot be assigned.
		if _, ok := present[it.BarcodeNo]; !ok {
			continue
		}
		layout.Items = append(layout.Items, models.LayoutItem{
			BarcodeNo: it.BarcodeNo,
			XPosition: it.XPosition,
			YPosition: it.YPosition,
			Width:     it.Width,
			Length:    it.Length,
			IsRotated: it.IsRotated,
			AreaSqm:   it.AreaSqm,
			OrderNo:   it.OrderNo,
			OrderType: it.OrderType,
			Sequence:  it.Sequence,
		})
		countKind(layout, it.OrderType)
	}
	layout.PieceCount = len(layout.Items)
	return layout
}

func countKind(layout *models.Layout, kind string) {
	switch kind {
	case models.OrderKindOrder:
		layout.OrderCount++
	case models.OrderKindSample:
		layout.SampleCount++
	}
}

func wastePercentage(waste, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return waste.Div(total).Mul(decimal.NewFromInt(100))
}

// duplicateBarcodes lists barcodes given more than once, ignoring surrounding space.
func duplicateBarcodes(barcodes []string) []string {
	seen := map[string]int{}
	var dup []string
	for _, b := range barcodes {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		seen[b]++
		if seen[b] == 2 {
			dup = append(dup, b)
		}
	}
	return dup
}

func assigned(records []models.FabricPiece) []string {
	var out []string
	for _, r := range records {
		if r.LayoutID != nil {
			out = append(out, r.BarcodeNo)
		}
	}
	return out
}
