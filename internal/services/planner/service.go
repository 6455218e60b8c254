// Package planner previews packings for a piece selection and commits a chosen
// packing as a plan that exclusively claims its orders.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xelth-com/fabricplan/internal/packing"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
	"gorm.io/datatypes"
)

// Commit results reported to the Recorder
const (
	CommitCreated  = "created"
	CommitConflict = "conflict"
	CommitFailed   = "failed"
)

// Event types published after a successful change
const (
	EventPlanCreated = "plan.created"
	EventPlanDeleted = "plan.deleted"
)

// Catalog is the part of the piece catalog the planner reads
type Catalog interface {
	FabricType(ctx context.Context, id string) (*models.FabricType, error)
	Resolve(ctx context.Context, sel catalog.Selection) ([]models.FabricPiece, error)
	PiecesByOrders(ctx context.Context, fabricTypeID string, orderNos []string) ([]models.FabricPiece, error)
}

// Publisher receives plan events, e.g. the websocket hub
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Recorder counts commit and delete outcomes
type Recorder interface {
	CommitResult(result string)
	PlanDeleted()
}

// Spacing overrides the configured spacing for one request. Nil fields use the defaults.
type Spacing struct {
	RollWidth    *decimal.Decimal `json:"roll_width_m,omitempty"`
	OuterSpacing *decimal.Decimal `json:"outer_spacing,omitempty"`
	InnerSpacing *decimal.Decimal `json:"inner_spacing,omitempty"`
}

// PreviewRequest selects pieces and the roll to preview them on
type PreviewRequest struct {
	catalog.Selection
	Spacing
}

// Preview is the winning heuristic for a selection
type Preview struct {
	FabricTypeID string         `json:"fabric_type_id,omitempty"`
	Params       packing.Params `json:"params"`
	packing.Outcome
}

// CommitRequest claims orders with a previously previewed placement
type CommitRequest struct {
	FabricTypeID string               `json:"fabric_type_id"`
	OrderNos     []string             `json:"order_nos"`
	Strategy     packing.Strategy     `json:"strategy,omitempty"`
	Items        []packing.PlacedItem `json:"items"`
	Excluded     []packing.Excluded   `json:"excluded,omitempty"`
	Spacing
}

// Service previews and commits plans
type Service struct {
	store     Store
	catalog   Catalog
	selector  *packing.Selector
	defaults  config.LayoutConfig
	publisher Publisher
	recorder  Recorder
}

// NewService creates a new planner service
func NewService(store Store, cat Catalog, selector *packing.Selector, defaults config.LayoutConfig) *Service {
	if selector == nil {
		selector = packing.NewSelector(nil)
	}
	return &Service{
		store:    store,
		catalog:  cat,
		selector: selector,
		defaults: defaults,
	}
}

// SetPublisher sets where plan events go
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// SetRecorder sets the commit outcome recorder
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Store returns the underlying plan store
func (s *Service) Store() Store {
	return s.store
}

// Params builds packing parameters from request overrides, the configured
// spacing and, when no roll width is given, the fabric type's roll width.
func (s *Service) Params(ctx context.Context, fabricTypeID string, sp Spacing) (packing.Params, error) {
	p := packing.Params{
		OuterSpacing: s.defaults.OuterSpacing,
		InnerSpacing: s.defaults.InnerSpacing,
	}
	if sp.OuterSpacing != nil {
		p.OuterSpacing = *sp.OuterSpacing
	}
	if sp.InnerSpacing != nil {
		p.InnerSpacing = *sp.InnerSpacing
	}

	switch {
	case sp.RollWidth != nil:
		p.RollWidth = *sp.RollWidth
	case fabricTypeID != "":
		ft, err := s.catalog.FabricType(ctx, fabricTypeID)
		if err != nil {
			return packing.Params{}, err
		}
		p.RollWidth = ft.RollWidth
	default:
		return packing.Params{}, apperr.Invalid("roll width or fabric type is required")
	}

	if err := packing.ValidateParams(p); err != nil {
		return packing.Params{}, err
	}
	return p, nil
}

// Preview packs the selection under each preview heuristic and returns the one
// with the least waste.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*Preview, error) {
	sel := req.Selection.Normalize()
	if sel.Empty() {
		return nil, apperr.Invalid("selection is empty: give barcodes, order numbers or all_unassigned")
	}

	params, err := s.Params(ctx, sel.FabricTypeID, req.Spacing)
	if err != nil {
		return nil, err
	}

	records, err := s.catalog.Resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	outcome, err := s.selector.Preview(models.ToPieces(records), params)
	if err != nil {
		return nil, err
	}
	return &Preview{FabricTypeID: sel.FabricTypeID, Params: params, Outcome: outcome}, nil
}

// Commit claims req.OrderNos for req.FabricTypeID and stores req.Items as the
// plan geometry. If any order is already claimed, a *apperr.ConflictError naming
// exactly those orders is returned and nothing is written.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*models.Plan, error) {
	if req.FabricTypeID == "" {
		return nil, apperr.Invalid("fabric_type_id is required")
	}
	orderNos := catalog.Distinct(req.OrderNos)
	if len(orderNos) == 0 {
		return nil, apperr.Invalid("order_nos cannot be empty")
	}

	params, err := s.commitParams(ctx, req)
	if err != nil {
		return nil, err
	}

	locked, err := s.store.LockedOrders(ctx, req.FabricTypeID, orderNos)
	if err != nil {
		s.record(CommitFailed)
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if len(locked) > 0 {
		s.record(CommitConflict)
		return nil, &apperr.ConflictError{FabricTypeID: req.FabricTypeID, LockedOrderNos: locked}
	}

	pieces, err := s.catalog.PiecesByOrders(ctx, req.FabricTypeID, orderNos)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, apperr.Invalid("no pieces found for the specified orders")
	}
	if missing := missingOrders(orderNos, pieces); len(missing) > 0 {
		return nil, apperr.Invalid("orders without pieces for fabric type %s: %v", req.FabricTypeID, missing)
	}

	plan, err := buildPlan(req, orderNos, params, pieces)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreatePlan(ctx, plan); err != nil {
		if errors.Is(err, ErrDuplicateClaim) {
			// Lost a race after the pre-check; report who holds the orders now.
			if locked, lerr := s.store.LockedOrders(ctx, req.FabricTypeID, orderNos); lerr == nil && len(locked) > 0 {
				s.record(CommitConflict)
				return nil, &apperr.ConflictError{FabricTypeID: req.FabricTypeID, LockedOrderNos: locked}
			}
		}
		s.record(CommitFailed)
		log.Printf("❌ Plan commit failed for %s %v: %v", req.FabricTypeID, orderNos, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}

	s.record(CommitCreated)
	log.Printf("✅ Plan %d committed: fabric %s, %d orders, %d pieces, utilization %s%%",
		plan.ID, plan.FabricTypeID, plan.OrderCount, plan.PieceCount, plan.UtilizationPct.StringFixed(2))
	s.publish(EventPlanCreated, plan)
	return plan, nil
}

// Delete removes a plan and releases its orders
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeletePlan(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if s.recorder != nil {
		s.recorder.PlanDeleted()
	}
	log.Printf("🗑️  Plan %d deleted, orders released", id)
	s.publish(EventPlanDeleted, map[string]interface{}{"id": id})
	return nil
}

// List returns plans, newest first, optionally for one fabric type
func (s *Service) List(ctx context.Context, fabricTypeID string) ([]models.Plan, error) {
	return s.store.ListPlans(ctx, fabricTypeID)
}

// Get returns one plan with its geometry
func (s *Service) Get(ctx context.Context, id uint) (*models.Plan, error) {
	return s.store.GetPlan(ctx, id)
}

func (s *Service) commitParams(ctx context.Context, req CommitRequest) (packing.Params, error) {
	// The fabric type must exist even when the roll width is supplied.
	ft, err := s.catalog.FabricType(ctx, req.FabricTypeID)
	if err != nil {
		return packing.Params{}, err
	}
	sp := req.Spacing
	if sp.RollWidth == nil {
		sp.RollWidth = &ft.RollWidth
	}
	return s.Params(ctx, req.FabricTypeID, sp)
}

func buildPlan(req CommitRequest, orderNos []string, params packing.Params, pieces []models.FabricPiece) (*models.Plan, error) {
	requested := make(map[string]struct{}, len(orderNos))
	for _, o := range orderNos {
		requested[o] = struct{}{}
	}
	known := make(map[string]struct{}, len(pieces))
	for _, p := range pieces {
		known[p.BarcodeNo] = struct{}{}
	}

	items := make([]models.PlanItem, 0, len(req.Items))
	placed := make([]packing.PlacedItem, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for i, it := range req.Items {
		if _, ok := requested[it.OrderNo]; !ok {
			return nil, apperr.Invalid("item %s belongs to order %s, which is not part of the plan", it.Barcode, it.OrderNo)
		}
		if _, ok := known[it.Barcode]; !ok {
			return nil, apperr.Invalid("item %s is not a piece of the planned orders", it.Barcode)
		}
		if _, dup := seen[it.Barcode]; dup {
			return nil, apperr.Invalid("item %s appears more than once", it.Barcode)
		}
		if !it.Width.IsPositive() || !it.Length.IsPositive() {
			return nil, apperr.Invalid("item %s has non-positive dimensions", it.Barcode)
		}
		seen[it.Barcode] = struct{}{}

		it.Area = packing.PieceArea(it.Width, it.Length)
		placed = append(placed, it)
		items = append(items, models.PlanItem{
			BarcodeNo: it.Barcode,
			OrderNo:   it.OrderNo,
			OrderType: it.OrderKind,
			XPosition: it.X,
			YPosition: it.Y,
			Width:     it.Width,
			Length:    it.Length,
			IsRotated: it.Rotated,
			AreaSqm:   it.Area,
			Sequence:  i + 1,
		})
	}

	excluded := req.Excluded
	if excluded == nil {
		excluded = []packing.Excluded{}
	}
	snapshot, err := json.Marshal(excluded)
	if err != nil {
		return nil, fmt.Errorf("encode excluded pieces: %w", err)
	}

	// One claim per order number even when its pieces mix Order and Sample
	// kinds; the (fabric_type_id, order_no) unique index allows no more.
	orders := groupOrders(req.FabricTypeID, pieces)
	m := packing.Measure(placed, params.RollWidth, params.OuterSpacing)
	return &models.Plan{
		FabricTypeID:   req.FabricTypeID,
		Strategy:       string(req.Strategy),
		RollWidthM:     params.RollWidth,
		OuterSpacing:   params.OuterSpacing,
		InnerSpacing:   params.InnerSpacing,
		UsedLengthM:    m.UsedLength,
		UsedAreaSqm:    m.UsedArea,
		TotalAreaSqm:   m.TotalArea,
		WasteAreaSqm:   m.WasteArea,
		UtilizationPct: m.UtilizationPct,
		PieceCount:     len(items),
		OrderCount:     len(orders),
		Status:         models.PlanStatusPlanned,
		Excluded:       datatypes.JSON(snapshot),
		Orders:         orders,
		Items:          items,
	}, nil
}

// groupOrders builds one PlanOrder per order number, in first-seen order. The
// order kind is taken from the order's first piece.
func groupOrders(fabricTypeID string, pieces []models.FabricPiece) []models.PlanOrder {
	index := map[string]int{}
	var orders []models.PlanOrder
	for _, p := range pieces {
		i, ok := index[p.OrderNo]
		if !ok {
			i = len(orders)
			index[p.OrderNo] = i
			orders = append(orders, models.PlanOrder{
				FabricTypeID: fabricTypeID,
				OrderNo:      p.OrderNo,
				OrderType:    p.OrderType,
				TotalAreaSqm: decimal.Zero,
			})
		}
		orders[i].PieceCount++
		orders[i].TotalAreaSqm = orders[i].TotalAreaSqm.Add(p.Sqm)
	}
	return orders
}

func missingOrders(orderNos []string, pieces []models.FabricPiece) []string {
	found := make(map[string]struct{}, len(pieces))
	for _, p := range pieces {
		found[p.OrderNo] = struct{}{}
	}
	var missing []string
	for _, o := range orderNos {
		if _, ok := found[o]; !ok {
			missing = append(missing, o)
		}
	}
	return missing
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.CommitResult(result)
	}
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}
