package planner

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
)

// memStore enforces the (fabric type, order number) uniqueness the way the
// database index does: the whole plan is rejected if any order is taken.
type memStore struct {
	mu     sync.Mutex
	nextID uint
	plans  map[uint]*models.Plan
	claims map[string]uint

	beforeCreate func()
	createErr    error
}

func newMemStore() *memStore {
	return &memStore{plans: map[uint]*models.Plan{}, claims: map[string]uint{}}
}

func claimKey(fabricTypeID, orderNo string) string {
	return fabricTypeID + "\x00" + orderNo
}

func (m *memStore) LockedOrders(_ context.Context, fabricTypeID string, orderNos []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, o := range orderNos {
		if _, ok := m.claims[claimKey(fabricTypeID, o)]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) CreatePlan(_ context.Context, plan *models.Plan) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, o := range plan.Orders {
		if _, ok := m.claims[claimKey(plan.FabricTypeID, o.OrderNo)]; ok {
			return ErrDuplicateClaim
		}
	}
	m.nextID++
	plan.ID = m.nextID
	for i := range plan.Orders {
		plan.Orders[i].PlanID = plan.ID
		m.claims[claimKey(plan.FabricTypeID, plan.Orders[i].OrderNo)] = plan.ID
	}
	for i := range plan.Items {
		plan.Items[i].PlanID = plan.ID
	}
	cp := *plan
	m.plans[plan.ID] = &cp
	return nil
}

func (m *memStore) claim(fabricTypeID, orderNo string, planID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claimKey(fabricTypeID, orderNo)] = planID
}

func (m *memStore) DeletePlan(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return apperr.NotFound("plan %d", id)
	}
	for _, o := range plan.Orders {
		delete(m.claims, claimKey(plan.FabricTypeID, o.OrderNo))
	}
	delete(m.plans, id)
	return nil
}

func (m *memStore) ListPlans(_ context.Context, fabricTypeID string) ([]models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Plan{}
	for _, p := range m.plans {
		if fabricTypeID == "" || p.FabricTypeID == fabricTypeID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) GetPlan(_ context.Context, id uint) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, apperr.NotFound("plan %d", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plans)
}

type memCatalog struct {
	types  map[string]models.FabricType
	pieces []models.FabricPiece
}

func (c *memCatalog) FabricType(_ context.Context, id string) (*models.FabricType, error) {
	ft, ok := c.types[id]
	if !ok {
		return nil, apperr.NotFound("fabric type %s", id)
	}
	return &ft, nil
}

func (c *memCatalog) PiecesByOrders(_ context.Context, fabricTypeID string, orderNos []string) ([]models.FabricPiece, error) {
	want := map[string]bool{}
	for _, o := range orderNos {
		want[o] = true
	}
	out := []models.FabricPiece{}
	for _, p := range c.pieces {
		if want[p.OrderNo] && (fabricTypeID == "" || p.FabricTypeID == fabricTypeID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *memCatalog) Resolve(ctx context.Context, sel catalog.Selection) ([]models.FabricPiece, error) {
	sel = sel.Normalize()
	var out []models.FabricPiece
	switch {
	case len(sel.Barcodes) > 0:
		for _, b := range sel.Barcodes {
			for _, p := range c.pieces {
				if p.BarcodeNo == b {
					out = append(out, p)
				}
			}
		}
	case len(sel.OrderNos) > 0:
		out, _ = c.PiecesByOrders(ctx, sel.FabricTypeID, sel.OrderNos)
	case sel.AllUnassigned:
		for _, p := range c.pieces {
			if p.LayoutID == nil && (sel.FabricTypeID == "" || p.FabricTypeID == sel.FabricTypeID) {
				out = append(out, p)
			}
		}
	default:
		return nil, apperr.Invalid("selection is empty")
	}
	if len(out) == 0 {
		return nil, apperr.Invalid("selection does not match any fabric piece")
	}
	if other := catalog.OtherFabric(out, sel.FabricTypeID); len(other) > 0 {
		return nil, apperr.Invalid("pieces not of fabric type %s", sel.FabricTypeID)
	}
	return out, nil
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
	deleted int
}

func (r *countingRecorder) CommitResult(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func (r *countingRecorder) PlanDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted++
}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturePublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

var errDiskFull = errors.New("disk full")

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fabricPiece(barcode, orderNo, kind, width, length string) models.FabricPiece {
	w, l := d(width), d(length)
	return models.FabricPiece{
		BarcodeNo:    barcode,
		OrderNo:      orderNo,
		OrderType:    kind,
		FabricTypeID: "F1",
		Width:        w,
		Length:       l,
		Sqm:          w.Mul(l),
	}
}

func newFixture() (*Service, *memStore, *memCatalog) {
	cat := &memCatalog{
		types: map[string]models.FabricType{
			"F1": {ID: "F1", RollWidth: d("3.0")},
		},
		pieces: []models.FabricPiece{
			fabricPiece("A-1", "A", models.OrderKindOrder, "1.0", "2.0"),
			fabricPiece("B-1", "B", models.OrderKindOrder, "1.0", "1.5"),
			fabricPiece("C-1", "C", models.OrderKindSample, "0.5", "0.5"),
			fabricPiece("C-2", "C", models.OrderKindSample, "0.4", "0.5"),
		},
	}
	store := newMemStore()
	svc := NewService(store, cat, nil, defaultSpacing())
	return svc, store, cat
}
