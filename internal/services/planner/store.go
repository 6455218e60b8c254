package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateClaim is returned by a Store when the uniqueness constraint on
// (fabric type, order number) rejected a plan. Nothing was written.
var ErrDuplicateClaim = errors.New("order already claimed by another plan")

// Store persists plans. CreatePlan must write the plan, its orders and its items
// as one all-or-nothing unit, and must enforce that (fabric type, order number)
// is unique across all stored plan orders independently of LockedOrders.
type Store interface {
	LockedOrders(ctx context.Context, fabricTypeID string, orderNos []string) ([]string, error)
	CreatePlan(ctx context.Context, plan *models.Plan) error
	DeletePlan(ctx context.Context, id uint) error
	ListPlans(ctx context.Context, fabricTypeID string) ([]models.Plan, error)
	GetPlan(ctx context.Context, id uint) (*models.Plan, error)
}

// GormStore is the PostgreSQL Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store on db. db must be opened with TranslateError.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// LockedOrders returns the order numbers already claimed, in request order
func (s *GormStore) LockedOrders(ctx context.Context, fabricTypeID string, orderNos []string) ([]string, error) {
	if len(orderNos) == 0 {
		return []string{}, nil
	}
	var claimed []string
	err := s.db.WithContext(ctx).Model(&models.PlanOrder{}).
		Where("fabric_type_id = ? AND order_no IN ?", fabricTypeID, orderNos).
		Pluck("order_no", &claimed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check claimed orders: %w", err)
	}
	return inRequestOrder(orderNos, claimed), nil
}

// CreatePlan writes the plan with its orders and items in one transaction
func (s *GormStore) CreatePlan(ctx context.Context, plan *models.Plan) error {
	orders, items := plan.Orders, plan.Items

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(plan).Error; err != nil {
			return fmt.Errorf("create plan: %w", err)
		}

		for i := range orders {
			orders[i].PlanID = plan.ID
			orders[i].FabricTypeID = plan.FabricTypeID
		}
		if len(orders) > 0 {
			if err := tx.Create(&orders).Error; err != nil {
				return fmt.Errorf("create plan orders: %w", err)
			}
		}

		for i := range items {
			items[i].PlanID = plan.ID
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(&items, 500).Error; err != nil {
				return fmt.Errorf("create plan items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		plan.ID = 0
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrDuplicateClaim, err)
		}
		return err
	}

	plan.Orders, plan.Items = orders, items
	return nil
}

// DeletePlan removes a plan and releases its orders. Layouts derived from the
// plan are removed too, and their pieces are detached rather than deleted.
func (s *GormStore) DeletePlan(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.Plan
		err := tx.Select("id").First(&plan, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("plan %d", id)
		}
		if err != nil {
			return err
		}

		var layoutIDs []uint
		if err := tx.Model(&models.Layout{}).Where("plan_id = ?", id).Pluck("id", &layoutIDs).Error; err != nil {
			return err
		}
		if len(layoutIDs) > 0 {
			if err := tx.Model(&models.FabricPiece{}).
				Where("layout_id IN ?", layoutIDs).
				Update("layout_id", nil).Error; err != nil {
				return fmt.Errorf("detach pieces: %w", err)
			}
			if err := tx.Where("layout_id IN ?", layoutIDs).Delete(&models.LayoutItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", layoutIDs).Delete(&models.Layout{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("plan_id = ?", id).Delete(&models.PlanItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", id).Delete(&models.PlanOrder{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Plan{}, id).Error
	})
}

// ListPlans returns plans newest first with their orders. Items are left out;
// use GetPlan for the geometry.
func (s *GormStore) ListPlans(ctx context.Context, fabricTypeID string) ([]models.Plan, error) {
	q := s.db.WithContext(ctx).Preload("Orders", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_no")
	})
	if fabricTypeID != "" {
		q = q.Where("fabric_type_id = ?", fabricTypeID)
	}
	var plans []models.Plan
	if err := q.Order("created_at DESC").Order("id DESC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns a plan with orders and items, items in placement order
func (s *GormStore) GetPlan(ctx context.Context, id uint) (*models.Plan, error) {
	var plan models.Plan
	err := s.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("order_no") }).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		First(&plan, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("plan %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %d: %w", id, err)
	}
	return &plan, nil
}

func inRequestOrder(requested, subset []string) []string {
	in := make(map[string]struct{}, len(subset))
	for _, s := range subset {
		in[s] = struct{}{}
	}
	out := []string{}
	for _, r := range requested {
		if _, ok := in[r]; ok {
			out = append(out, r)
			delete(in, r)
		}
	}
	return out
}
