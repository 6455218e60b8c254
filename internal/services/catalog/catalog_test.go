package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xelth-com/fabricplan/internal/testutil"
	"gorm.io/gorm"
)

func TestDistinct(t *testing.T) {
	got := Distinct([]string{" A", "B", "", "A", "  ", "C", "B"})
	assert.Equal(t, []string{"A", "B", "C"}, got)
	assert.Empty(t, Distinct(nil))
}

func TestMissing(t *testing.T) {
	found := []models.FabricPiece{{BarcodeNo: "B1"}, {BarcodeNo: "B3"}}
	assert.Equal(t, []string{"B2", "B4"}, Missing([]string{"B1", "B2", "B3", "B4"}, found))
	assert.Empty(t, Missing([]string{"B1"}, found))
}

func TestSelection_Empty(t *testing.T) {
	assert.True(t, Selection{}.Empty())
	assert.True(t, Selection{Barcodes: []string{" "}}.Normalize().Empty())
	assert.False(t, Selection{AllUnassigned: true}.Empty())
	assert.False(t, Selection{OrderNos: []string{"A"}}.Empty())
}

func TestOtherFabric(t *testing.T) {
	pieces := []models.FabricPiece{
		{BarcodeNo: "A-1", FabricTypeID: "F1"},
		{BarcodeNo: "C-1", FabricTypeID: "F2"},
	}
	assert.Equal(t, []string{"C-1"}, OtherFabric(pieces, "F1"))
	assert.Empty(t, OtherFabric(pieces, ""))
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	dec := decimal.RequireFromString
	require.NoError(t, db.Create(&models.FabricType{ID: "F1", Description: "Wool", RollWidth: dec("3.0")}).Error)
	require.NoError(t, db.Create(&models.FabricType{ID: "F2", Description: "Jute", RollWidth: dec("4.0")}).Error)

	pieces := []models.FabricPiece{
		{BarcodeNo: "A-1", OrderNo: "A", OrderType: models.OrderKindOrder, FabricTypeID: "F1", Width: dec("1.0"), Length: dec("2.0"), Sqm: dec("2.0")},
		{BarcodeNo: "A-2", OrderNo: "A", OrderType: models.OrderKindOrder, FabricTypeID: "F1", Width: dec("1.0"), Length: dec("1.5"), Sqm: dec("1.5")},
		{BarcodeNo: "B-1", OrderNo: "B", OrderType: models.OrderKindSample, FabricTypeID: "F1", Width: dec("0.5"), Length: dec("0.5"), Sqm: dec("0.25")},
		{BarcodeNo: "C-1", OrderNo: "C", OrderType: models.OrderKindOrder, FabricTypeID: "F2", Width: dec("2.0"), Length: dec("2.0"), Sqm: dec("4.0")},
	}
	require.NoError(t, db.Create(&pieces).Error)
}

func TestService_Postgres(t *testing.T) {
	db := testutil.StartPostgres(t)
	seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	t.Run("fabric type lookup", func(t *testing.T) {
		w, err := svc.RollWidth(ctx, "F1")
		require.NoError(t, err)
		assert.True(t, w.Equal(decimal.RequireFromString("3")))

		_, err = svc.FabricType(ctx, "NOPE")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("barcodes keep request order", func(t *testing.T) {
		pieces, err := svc.Resolve(ctx, Selection{Barcodes: []string{"B-1", "X-9", "A-1", "B-1"}})
		require.NoError(t, err)
		require.Len(t, pieces, 2)
		assert.Equal(t, "B-1", pieces[0].BarcodeNo)
		assert.Equal(t, "A-1", pieces[1].BarcodeNo)
	})

	t.Run("barcodes must match the fabric type", func(t *testing.T) {
		pieces, err := svc.Resolve(ctx, Selection{FabricTypeID: "F1", Barcodes: []string{"A-1", "B-1"}})
		require.NoError(t, err)
		assert.Len(t, pieces, 2)

		_, err = svc.Resolve(ctx, Selection{FabricTypeID: "F1", Barcodes: []string{"A-1", "C-1"}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
		assert.Contains(t, err.Error(), "C-1")
		assert.NotContains(t, err.Error(), "A-1")
	})

	t.Run("orders filtered by fabric type", func(t *testing.T) {
		pieces, err := svc.Resolve(ctx, Selection{FabricTypeID: "F1", OrderNos: []string{"A", "C"}})
		require.NoError(t, err)
		assert.Len(t, pieces, 2)
	})

	t.Run("unresolved selection is invalid", func(t *testing.T) {
		_, err := svc.Resolve(ctx, Selection{OrderNos: []string{"ZZZ"}})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

		_, err = svc.Resolve(ctx, Selection{})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	})

	t.Run("unplanned orders exclude claimed ones", func(t *testing.T) {
		plan := models.Plan{FabricTypeID: "F1", Orders: []models.PlanOrder{{FabricTypeID: "F1", OrderNo: "A", OrderType: models.OrderKindOrder}}}
		require.NoError(t, db.Create(&plan).Error)

		orders, err := svc.UnplannedOrders(ctx, "F1")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "B", orders[0].OrderNo)
		assert.Equal(t, models.OrderKindSample, orders[0].OrderType)
		assert.Equal(t, 1, orders[0].PieceCount)
		assert.True(t, orders[0].TotalAreaSqm.Equal(decimal.RequireFromString("0.25")))
	})

	t.Run("unassigned pieces", func(t *testing.T) {
		layout := models.Layout{Name: "L1"}
		require.NoError(t, db.Create(&layout).Error)
		require.NoError(t, db.Model(&models.FabricPiece{}).Where("barcode_no = ?", "A-1").Update("layout_id", layout.ID).Error)

		pieces, err := svc.UnassignedPieces(ctx, "F1")
		require.NoError(t, err)
		assert.Len(t, pieces, 2)
	})
}
