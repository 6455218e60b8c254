package printer

import (
	"bytes"
	"fmt"

	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the exported workbook
const (
	SheetCutList = "Cut List"
	SheetSummary = "Summary"
	SheetOrders  = "Orders"
)

var cutListHeader = []interface{}{
	"Seq", "Barcode", "Order", "Kind", "X (m)", "Y (m)", "Width (m)", "Length (m)", "Rotated", "Area (m2)",
}

// CutListXLSX exports a plan as a workbook with the pieces in placement order,
// the claimed orders and a summary sheet.
func CutListXLSX(plan *models.Plan) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetCutList); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetCutList, "A1", &cutListHeader); err != nil {
		return nil, err
	}
	for i, it := range plan.Items {
		row := []interface{}{
			it.Sequence, it.BarcodeNo, it.OrderNo, it.OrderType,
			it.XPosition.InexactFloat64(), it.YPosition.InexactFloat64(),
			it.Width.InexactFloat64(), it.Length.InexactFloat64(),
			it.IsRotated, it.AreaSqm.InexactFloat64(),
		}
		if err := setRow(f, SheetCutList, i+2, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(SheetCutList, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetOrders); err != nil {
		return nil, err
	}
	if err := setRow(f, SheetOrders, 1, []interface{}{"Order", "Kind", "Pieces", "Area (m2)"}); err != nil {
		return nil, err
	}
	for i, o := range plan.Orders {
		if err := setRow(f, SheetOrders, i+2, []interface{}{o.OrderNo, o.OrderType, o.PieceCount, o.TotalAreaSqm.InexactFloat64()}); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"Plan", plan.ID},
		{"Reference", plan.Reference.String()},
		{"Fabric type", plan.FabricTypeID},
		{"Strategy", plan.Strategy},
		{"Roll width (m)", plan.RollWidthM.InexactFloat64()},
		{"Used length (m)", plan.UsedLengthM.InexactFloat64()},
		{"Used area (m2)", plan.UsedAreaSqm.InexactFloat64()},
		{"Total area (m2)", plan.TotalAreaSqm.InexactFloat64()},
		{"Waste area (m2)", plan.WasteAreaSqm.InexactFloat64()},
		{"Utilization (%)", plan.UtilizationPct.Round(2).InexactFloat64()},
		{"Orders", plan.OrderCount},
		{"Pieces", plan.PieceCount},
	}
	for i, row := range summary {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
