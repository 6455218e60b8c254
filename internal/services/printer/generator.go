package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/fabricplan/internal/models"
)

// QRPrefix starts the content of every plan QR code
const QRPrefix = "FABRICPLAN/"

// SheetConfig holds configuration for cut sheet generation
type SheetConfig struct {
	// DrawingHeight is the height in mm reserved for the roll drawing on page one
	DrawingHeight float64 `json:"drawingHeight"`
	// PieceQR prints a small QR code with the barcode next to each table row
	PieceQR bool `json:"pieceQr"`
}

// DefaultSheetConfig is used when the caller has no preference
var DefaultSheetConfig = SheetConfig{DrawingHeight: 90, PieceQR: true}

const (
	pageW, pageH = 297.0, 210.0 // A4 landscape
	margin       = 10.0
	rowH         = 7.0
)

// PlanQRContent is the text encoded in a plan's QR code
func PlanQRContent(plan *models.Plan) string {
	return QRPrefix + plan.Reference.String()
}

// CutSheetPDF renders a plan as a printable cut sheet: summary, a scaled drawing
// of the roll and the list of pieces in placement order.
func CutSheetPDF(plan *models.Plan, cfg SheetConfig) ([]byte, error) {
	if cfg.DrawingHeight <= 0 {
		cfg.DrawingHeight = DefaultSheetConfig.DrawingHeight
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	if err := placeQR(pdf, "plan", PlanQRContent(plan), pageW-margin-30, margin, 30); err != nil {
		return nil, err
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(0, 8, fmt.Sprintf("Cut plan #%d  fabric %s", plan.ID, plan.FabricTypeID), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	lines := []string{
		fmt.Sprintf("Reference: %s   Status: %s   Strategy: %s", plan.Reference, plan.Status, plan.Strategy),
		fmt.Sprintf("Roll width: %s m   Used length: %s m   Spacing outer/inner: %s / %s m",
			plan.RollWidthM.StringFixed(2), plan.UsedLengthM.StringFixed(2),
			plan.OuterSpacing.StringFixed(2), plan.InnerSpacing.StringFixed(2)),
		fmt.Sprintf("Used area: %s m2   Total area: %s m2   Waste: %s m2   Utilization: %s %%",
			plan.UsedAreaSqm.StringFixed(2), plan.TotalAreaSqm.StringFixed(2),
			plan.WasteAreaSqm.StringFixed(2), plan.UtilizationPct.StringFixed(2)),
		fmt.Sprintf("Orders: %d   Pieces: %d", plan.OrderCount, plan.PieceCount),
	}
	for _, l := range lines {
		pdf.CellFormat(0, 5, l, "", 1, "L", false, 0, "")
	}

	drawRoll(pdf, plan, margin, margin+34, pageW-2*margin, cfg.DrawingHeight)

	y := margin + 38 + cfg.DrawingHeight
	y = tableHeader(pdf, y)
	for i, it := range plan.Items {
		if y+rowH > pageH-margin {
			pdf.AddPage()
			y = tableHeader(pdf, margin)
		}
		if err := tableRow(pdf, i, it, y, cfg.PieceQR); err != nil {
			return nil, err
		}
		y += rowH
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawRoll draws the used part of the roll with every piece, scaled to fit the box.
// The roll runs left to right on paper; roll X becomes paper Y.
func drawRoll(pdf *gofpdf.Fpdf, plan *models.Plan, x, y, w, h float64) {
	rollW := plan.RollWidthM.InexactFloat64()
	rollL := plan.UsedLengthM.InexactFloat64()
	if rollW <= 0 || rollL <= 0 {
		return
	}
	scale := w / rollL
	if s := h / rollW; s < scale {
		scale = s
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Rect(x, y, rollL*scale, rollW*scale, "D")

	pdf.SetLineWidth(0.1)
	pdf.SetFillColor(220, 230, 245)
	pdf.SetFont("Arial", "", 6)
	for _, it := range plan.Items {
		px := x + it.YPosition.InexactFloat64()*scale
		py := y + it.XPosition.InexactFloat64()*scale
		pw := it.Length.InexactFloat64() * scale
		ph := it.Width.InexactFloat64() * scale
		pdf.Rect(px, py, pw, ph, "FD")
		if pw > 12 && ph > 4 {
			pdf.SetXY(px, py+ph/2-2)
			pdf.CellFormat(pw, 4, it.BarcodeNo, "", 0, "C", false, 0, "")
		}
	}
}

var columns = []struct {
	title string
	width float64
}{
	{"#", 10}, {"Barcode", 45}, {"Order", 35}, {"Kind", 20},
	{"X (m)", 22}, {"Y (m)", 22}, {"Width (m)", 24}, {"Length (m)", 24}, {"Rotated", 18}, {"Area (m2)", 24},
}

func tableHeader(pdf *gofpdf.Fpdf, y float64) float64 {
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(235, 235, 235)
	pdf.SetXY(margin, y)
	for _, c := range columns {
		pdf.CellFormat(c.width, rowH, c.title, "1", 0, "C", true, 0, "")
	}
	return y + rowH
}

func tableRow(pdf *gofpdf.Fpdf, i int, it models.PlanItem, y float64, withQR bool) error {
	rotated := ""
	if it.IsRotated {
		rotated = "yes"
	}
	cells := []string{
		fmt.Sprintf("%d", it.Sequence), it.BarcodeNo, it.OrderNo, it.OrderType,
		it.XPosition.StringFixed(3), it.YPosition.StringFixed(3),
		it.Width.StringFixed(3), it.Length.StringFixed(3), rotated, it.AreaSqm.StringFixed(3),
	}

	pdf.SetFont("Arial", "", 8)
	pdf.SetXY(margin, y)
	for j, c := range columns {
		pdf.CellFormat(c.width, rowH, cells[j], "1", 0, "C", false, 0, "")
	}
	if withQR {
		return placeQR(pdf, fmt.Sprintf("piece_%d", i), it.BarcodeNo, pdf.GetX()+1, y+0.5, rowH-1)
	}
	return nil
}

func placeQR(pdf *gofpdf.Fpdf, name, content string, x, y, size float64) error {
	png, err := qrcode.Encode(content, qrcode.Low, 256)
	if err != nil {
		return fmt.Errorf("qr for %s: %w", content, err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, x, y, size, size, false, opts, 0, "")
	return nil
}
