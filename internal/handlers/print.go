package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/xelth-com/fabricplan/internal/services/printer"
)

// exportPlanPDF renders the plan's cut sheet
func (r *Router) exportPlanPDF(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	plan, err := r.svc.Plans.Get(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	cfg := printer.DefaultSheetConfig
	if req.URL.Query().Get("qr") == "0" {
		cfg.PieceQR = false
	}
	pdfBytes, err := printer.CutSheetPDF(plan, cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}
	sendFile(w, "application/pdf", fmt.Sprintf("plan_%d.pdf", plan.ID), pdfBytes)
}

// exportPlanXLSX renders the plan's cut list workbook
func (r *Router) exportPlanXLSX(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	plan, err := r.svc.Plans.Get(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	xlsx, err := printer.CutListXLSX(plan)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate workbook: %v", err))
		return
	}
	sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fmt.Sprintf("plan_%d.xlsx", plan.ID), xlsx)
}

func sendFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}
