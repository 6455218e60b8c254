package handlers

import (
	"fmt"
	"net/http"

	"github.com/xelth-com/fabricplan/internal/services/layouts"
)

// layoutOptions ranks every exploration strategy for a barcode set
func (r *Router) layoutOptions(w http.ResponseWriter, req *http.Request) {
	var body layouts.OptionsRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	options, err := r.svc.Layouts.Options(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, options)
}

// calculateLayout packs and stores a layout, assigning its pieces
func (r *Router) calculateLayout(w http.ResponseWriter, req *http.Request) {
	var body layouts.CalculateRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	layout, err := r.svc.Layouts.Calculate(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/layouts/%d", layout.ID))
	respondJSON(w, http.StatusCreated, layout)
}

func (r *Router) listLayouts(w http.ResponseWriter, req *http.Request) {
	list, err := r.svc.Layouts.List(req.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) getLayout(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	layout, err := r.svc.Layouts.Get(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, layout)
}

func (r *Router) deleteLayout(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	if err := r.svc.Layouts.Delete(req.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
