package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/fabricplan/internal/services/planner"
)

// pathID parses the {id} route variable
func pathID(w http.ResponseWriter, req *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// previewLayout returns the least-waste packing for a selection
func (r *Router) previewLayout(w http.ResponseWriter, req *http.Request) {
	var body planner.PreviewRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	preview, err := r.svc.Plans.Preview(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// listPlans returns plans, optionally filtered by fabric type
func (r *Router) listPlans(w http.ResponseWriter, req *http.Request) {
	plans, err := r.svc.Plans.List(req.Context(), req.URL.Query().Get("fabric_type_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// getPlan returns one plan with its geometry
func (r *Router) getPlan(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	plan, err := r.svc.Plans.Get(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// commitPlan claims orders into a new plan; 409 lists orders that are already planned
func (r *Router) commitPlan(w http.ResponseWriter, req *http.Request) {
	var body planner.CommitRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	plan, err := r.svc.Plans.Commit(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/plans/%d", plan.ID))
	respondJSON(w, http.StatusCreated, plan)
}

// deletePlan removes a plan and releases its orders
func (r *Router) deletePlan(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	if err := r.svc.Plans.Delete(req.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// materializePlan creates a layout from a plan and assigns its pieces
func (r *Router) materializePlan(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	layout, err := r.svc.Layouts.Materialize(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/layouts/%d", layout.ID))
	respondJSON(w, http.StatusCreated, layout)
}
