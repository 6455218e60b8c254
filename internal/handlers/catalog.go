package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (r *Router) listFabricTypes(w http.ResponseWriter, req *http.Request) {
	types, err := r.svc.Catalog.FabricTypes(req.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, types)
}

func (r *Router) getFabricType(w http.ResponseWriter, req *http.Request) {
	ft, err := r.svc.Catalog.FabricType(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ft)
}

// listUnplannedOrders returns orders of a fabric type that no plan has claimed yet
func (r *Router) listUnplannedOrders(w http.ResponseWriter, req *http.Request) {
	fabricTypeID := req.URL.Query().Get("fabric_type_id")
	if fabricTypeID == "" {
		respondError(w, http.StatusBadRequest, "fabric_type_id is required")
		return
	}
	orders, err := r.svc.Catalog.UnplannedOrders(req.Context(), fabricTypeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
