package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/buildinfo"
	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/middleware"
	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xelth-com/fabricplan/internal/packing"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
	"github.com/xelth-com/fabricplan/internal/services/layouts"
	"github.com/xelth-com/fabricplan/internal/services/planner"
	"github.com/xelth-com/fabricplan/internal/websocket"
	"github.com/xelth-com/fabricplan/web"
)

// CatalogService is what the API reads from the piece catalog
type CatalogService interface {
	FabricTypes(ctx context.Context) ([]models.FabricType, error)
	FabricType(ctx context.Context, id string) (*models.FabricType, error)
	UnplannedOrders(ctx context.Context, fabricTypeID string) ([]models.OrderSummary, error)
}

// PlanService previews, commits and manages plans
type PlanService interface {
	Preview(ctx context.Context, req planner.PreviewRequest) (*planner.Preview, error)
	Commit(ctx context.Context, req planner.CommitRequest) (*models.Plan, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, fabricTypeID string) ([]models.Plan, error)
	Get(ctx context.Context, id uint) (*models.Plan, error)
}

// LayoutService manages persisted layouts
type LayoutService interface {
	Options(ctx context.Context, req layouts.OptionsRequest) ([]packing.Outcome, error)
	Calculate(ctx context.Context, req layouts.CalculateRequest) (*models.Layout, error)
	Materialize(ctx context.Context, planID uint) (*models.Layout, error)
	List(ctx context.Context) ([]models.Layout, error)
	Get(ctx context.Context, id uint) (*models.Layout, error)
	Delete(ctx context.Context, id uint) error
}

// Services bundles what the router serves. Hub and Metrics may be nil.
type Services struct {
	Catalog CatalogService
	Plans   PlanService
	Layouts LayoutService
	Hub     *websocket.Hub
	Metrics http.Handler
}

// Router wraps the mux router and the planning services
type Router struct {
	*mux.Router
	cfg *config.Config
	svc Services
}

var _ CatalogService = (*catalog.Service)(nil)
var _ PlanService = (*planner.Service)(nil)
var _ LayoutService = (*layouts.Service)(nil)

// NewRouter creates a new HTTP router with all routes
func NewRouter(cfg *config.Config, svc Services) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		cfg:    cfg,
		svc:    svc,
	}
	protect := middleware.Auth(cfg.JWTSecret)
	guarded := func(h http.HandlerFunc) http.Handler { return protect(h) }

	r.Use(middleware.RequestID)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	if svc.Metrics != nil {
		r.Handle("/metrics", svc.Metrics).Methods("GET")
	}
	if svc.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(svc.Hub, w, req)
		})
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// Catalog
	api.HandleFunc("/fabric-types", r.listFabricTypes).Methods("GET")
	api.HandleFunc("/fabric-types/{id}", r.getFabricType).Methods("GET")
	api.HandleFunc("/orders", r.listUnplannedOrders).Methods("GET")

	// Layouts
	api.HandleFunc("/layouts/preview", r.previewLayout).Methods("POST")
	api.HandleFunc("/layouts/options", r.layoutOptions).Methods("POST")
	api.Handle("/layouts/calculate", guarded(r.calculateLayout)).Methods("POST")
	api.HandleFunc("/layouts", r.listLayouts).Methods("GET")
	api.HandleFunc("/layouts/{id:[0-9]+}", r.getLayout).Methods("GET")
	api.Handle("/layouts/{id:[0-9]+}", guarded(r.deleteLayout)).Methods("DELETE")

	// Plans
	api.HandleFunc("/plans", r.listPlans).Methods("GET")
	api.Handle("/plans", guarded(r.commitPlan)).Methods("POST")
	api.HandleFunc("/plans/{id:[0-9]+}", r.getPlan).Methods("GET")
	api.Handle("/plans/{id:[0-9]+}", guarded(r.deletePlan)).Methods("DELETE")
	api.Handle("/plans/{id:[0-9]+}/layout", guarded(r.materializePlan)).Methods("POST")
	api.HandleFunc("/plans/{id:[0-9]+}/export.pdf", r.exportPlanPDF).Methods("GET")
	api.HandleFunc("/plans/{id:[0-9]+}/export.xlsx", r.exportPlanXLSX).Methods("GET")

	// Planner UI
	if ui, err := web.GetFileSystem(cfg.FrontendDir); err != nil {
		log.Printf("⚠️ Planner UI unavailable: %v", err)
	} else {
		r.PathPrefix("/").Handler(http.FileServer(http.FS(ui)))
	}

	return r
}

// Handler returns the router wrapped in the outer middleware
func (r *Router) Handler() http.Handler {
	return middleware.CaseInsensitiveAPI(r)
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus returns build and runtime information
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	status := buildinfo.Info()
	status["status"] = "running"
	status["env"] = r.cfg.NodeEnv
	status["auth"] = r.cfg.AuthEnabled()
	status["outer_spacing"] = r.cfg.Layout.OuterSpacing
	status["inner_spacing"] = r.cfg.Layout.InnerSpacing
	if r.svc.Hub != nil {
		status["ws_clients"] = r.svc.Hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// conflictResponse is the 409 body for orders that are already planned
type conflictResponse struct {
	Error          string   `json:"error"`
	LockedOrderNos []string `json:"locked_order_nos"`
}

// respondServiceError maps a service error to its HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	if conflict, ok := apperr.AsConflict(err); ok {
		respondJSON(w, http.StatusConflict, conflictResponse{
			Error:          "Orders already planned",
			LockedOrderNos: conflict.LockedOrderNos,
		})
		return
	}
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("❌ Request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal error, the operation was not applied")
	}
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
