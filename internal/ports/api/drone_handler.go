package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"drone-deployment-planner/internal/application"
	"drone-deployment-planner/internal/domain"
)

// DroneHandler handles HTTP requests for the drone directory.
type DroneHandler struct {
	droneService *application.DroneService
	authService  *application.AuthService
}

// NewDroneHandler creates a new DroneHandler.
func NewDroneHandler(droneService *application.DroneService, authService *application.AuthService) *DroneHandler {
	return &DroneHandler{
		droneService: droneService,
		authService:  authService,
	}
}

// RegisterRoutes registers routes for DroneHandler.
func (h *DroneHandler) RegisterRoutes(r chi.Router) {
	r.Route("/drones", func(r chi.Router) {
		r.Get("/", h.ListDrones)
		r.Get("/search", h.SearchDrones)
		r.Get("/pinned", h.PinnedDrones)
		r.Get("/recent", h.RecentlyUsed)
		r.Get("/{id}", h.GetDrone)
		r.Post("/{id}/pin", h.PinDrone)
		r.Delete("/{id}/pin", h.UnpinDrone)
	})
}

// ListDrones handles GET /drones.
func (h *DroneHandler) ListDrones(w http.ResponseWriter, r *http.Request) {
	drones, err := h.droneService.ListDrones(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(drones); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// SearchDrones handles GET /drones/search?q=.
func (h *DroneHandler) SearchDrones(w http.ResponseWriter, r *http.Request) {
	drones, err := h.droneService.SearchDrones(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(drones); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// GetDrone handles GET /drones/{id}.
func (h *DroneHandler) GetDrone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid drone ID", http.StatusBadRequest)
		return
	}

	drone, err := h.droneService.GetDrone(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(drone); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// PinDrone handles POST /drones/{id}/pin.
func (h *DroneHandler) PinDrone(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid drone ID", http.StatusBadRequest)
		return
	}

	var request struct {
		Config *domain.PinnedConfig `json:"config"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	pinned, err := h.droneService.PinDrone(r.Context(), operator.ID, id, request.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(pinned); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UnpinDrone handles DELETE /drones/{id}/pin.
func (h *DroneHandler) UnpinDrone(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid drone ID", http.StatusBadRequest)
		return
	}

	if err := h.droneService.UnpinDrone(r.Context(), operator.ID, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PinnedDrones handles GET /drones/pinned.
func (h *DroneHandler) PinnedDrones(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pinned, err := h.droneService.PinnedDrones(r.Context(), operator.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pinned); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// RecentlyUsed handles GET /drones/recent.
func (h *DroneHandler) RecentlyUsed(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recent, err := h.droneService.RecentlyUsed(r.Context(), operator.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recent); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
