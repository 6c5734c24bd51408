package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"drone-deployment-planner/internal/application"
)

// FlightHandler handles HTTP requests for flight history.
type FlightHandler struct {
	flightService *application.FlightService
	authService   *application.AuthService
}

// NewFlightHandler creates a new FlightHandler.
func NewFlightHandler(flightService *application.FlightService, authService *application.AuthService) *FlightHandler {
	return &FlightHandler{
		flightService: flightService,
		authService:   authService,
	}
}

// RegisterRoutes registers routes for FlightHandler.
func (h *FlightHandler) RegisterRoutes(r chi.Router) {
	r.Route("/flights", func(r chi.Router) {
		r.Get("/", h.History)
		r.Get("/{id}/overlay", h.Overlay)
	})
}

// History handles GET /flights.
func (h *FlightHandler) History(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.flightService.History(r.Context(), operator.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Overlay handles GET /flights/{id}/overlay, streaming the stored zone image.
func (h *FlightHandler) Overlay(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.authService); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid flight ID", http.StatusBadRequest)
		return
	}

	image, contentType, err := h.flightService.OverlayImage(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer image.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, image); err != nil {
		// Headers are gone; nothing left to do but log-free abort.
		return
	}
}
