package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"drone-deployment-planner/internal/application"
	"drone-deployment-planner/internal/deployment"
	"drone-deployment-planner/internal/domain"
)

// AuthHandler handles login, logout and token verification.
type AuthHandler struct {
	authService *application.AuthService
	manager     *deployment.Manager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *application.AuthService, manager *deployment.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		manager:     manager,
	}
}

// RegisterRoutes registers routes for AuthHandler.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request struct {
		SerialNumber string `json:"serial_number"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	operator, token, err := h.authService.Login(ctx, request.SerialNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := struct {
		Operator *domain.Operator `json:"operator"`
		Token    string           `json:"token"`
	}{
		Operator: operator,
		Token:    token,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Logout handles POST /auth/logout. It drops the operator's deployment
// session; any unsaved configuration is gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.manager.Drop(operator.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	operator, err := authenticate(r, h.authService)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(operator); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// authenticate resolves the bearer token on the request to an operator.
func authenticate(r *http.Request, authService *application.AuthService) (*domain.Operator, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return authService.Verify(r.Context(), token)
}
