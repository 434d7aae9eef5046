package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/auth"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/services"
)

// AuthHandler handles HTTP requests for registration, login, and sessions.
// Operations are selected by a routing table keyed on (method, action) where
// action is the query-string discriminator.
type AuthHandler struct {
	service services.AuthServiceProvider
	routes  map[routeKey]http.HandlerFunc
}

type routeKey struct {
	method string
	action string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	h := &AuthHandler{service: service}
	h.routes = map[routeKey]http.HandlerFunc{
		{http.MethodPost, "register"}: h.register,
		{http.MethodPost, "login"}:    h.login,
		{http.MethodPost, "logout"}:   h.logout,
		{http.MethodGet, "verify"}:    h.verify,
	}
	return h
}

// Dispatch routes the request to the operation matching its method and
// action. Unknown combinations are a 400.
func (h *AuthHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	op, ok := h.routes[routeKey{r.Method, r.URL.Query().Get("action")}]
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	op(w, r)
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Register(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), r.Header.Get(auth.TokenHeader)); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.VerifyToken(r.Context(), r.Header.Get(auth.TokenHeader))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
