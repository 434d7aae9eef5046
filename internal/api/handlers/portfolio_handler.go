package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/auth"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/database"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/models"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/services"
)

// PortfolioHandler handles HTTP requests for a user's portfolio. All routes
// sit behind the token middleware, so the authenticated user is taken from
// the request context.
type PortfolioHandler struct {
	service services.PortfolioServiceProvider
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(service services.PortfolioServiceProvider) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

// PositionPayload defines the structure for add-position requests.
type PositionPayload struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	Shares       float64 `json:"shares"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Type         string  `json:"type"`
}

// DividendPayload defines the structure for add-dividend requests.
type DividendPayload struct {
	Ticker string  `json:"ticker"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Type   string  `json:"type"`
}

// Get returns the authenticated user's portfolio snapshot.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	snapshot, err := h.service.GetPortfolio(r.Context(), user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// AddPosition upserts a position for the authenticated user.
func (h *PortfolioHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload PositionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	position := models.Position{
		Ticker:       payload.Ticker,
		Name:         payload.Name,
		Shares:       payload.Shares,
		AvgPrice:     payload.AvgPrice,
		CurrentPrice: payload.CurrentPrice,
		AssetType:    payload.Type,
	}
	if err := h.service.AddPosition(r.Context(), user.ID, position); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "position added"})
}

// AddDividend appends a dividend record for the authenticated user.
func (h *PortfolioHandler) AddDividend(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload DividendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	paidAt, err := time.Parse(database.DateLayout, payload.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	record := models.DividendRecord{
		Ticker:       payload.Ticker,
		Amount:       payload.Amount,
		PaymentDate:  paidAt,
		DividendType: payload.Type,
	}
	if err := h.service.AddDividend(r.Context(), user.ID, record); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "dividend recorded"})
}
