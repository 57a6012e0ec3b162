package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the matching endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/matches/quick", h.HandleQuickMatch)
	r.Post("/matches/generate", h.HandleGenerateMatches)
	r.Get("/suggestions", h.HandleGetSuggestions)
	r.Post("/suggestions/{id}/status", h.HandleUpdateStatus)
	r.Get("/health", h.HandleHealth)
}

func (h *Handler) HandleQuickMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolunteerID string `json:"volunteerId"`
		Limit       int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	suggestions, err := h.service.QuickMatch(r.Context(), req.VolunteerID, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuggestions(w, suggestions, http.StatusCreated)
}

func (h *Handler) HandleGenerateMatches(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolunteerID string   `json:"volunteerId"`
		Category    string   `json:"category"`
		Skills      []string `json:"skills"`
		Limit       int      `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := OpportunityFilter{Category: req.Category, Skills: req.Skills}
	suggestions, err := h.service.GenerateMatches(r.Context(), req.VolunteerID, filter, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuggestions(w, suggestions, http.StatusCreated)
}

func (h *Handler) HandleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	volunteerID := r.URL.Query().Get("volunteerId")
	if volunteerID == "" {
		http.Error(w, "volunteerId query parameter required", http.StatusBadRequest)
		return
	}

	suggestions, err := h.service.GetSuggestions(r.Context(), volunteerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuggestions(w, suggestions, http.StatusOK)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid suggestion ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	suggestion, err := h.service.UpdateSuggestionStatus(r.Context(), id, strings.ToLower(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestion)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HealthCheck(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func writeSuggestions(w http.ResponseWriter, suggestions []*MatchSuggestion, status int) {
	if suggestions == nil {
		suggestions = []*MatchSuggestion{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(suggestions)
}

// writeError maps the error taxonomy to HTTP statuses the same way the
// applications service does.
func writeError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		http.Error(w, validation.Reason, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
