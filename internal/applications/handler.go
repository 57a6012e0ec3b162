package applications

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the application endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/applications", h.HandleSubmit)
	r.Get("/applications", h.HandleList)
	r.Get("/applications/{id}", h.HandleGet)
	r.Post("/applications/{id}/transition", h.HandleTransition)
	r.Get("/health", h.HandleHealth)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolunteerID    string `json:"volunteerId"`
		OpportunityID  string `json:"opportunityId"`
		OrganizationID string `json:"organizationId"`
		CoverLetter    string `json:"coverLetter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	application, err := h.service.SubmitApplication(r.Context(), SubmitApplicationCommand{
		VolunteerID:    req.VolunteerID,
		OpportunityID:  req.OpportunityID,
		OrganizationID: req.OrganizationID,
		CoverLetter:    req.CoverLetter,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(application)
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid application ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	application, err := h.service.UpdateApplicationState(r.Context(), id, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(application)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid application ID", http.StatusBadRequest)
		return
	}

	application, err := h.service.GetApplication(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(application)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		applications []*Application
		err          error
	)

	switch {
	case r.URL.Query().Get("volunteerId") != "":
		applications, err = h.service.GetVolunteerApplications(r.Context(), r.URL.Query().Get("volunteerId"))
	case r.URL.Query().Get("opportunityId") != "":
		applications, err = h.service.GetOpportunityApplications(r.Context(), r.URL.Query().Get("opportunityId"))
	default:
		http.Error(w, "volunteerId or opportunityId query parameter required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if applications == nil {
		applications = []*Application{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(applications)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HealthCheck(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// writeError maps the error taxonomy to HTTP statuses: validation -> 422,
// not found -> 404, conflicts -> 409, everything else -> 500.
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
