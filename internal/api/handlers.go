// Package api exposes HTTP handlers for the activity directory.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/extracurricular/internal/domain"
)

// IndexPath is where the root path redirects browsers to.
const IndexPath = "/static/index.html"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", redirectToIndex)
	mux.HandleFunc("GET /activities", h.listActivities)
	mux.HandleFunc("POST /activities/{activity_id}/signup", h.signup)
	mux.HandleFunc("DELETE /activities/{activity_id}/unregister", h.unregister)
	mux.HandleFunc("GET /healthz", healthz)

	// Method-less fallbacks so wrong verbs get a JSON body instead of the mux's plain text.
	mux.HandleFunc("/{$}", methodNotAllowed)
	mux.HandleFunc("/activities", methodNotAllowed)
	mux.HandleFunc("/activities/{activity_id}/signup", methodNotAllowed)
	mux.HandleFunc("/activities/{activity_id}/unregister", methodNotAllowed)
	mux.HandleFunc("/", notFound)
}

func redirectToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, IndexPath, http.StatusTemporaryRedirect)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	message, err := h.service.SignUp(r.Context(), r.PathValue("activity_id"), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	message, err := h.service.Unregister(r.Context(), r.PathValue("activity_id"), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// emailParam requires the email query parameter to be present. An empty value is accepted.
func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	values, ok := r.URL.Query()["email"]
	if !ok || len(values) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "email query parameter is required")
		return "", false
	}
	return values[0], true
}

// ActivityView is the summary returned by GET /activities.
type ActivityView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Participants []string `json:"participants"`
}

// MessageResponse confirms a successful sign up or unregistration.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries a human-readable failure detail.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "Activity not found")
	case errors.Is(err, domain.ErrAlreadySignedUp):
		writeError(w, http.StatusBadRequest, "Student already signed up for this activity")
	case errors.Is(err, domain.ErrNotSignedUp):
		writeError(w, http.StatusBadRequest, "Student not signed up for this activity")
	case errors.Is(err, domain.ErrActivityFull):
		writeError(w, http.StatusBadRequest, "Activity is full")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(a domain.Activity) ActivityView {
	participants := a.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		Participants: participants,
	}
}
