package requests

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/jwt"
)

// LocationBroadcaster pushes live volunteer positions to WebSocket
// subscribers of a request.
type LocationBroadcaster interface {
	BroadcastLocation(requestID string, lat, lng float64)
}

// Handler exposes help-request HTTP endpoints.
type Handler struct {
	svc *Service
	hub LocationBroadcaster
}

// NewHandler wires a handler to the lifecycle service. hub may be nil.
func NewHandler(svc *Service, hub LocationBroadcaster) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// Routes returns a chi.Router with all request routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth) // all request endpoints need auth

	r.Post("/", h.Create)
	r.Get("/open", h.ListOpen)
	r.Get("/requester/{userID}", h.ListByRequester)
	r.Get("/volunteer/{userID}", h.ListByVolunteer)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/claim", h.Claim)
	r.Patch("/{id}/status", h.Advance)
	r.Patch("/{id}/location", h.UpdateVolunteerLocation)

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	// The authenticated user is the requester.
	if claims := jwt.GetClaims(r.Context()); claims != nil && req.RequesterID == "" {
		req.RequesterID = claims.UserID
		req.RequesterEmail = claims.Email
	}

	created, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.ListOpen(r.Context(), r.URL.Query().Get("city"), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handler) ListByRequester(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.ListByRequester(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handler) ListByVolunteer(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.ListByVolunteer(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	var vol VolunteerInfo
	if err := json.NewDecoder(r.Body).Decode(&vol); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if claims := jwt.GetClaims(r.Context()); claims != nil && vol.VolunteerID == "" {
		vol.VolunteerID = claims.UserID
		vol.Email = claims.Email
	}

	outcome, err := h.svc.Claim(r.Context(), chi.URLParam(r, "id"), vol)
	if err != nil {
		writeError(w, err)
		return
	}
	if !outcome.Claimed {
		// Losing the race is a normal outcome; 409 tells the volunteer
		// the request is gone.
		writeJSON(w, http.StatusConflict, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	updated, err := h.svc.Advance(r.Context(), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) UpdateVolunteerLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var loc LocationUpdate
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	updated, err := h.svc.UpdateVolunteerLocation(r.Context(), id, loc.Lat, loc.Lng)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastLocation(id, updated.Lat, updated.Lng)
	}
	writeJSON(w, http.StatusOK, updated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusOf(err), map[string]string{"error": err.Error()})
}
