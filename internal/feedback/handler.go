package feedback

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/jwt"
)

// Handler exposes feedback HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the feedback service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all feedback routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Post("/", h.Create)
	r.Get("/", h.ListAll)
	r.Get("/user/{userID}", h.ListForUser)

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if claims := jwt.GetClaims(r.Context()); claims != nil && req.RaterID == "" {
		req.RaterID = claims.UserID
		req.RaterRole = claims.Role
	}

	resp, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	rated := r.URL.Query().Get("rated") == "true"
	fs, err := h.svc.ListForUser(r.Context(), chi.URLParam(r, "userID"), rated)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	fs, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusOf(err), map[string]string{"error": err.Error()})
}
