package matching

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"helpmatch-service/internal/geo"
	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/jwt"
	"helpmatch-service/pkg/validation"
)

// Handler exposes the volunteer-matching endpoint.
type Handler struct{ matcher *Matcher }

// NewHandler wires a handler to the matcher.
func NewHandler(matcher *Matcher) *Handler { return &Handler{matcher: matcher} }

// Routes returns a chi.Router for the /match mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.Match)
	return r
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil || !validation.ValidateCoordinates(lat, lng) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid lat and lng are required"})
		return
	}

	opts := Options{
		Category: q.Get("category"),
		City:     q.Get("city"),
	}
	if v := q.Get("radius_km"); v != "" {
		opts.RadiusKm, _ = strconv.ParseFloat(v, 64)
	}
	if opts.Category != "" && !validation.ValidateCategory(opts.Category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown category"})
		return
	}

	candidates, err := h.matcher.Match(r.Context(), geo.Point{Lat: lat, Lng: lng}, opts)
	if err != nil {
		writeJSON(w, apperr.StatusOf(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
