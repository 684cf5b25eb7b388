// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ski_resort_finder/internal/domain"
)

const (
	maxBodyBytes      = 16 << 10
	reviewsPerResort  = 5
	msgNotFound       = "No ski resorts found for the given query"
	msgUnavailable    = "Ski resort finder not initialized. Please check API key configuration."
	msgInternal       = "An error occurred while processing your request"
	msgQueryRequired  = "Query is required"
	msgInvalidPayload = "Request body must be JSON like {\"query\": \"ski resorts near Amherst\"}"
)

// Searcher is the pipeline boundary the handlers depend on.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.RankedResort, error)
}

type Handlers struct {
	S                Searcher
	APIKeyConfigured bool
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	// Error mirrors Detail for clients that read data.error.
	Error string `json:"error"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type reviewView struct {
	Author string  `json:"author"`
	Rating float64 `json:"rating"`
	Text   string  `json:"text"`
	When   string  `json:"relative_time,omitempty"`
}

type resortView struct {
	Rank       int          `json:"rank"`
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	Rating     float64      `json:"rating"`
	Distance   *float64     `json:"distance"`
	Lat        float64      `json:"lat"`
	Lng        float64      `json:"lng"`
	PlaceID    string       `json:"place_id,omitempty"`
	Website    string       `json:"website,omitempty"`
	Reviews    []reviewView `json:"reviews"`
	Score      float64      `json:"score"`
	Similarity float64      `json:"similarity"`
}

type statusView struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/api/search", h.search)
	s.mux.Get("/api/test", h.status)
	// routes kept for older frontends
	s.mux.Post("/search", h.search)
	s.mux.Get("/test", h.status)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	msg := detail
	if msg == "" {
		msg = title
	}
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Error: msg}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Bad Request", msgInvalidPayload)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", msgQueryRequired)
		return
	}

	res, err := h.S.Search(r.Context(), req.Query)
	if err != nil {
		h.writeSearchError(w, r, err)
		return
	}
	out := make([]resortView, 0, len(res))
	for _, rr := range res {
		out = append(out, toView(rr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeProblem(w, http.StatusBadRequest, "Bad Request", msgQueryRequired)
	case domain.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, "Not Found", msgNotFound)
	case errors.Is(err, domain.ErrUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", msgUnavailable)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("route", r.URL.Path).Msg("search failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", msgInternal)
	}
}

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusView{
		Status:           "ok",
		Message:          "Ski resort finder API is running",
		APIKeyConfigured: h.APIKeyConfigured,
	})
}

func toView(r domain.RankedResort) resortView {
	v := resortView{
		Rank:       r.Rank,
		Name:       r.Name,
		Address:    r.Address,
		Rating:     r.Rating,
		Lat:        r.Lat,
		Lng:        r.Lon,
		PlaceID:    r.PlaceID,
		Website:    r.Website,
		Reviews:    []reviewView{},
		Score:      round(r.Score, 4),
		Similarity: round(r.Similarity, 4),
	}
	if r.DistanceKm != nil {
		d := round(*r.DistanceKm, 2)
		v.Distance = &d
	}
	for i, rv := range r.Reviews {
		if i == reviewsPerResort {
			break
		}
		v.Reviews = append(v.Reviews, reviewView{Author: rv.AuthorName, Rating: rv.Rating, Text: rv.Text, When: rv.RelativeTime})
	}
	return v
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
