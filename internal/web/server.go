// Package web is the read-only JSON API over the catalog accessors.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/qlemen7/cineexplorer/internal/catalog"
	"github.com/qlemen7/cineexplorer/internal/movie"
)

// Stats is the relational side of the API.
type Stats interface {
	Home(ctx context.Context) catalog.Home
	Charts(ctx context.Context) catalog.Charts
}

// Movies is the document side of the API.
type Movies interface {
	Detail(ctx context.Context, id string) (movie.Document, error)
	Similar(ctx context.Context, genres []string, excludeID string) []movie.Summary
	List(ctx context.Context, q catalog.ListQuery) catalog.Page
	Genres(ctx context.Context) []string
}

// Server wires the accessors to HTTP routes.
type Server struct {
	Stats  Stats
	Movies Movies
	Log    logrus.FieldLogger
}

// Router returns the chi router serving /api.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Route("/api", func(r chi.Router) {
		r.Get("/home", s.handleHome)
		r.Get("/stats", s.handleStats)
		r.Get("/genres", s.handleGenres)
		r.Get("/movies", s.handleList)
		r.Get("/movies/{id}", s.handleDetail)
		r.Get("/movies/{id}/similar", s.handleSimilar)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"elapsed":    time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.WithError(err).Warn("web: encode response")
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Stats.Home(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Stats.Charts(r.Context()))
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Movies.Genres(r.Context()))
}

// ListQueryFromRequest reads page, per_page, q, genre, year, rating and sort.
// Unparsable numbers are treated as absent.
func ListQueryFromRequest(r *http.Request) catalog.ListQuery {
	v := r.URL.Query()
	atoi := func(k string) int {
		n, _ := strconv.Atoi(v.Get(k))
		return n
	}
	rating, _ := strconv.ParseFloat(v.Get("rating"), 64)
	return catalog.ListQuery{
		Page:      atoi("page"),
		PerPage:   atoi("per_page"),
		Q:         v.Get("q"),
		Genre:     v.Get("genre"),
		YearMin:   atoi("year"),
		RatingMin: rating,
		Sort:      v.Get("sort"),
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Movies.List(r.Context(), ListQueryFromRequest(r)))
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) (movie.Document, bool) {
	doc, err := s.Movies.Detail(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, apiError{"movie not found"})
		return doc, false
	case err != nil:
		s.writeJSON(w, http.StatusServiceUnavailable, apiError{"catalog unavailable"})
		return doc, false
	}
	return doc, true
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	if doc, ok := s.detail(w, r); ok {
		s.writeJSON(w, http.StatusOK, doc)
	}
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if doc, ok := s.detail(w, r); ok {
		s.writeJSON(w, http.StatusOK, s.Movies.Similar(r.Context(), doc.Genres, doc.ID))
	}
}
