// Package httpapi exposes the core-exposed interfaces of spec.md §6
// over HTTP, grounded on the teacher-pack's chi-router API shape
// (canyonroad-agentsh's internal/api.App), for hosts that prefer a
// sidecar process over linking this module directly.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cookiesolver/cookiesolver/internal/classifier/pipeline"
	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/pkg/descriptor"
)

// App is the HTTP front end over the classifier's core-exposed
// operations. Analyze is intentionally not exposed here: it needs a
// live hostproxy.Request, which only the host process holds.
type App struct {
	pipeline *pipeline.Pipeline
	log      logger.Logger
}

func NewApp(p *pipeline.Pipeline) *App {
	return &App{pipeline: p, log: logger.NewNop()}
}

// WithLogger attaches a logger used for the request-id middleware.
func (a *App) WithLogger(l logger.Logger) *App {
	a.log = l
	return a
}

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requestID)

	r.Route("/api/v1/cookies", func(r chi.Router) {
		r.Get("/", a.listAll)
		r.Get("/{name}", a.getCached)
		r.Put("/{name}", a.upsert)
		r.Delete("/{name}", a.delete)
	})
	r.Get("/api/v1/statistics", a.statistics)

	return r
}

// requestID tags every response with a unique correlation id, the
// way the teacher pack's chi-based API (canyonroad-agentsh) tags
// session/event ids with google/uuid.
func (a *App) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		a.log.Debug("http request", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (a *App) listAll(w http.ResponseWriter, r *http.Request) {
	descriptors, err := a.pipeline.ListAll()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, descriptors)
}

func (a *App) getCached(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := a.pipeline.GetCookieInfoCached(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *App) upsert(w http.ResponseWriter, r *http.Request) {
	var d descriptor.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	d.Name = chi.URLParam(r, "name")
	d.Source = descriptor.SourceManual
	if err := a.pipeline.UpsertCookieInfo(d); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *App) delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := a.pipeline.DeleteCookieInfo(name); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *App) statistics(w http.ResponseWriter, r *http.Request) {
	stats := a.pipeline.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_size":      stats.QueueSize,
		"in_flight":       stats.InFlight,
		"processed":       stats.Processed,
		"cache_hits":      stats.CacheHits,
		"ai_queries":      stats.AIQueries,
		"cache_hit_rate":  stats.CacheHitRate(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
