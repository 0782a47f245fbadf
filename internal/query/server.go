// Package query exposes the engine over HTTP.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FlowSpectra/internal/engine/aggregate"
	"FlowSpectra/internal/engine/category"
	"FlowSpectra/internal/engine/manager"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

// Engine is the query surface of the manager.
type Engine interface {
	Find(ctx context.Context, tag model.IndexTag, id uint32) (model.Record, bool, error)
	Stat(ctx context.Context, feature string, window int) (model.WindowStats, error)
	Histogram(ctx context.Context, feature string, window, bins int) ([]aggregate.Bin, error)
	Lookup(ctx context.Context, attr, value string) ([]uint32, error)
	Distribution(ctx context.Context, attr string) (map[string]int, error)
	Evict(ctx context.Context, batch int) ([]uint32, error)
	EvictBatch() int
	Diagnostics(ctx context.Context) (manager.Diagnostics, error)
	Consistency(ctx context.Context) error
}

// APIHandler holds the dependencies of the HTTP handlers.
type APIHandler struct {
	engine  Engine
	history Querier
	log     *slog.Logger
}

const apiPrefix = "/api/v1"

// NewRouter registers every route. history may be nil, in which case the
// history endpoint is not served. gatherer backs /metrics.
func NewRouter(engine Engine, history Querier, gatherer prometheus.Gatherer, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &APIHandler{engine: engine, history: history, log: logger.With("component", "api")}

	// Routes sit on the root router so a method mismatch answers 405.
	r := mux.NewRouter()
	r.HandleFunc(apiPrefix+"/indexes/{tag}/records/{id}", h.findHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/stats", h.statsHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/histogram", h.histogramHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/categories/{attribute}", h.distributionHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/categories/{attribute}/{value}", h.lookupHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/evict", h.evictHandler).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/diagnostics", h.diagnosticsHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/consistency", h.consistencyHandler).Methods(http.MethodGet)
	if history != nil {
		r.HandleFunc(apiPrefix+"/history", h.historyHandler).Methods(http.MethodGet)
	}
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("failed to write response", "error", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, factory.ErrUnknownIndex),
		errors.Is(err, model.ErrUnknownFeature),
		errors.Is(err, category.ErrUnknownAttribute),
		errors.Is(err, category.ErrUnknownValue):
		status = http.StatusBadRequest
	case errors.Is(err, manager.ErrStopped), errors.Is(err, manager.ErrNotStarted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	http.Error(w, err.Error(), status)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

func (h *APIHandler) findHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tag, ok := model.ParseIndexTag(vars["tag"])
	if !ok {
		http.Error(w, fmt.Sprintf("unknown index %q", vars["tag"]), http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid id %q", vars["id"]), http.StatusBadRequest)
		return
	}
	rec, found, err := h.engine.Find(r.Context(), tag, uint32(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		http.Error(w, fmt.Sprintf("record %d not found", id), http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *APIHandler) statsHandler(w http.ResponseWriter, r *http.Request) {
	window, err := intParam(r, "window", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := h.engine.Stat(r.Context(), r.URL.Query().Get("feature"), window)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *APIHandler) histogramHandler(w http.ResponseWriter, r *http.Request) {
	window, err := intParam(r, "window", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bins, err := intParam(r, "bins", aggregate.DefaultBins)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := h.engine.Histogram(r.Context(), r.URL.Query().Get("feature"), window, bins)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if out == nil {
		out = []aggregate.Bin{}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) lookupHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ids, err := h.engine.Lookup(r.Context(), vars["attribute"], vars["value"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"count": len(ids), "ids": ids})
}

func (h *APIHandler) distributionHandler(w http.ResponseWriter, r *http.Request) {
	dist, err := h.engine.Distribution(r.Context(), mux.Vars(r)["attribute"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dist)
}

// evictHandler evicts the configured batch size unless batch is given.
func (h *APIHandler) evictHandler(w http.ResponseWriter, r *http.Request) {
	batch, err := intParam(r, "batch", h.engine.EvictBatch())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if batch < 0 {
		http.Error(w, fmt.Sprintf("batch must not be negative, got %d", batch), http.StatusBadRequest)
		return
	}
	ids, err := h.engine.Evict(r.Context(), batch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"evicted": ids})
}

func (h *APIHandler) diagnosticsHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.Diagnostics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

func (h *APIHandler) consistencyHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Consistency(r.Context()); err != nil {
		if errors.Is(err, manager.ErrStopped) || errors.Is(err, r.Context().Err()) {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusConflict, map[string]any{"consistent": false, "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"consistent": true})
}

func (h *APIHandler) historyHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(r, "limit", 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := HistoryRequest{Feature: q.Get("feature"), RunID: q.Get("run_id"), Limit: limit}
	if s := q.Get("since"); s != "" {
		req.Since, err = time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid since %q: %v", s, err), http.StatusBadRequest)
			return
		}
	}
	points, err := h.history.WindowHistory(r.Context(), req)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query history: %v", err), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}
