// Package httpapi is the admin HTTP surface of the server: health and
// readiness probes, model repository status, model load, unload and reload,
// the backend snapshot and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelcore/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() ([]types.ModelStatus, error)
	ModelStatus(name string) (types.ModelStatus, error)
	Load(ctx context.Context, name string) error
	Unload(name string) error
	Reload(ctx context.Context, name string) error
	ReloadAsync(name string) (string, error)
	Operation(id string) (types.OperationStatus, bool)
	Backends() []types.BackendStatus
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if settings.cors != nil {
		r.Use(cors.Handler(*settings.cors))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Route("/v2", func(r chi.Router) {
		r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
			models, err := svc.Models()
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
		})

		r.Get("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
			ms, err := svc.ModelStatus(chi.URLParam(r, "name"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, ms)
		})

		r.Post("/models/{name}/load", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			act := startAction(r, "load", name)
			ctx, cancel := requestContext(r)
			defer cancel()
			if err := svc.Load(ctx, name); err != nil {
				act.end(writeError(w, err), err)
				return
			}
			respondModel(w, svc, name)
			act.end(http.StatusOK, nil)
		})

		r.Post("/models/{name}/unload", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			act := startAction(r, "unload", name)
			if err := svc.Unload(name); err != nil {
				act.end(writeError(w, err), err)
				return
			}
			respondModel(w, svc, name)
			act.end(http.StatusOK, nil)
		})

		r.Post("/models/{name}/reload", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			act := startAction(r, "reload", name)
			if isTrue(r.URL.Query().Get("async")) {
				id, err := svc.ReloadAsync(name)
				if err != nil {
					act.end(writeError(w, err), err)
					return
				}
				op, ok := svc.Operation(id)
				if !ok {
					op = types.OperationStatus{ID: id, Model: name, State: "pending"}
				}
				w.Header().Set("Location", "/v2/operations/"+id)
				writeJSON(w, http.StatusAccepted, op)
				act.end(http.StatusAccepted, nil)
				return
			}
			ctx, cancel := requestContext(r)
			defer cancel()
			if err := svc.Reload(ctx, name); err != nil {
				act.end(writeError(w, err), err)
				return
			}
			respondModel(w, svc, name)
			act.end(http.StatusOK, nil)
		})

		r.Get("/operations/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			op, ok := svc.Operation(id)
			if !ok {
				writeJSONError(w, http.StatusNotFound, "operation '"+id+"' not found")
				return
			}
			writeJSON(w, http.StatusOK, op)
		})

		r.Get("/backends", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.BackendsResponse{Backends: svc.Backends()})
		})
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// respondModel writes the current status of name after a lifecycle action.
func respondModel(w http.ResponseWriter, svc Service, name string) {
	ms, err := svc.ModelStatus(name)
	if err != nil {
		// Unloaded and gone from the repository.
		ms = types.ModelStatus{Name: name, State: "unavailable"}
	}
	writeJSON(w, http.StatusOK, ms)
}

func isTrue(v string) bool {
	switch v {
	case "1", "true", "yes":
		return true
	}
	return false
}
