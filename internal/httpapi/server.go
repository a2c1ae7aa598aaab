// Package httpapi serves the local admin API used by the version-management UI.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"engined/internal/version"
	"engined/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	Versions(f version.Filter) types.VersionsResponse
	Activate(ctx context.Context, req types.ActivateRequest) (types.ActivateResponse, error)
	Models() ([]types.InstalledModel, error)
	Ready() bool
}

// NewMux builds the admin API router around svc using the options set by Configure.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	o := opts
	if len(o.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: o.CORSOrigins,
			AllowedMethods: corsMethods,
			AllowedHeaders: corsHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/versions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := version.Filter{Mode: q.Get("mode"), CUDA: q.Get("cuda"), TF: q.Get("tf")}
		writeJSON(w, http.StatusOK, svc.Versions(f))
	})

	r.Post("/versions/activate", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, o.MaxBodyBytes)
		var req types.ActivateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !req.Bundled && strings.TrimSpace(req.Version) == "" {
			writeJSONError(w, http.StatusBadRequest, "version is required")
			return
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		// Join server base context with request context so shutdown cancels the download too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if o.ActivateTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, o.ActivateTimeout)
			defer tcancel()
		}
		resp, err := svc.Activate(ctx, req)
		if err != nil {
			// If the client went away or the server is shutting down, just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			code := statusFor(err)
			writeJSONError(w, code, err.Error())
			logEnd(r, lvl, code, start, err)
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
		logEnd(r, lvl, http.StatusAccepted, start, nil)
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		models, err := svc.Models()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("library not loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(b, '\n'))
}
