// Package api exposes postal code lookups over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/postal-codes/pkg/kit"
	"github.com/hazyhaar/postal-codes/pkg/loader"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter returns an http.Handler with all postal code API routes.
// Metrics are served from the default Prometheus registry.
func NewRouter(l *loader.Loader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{
		eps: newEndpoints(l, func(name string) kit.Middleware {
			return kit.Logging(logger, name)
		}),
		l: l,
	}

	mux.HandleFunc("GET /v1/countries", h.handleCountries)
	mux.HandleFunc("GET /v1/{country}/info/{code}", h.handleLookup)
	mux.HandleFunc("GET /v1/{country}/distance/{start}/{end}", h.handleDistance)
	mux.HandleFunc("GET /v1/{country}/random", h.handleRandom)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return securityHeaders(cors(requestID(mux)))
}

type handler struct {
	eps endpoints
	l   *loader.Loader
}

func (h *handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.lookup, &lookupReq{
		Country: r.PathValue("country"),
		Code:    r.PathValue("code"),
	})
}

func (h *handler) handleDistance(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.distance, &distanceReq{
		Country: r.PathValue("country"),
		Start:   r.PathValue("start"),
		End:     r.PathValue("end"),
	})
}

func (h *handler) handleRandom(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.random, &randomReq{
		Country: r.PathValue("country"),
		Seed:    r.URL.Query().Get("seed"),
	})
}

func (h *handler) handleCountries(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.countries, nil)
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		code, msg := statusFor(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status          string `json:"status"`
	Countries       int    `json:"countries"`
	CountriesCached int    `json:"countries_cached"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Countries:       h.l.Registry().Len(),
		CountriesCached: h.l.Cache().Len(),
	})
}

// --- helpers ---

// statusFor maps a pipeline error to a status code and a public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, loader.ErrUnknownCountry):
		return http.StatusNotFound, loader.ErrUnknownCountry.Error()
	case errors.Is(err, ErrUnknownCode):
		return http.StatusNotFound, ErrUnknownCode.Error()
	case errors.Is(err, loader.ErrUnavailable), errors.Is(err, loader.ErrNoData):
		return http.StatusServiceUnavailable, loader.ErrUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID tags the context with the transport and a request ID, reusing the
// caller's X-Request-ID when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = kit.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// securityHeaders adds standard security headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
