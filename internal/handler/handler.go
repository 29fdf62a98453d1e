package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/blob"
	"github.com/prepdeck/backend/internal/ledger"
	"github.com/prepdeck/backend/internal/model"
	"github.com/prepdeck/backend/internal/qcache"
	"github.com/prepdeck/backend/internal/ratelimit"
	"github.com/prepdeck/backend/internal/store"
)

// Config holds HTTP-level settings.
type Config struct {
	SecureCookies bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	cache   *qcache.Coordinator
	ledger  *ledger.Ledger
	blobs   blob.Store
	limiter *ratelimit.Limiter
	config  Config
}

// New creates a new Handler. limiter may be nil to disable rate
// limiting on the question endpoints.
func New(s *store.Store, cache *qcache.Coordinator, l *ledger.Ledger, blobs blob.Store, limiter *ratelimit.Limiter, cfg Config) *Handler {
	return &Handler{store: s, cache: cache, ledger: l, blobs: blobs, limiter: limiter, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/auth/logout", h.handleLogout)
			r.Get("/auth/me", h.handleMe)

			r.With(h.rateLimit).Post("/questions/fetch", h.handleFetchQuestion)

			r.Post("/attempts", h.handleRecordAttempt)
			r.Get("/progress", h.handleProgress)
			r.Get("/history", h.handleHistory)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Post("/cache/prime", h.handlePrime)
				r.Delete("/cache", h.handleInvalidate)
				r.Get("/cache/stats", h.handleCacheStats)
				r.Get("/questions", h.handleListQuestions)
			})
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the error taxonomy to HTTP status codes. Upstream
// failures (generator, blob store) surface as 502 because the request
// itself was well-formed.
func respondError(w http.ResponseWriter, err error) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		ge *apperr.GenerationError
		se *apperr.StorageError
	)
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error()})
	case errors.As(err, &nf):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
	case errors.As(err, &ge), errors.As(err, &se):
		slog.Error("upstream failure", "error", err)
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream failure"})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is reading the response.
	default:
		slog.Error("internal error", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &apperr.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}
	return nil
}

// rateLimit throttles per client address. Question fetches can trigger
// paid generation calls, so this sits only on those routes.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
