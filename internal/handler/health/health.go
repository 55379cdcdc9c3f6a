// Package health reports whether the catalog database and cache are reachable.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	required map[string]Checker
	optional map[string]Checker
	logger   *slog.Logger
}

// NewHandler reports 503 when a required check fails. A failing optional
// check, such as the catalog cache the service can run without, is reported
// but leaves the status at 200.
func NewHandler(logger *slog.Logger, required, optional map[string]Checker) *Handler {
	return &Handler{required: required, optional: optional, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type Result struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

// Response maps each check name to its result. The "status" entry
// summarises them as ok, degraded or error.
type Response map[string]Result

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(Response, len(h.required)+len(h.optional)+1)
	overall := "ok"

	for name, c := range h.required {
		if err := c.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", name, "error", err)
			results[name] = Result{Status: "error"}
			overall = "error"
			continue
		}
		results[name] = Result{Status: "ok"}
	}
	for name, c := range h.optional {
		if err := c.Check(ctx); err != nil {
			h.logger.Warn("optional health check failed", "name", name, "error", err)
			results[name] = Result{Status: "error", Optional: true}
			if overall == "ok" {
				overall = "degraded"
			}
			continue
		}
		results[name] = Result{Status: "ok", Optional: true}
	}
	results["status"] = Result{Status: overall}

	status := http.StatusOK
	if overall == "error" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
