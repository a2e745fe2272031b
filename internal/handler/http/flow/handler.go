// Package flow implements the GET /flow/{name} endpoint over the Flow
// Executor.
package flow

import (
	"encoding/json"
	"net/http"

	"rssflow/internal/domain/feed"
	"rssflow/internal/flowexec"
	"rssflow/internal/handler/http/respond"
)

// Handler serves GET /flow/{name}.
type Handler struct {
	Executor *flowexec.Executor
}

// New builds a Handler.
func New(exec *flowexec.Executor) *Handler {
	return &Handler{Executor: exec}
}

// ServeHTTP implements http.Handler, registered at "GET /flow/{name}".
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		respond.Error(w, http.StatusNotFound, errFlowNameRequired)
		return
	}

	result, err := h.Executor.Run(r.Context(), name)
	if err != nil {
		respond.SafeError(w, flowexec.StatusCode(err), err)
		return
	}

	if result.Feed == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Supplemented feature (SPEC_FULL.md section 10, from the Rust
	// original's route/pipe.rs): ?format=json lets flow authors debug a
	// pipeline's output without an Atom reader.
	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(result.Feed)
		return
	}

	body, err := feed.MarshalAtomXML(result.Feed)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type flowNameError struct{ msg string }

func (e flowNameError) Error() string { return e.msg }

var errFlowNameRequired = flowNameError{"flow name is required"}
