// Package websub implements the three HTTP endpoints the WebSub
// Subscriber exposes: hub verification, push reception, and a
// reachability probe.
package websub

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"rssflow/internal/websub"
)

// Handler serves GET/POST /websub/{uuid} and GET /websub/check.
type Handler struct {
	Subscriber *websub.Subscriber
}

// New builds a Handler.
func New(sub *websub.Subscriber) *Handler {
	return &Handler{Subscriber: sub}
}

// Verify serves GET /websub/{uuid}, the hub's verification-of-intent
// challenge.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("uuid"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	mode := q.Get("hub.mode")
	topic := q.Get("hub.topic")
	challenge := q.Get("hub.challenge")
	leaseSeconds, _ := strconv.Atoi(q.Get("hub.lease_seconds"))

	body, status := h.Subscriber.VerifyIntent(r.Context(), id, mode, topic, challenge, leaseSeconds)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	if body != "" {
		_, _ = w.Write([]byte(body))
	}
}

// Push serves POST /websub/{uuid}, authenticating and fanning out a
// hub-delivered payload. The response is always 200 regardless of
// downstream outcome, except when the path itself cannot be parsed.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("uuid"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.Subscriber.HandlePush(r.Context(), id, body, r.Header.Get("X-Hub-Signature"))
	w.WriteHeader(http.StatusOK)
}

// Check serves GET /websub/check, a bare reachability probe for hubs
// validating the callback URL before subscribing.
func (h *Handler) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
