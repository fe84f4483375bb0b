// Package api provides HTTP handlers for the honeypot API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/honeypot/internal/honeypot"
)

const maxBodyBytes = 1 << 20

// Service is the orchestration surface the handlers need.
type Service interface {
	HandleMessage(ctx context.Context, msg honeypot.Message) (*honeypot.Outcome, error)
	Inspect(ctx context.Context, id string) (*honeypot.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Handler serves the honeypot endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes registers the API routes. Everything except the health
// check goes through protect.
func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if protect != nil {
				r.Use(protect)
			}
			r.Post("/message", h.PostMessage)
			r.Get("/session/{sessionID}", h.GetSession)
			r.Delete("/session/{sessionID}", h.DeleteSession)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health reports whether the service can reach its session store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PostMessage processes one inbound message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req MessageRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := req.toMessage()
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.svc.HandleMessage(r.Context(), msg)
	if err != nil {
		h.writeServiceError(w, err, msg.SessionID)
		return
	}

	JSON(w, http.StatusOK, newMessageResponse(out))
}

// GetSession returns a summary of one session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	snap, err := h.svc.Inspect(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	JSON(w, http.StatusOK, SessionResponse{
		SessionID:              snap.SessionID,
		ScamDetected:           snap.ScamDetected,
		TotalMessagesExchanged: snap.TotalMessages,
		Phase:                  string(snap.Phase),
		Completed:              snap.Completed,
	})
}

// DeleteSession removes a session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, sessionID string) {
	switch {
	case errors.Is(err, honeypot.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, honeypot.ErrClosed):
		w.Header().Set("Retry-After", "1")
		Error(w, http.StatusServiceUnavailable, "server is shutting down, retry later")
	case errors.Is(err, honeypot.ErrStoreUnavailable):
		h.logger.Error("Session store unavailable", "session_id", sessionID, "error", err)
		w.Header().Set("Retry-After", "1")
		Error(w, http.StatusServiceUnavailable, "session store unavailable, retry later")
	default:
		h.logger.Error("Request failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
