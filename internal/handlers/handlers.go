// Package handlers exposes the router collection over HTTP
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
	"outbound-router/internal/routing"
)

const maxRequestBytes = 10 << 20

// Processor is the routing surface the handlers need. *routing.Collection
// implements it.
type Processor interface {
	Process(ctx context.Context, event *message.Event) (*message.Event, error)
	Routers() []routing.Router
	State() routing.State
}

type Handlers struct {
	processor      Processor
	requestTimeout time.Duration
	logger         logging.Logger
}

// Option configures Handlers
type Option func(*Handlers)

// WithRequestTimeout bounds how long one routing request may take
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handlers) { h.requestTimeout = d }
}

func WithLogger(logger logging.Logger) Option {
	return func(h *Handlers) { h.logger = logger }
}

func New(processor Processor, opts ...Option) *Handlers {
	h := &Handlers{
		processor:      processor,
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.GetGlobalLogger()
	}
	h.logger = h.logger.WithFields(logging.Component("handlers"))
	return h
}

// RegisterRoutes mounts every endpoint on router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/route", h.Route).Methods(http.MethodPost)
	api.HandleFunc("/routers", h.GetRouters).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}

func (h *Handlers) sendJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// sendError maps err onto an HTTP status. Timeouts are checked before the
// routing type because dispatch errors wrap their cause.
func (h *Handlers) sendError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Routing request failed", err, logging.Int("status", status))
	}
	h.sendJSONResponse(w, status, errorResponse{
		Error: err.Error(),
		Type:  string(apperrors.GetType(err)),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, routing.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), apperrors.IsType(err, apperrors.ErrTypeTimeout):
		return http.StatusGatewayTimeout
	case apperrors.IsType(err, apperrors.ErrTypeRateLimit):
		return http.StatusTooManyRequests
	case apperrors.IsType(err, apperrors.ErrTypeUnavailable):
		return http.StatusServiceUnavailable
	case apperrors.IsType(err, apperrors.ErrTypeNotFound):
		return http.StatusNotFound
	case apperrors.IsType(err, apperrors.ErrTypeValidation):
		return http.StatusBadRequest
	case errors.Is(err, routing.ErrNoMatchingRoute), errors.Is(err, routing.ErrNotAList):
		return http.StatusUnprocessableEntity
	case apperrors.IsType(err, apperrors.ErrTypeRouting):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
