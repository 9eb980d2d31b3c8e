package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

// RouteRequest is the body of POST /api/route
type RouteRequest struct {
	ID            string         `json:"id"`
	Payload       any            `json:"payload"`
	Properties    map[string]any `json:"properties"`
	CorrelationID string         `json:"correlation_id"`
	// Synchronous defaults to true
	Synchronous *bool          `json:"synchronous"`
	ReplyTo     string         `json:"reply_to"`
	Variables   map[string]any `json:"variables"`
}

// CorrelationView is the JSON form of message.Correlation
type CorrelationView struct {
	ID        string `json:"id,omitempty"`
	GroupSize int    `json:"group_size,omitempty"`
	Sequence  int    `json:"sequence,omitempty"`
}

// RouteResponse is the routed result. Composite results list their parts
// instead of a payload.
type RouteResponse struct {
	MessageID   string           `json:"message_id"`
	Correlation *CorrelationView `json:"correlation,omitempty"`
	Payload     any              `json:"payload,omitempty"`
	Parts       []RouteResponse  `json:"parts,omitempty"`
	Exception   string           `json:"exception,omitempty"`
}

func (r RouteRequest) event() *message.Event {
	opts := []message.Option{message.WithInbound(r.Properties)}
	if r.ID != "" {
		opts = append(opts, message.WithID(r.ID))
	}
	if r.CorrelationID != "" {
		opts = append(opts, message.WithCorrelation(message.NewCorrelation(r.CorrelationID, 0, 0)))
	}

	synchronous := true
	if r.Synchronous != nil {
		synchronous = *r.Synchronous
	}
	return message.NewEvent(message.New(r.Payload, opts...),
		message.Synchronous(synchronous),
		message.WithReplyTo(r.ReplyTo),
		message.WithVariables(r.Variables),
	)
}

func toResponse(msg *message.Message) RouteResponse {
	resp := RouteResponse{MessageID: msg.ID()}
	if c := msg.Correlation(); !c.IsZero() {
		resp.Correlation = &CorrelationView{ID: c.ID(), GroupSize: c.GroupSize(), Sequence: c.SequenceNumber()}
	}
	if err := msg.Exception(); err != nil {
		resp.Exception = err.Error()
	}

	if parts, ok := msg.Parts(); ok {
		resp.Parts = make([]RouteResponse, 0, len(parts))
		for _, p := range parts {
			if p == nil {
				continue
			}
			resp.Parts = append(resp.Parts, toResponse(p))
		}
		return resp
	}

	switch p := msg.Payload().(type) {
	case []byte:
		resp.Payload = string(p)
	default:
		resp.Payload = p
	}
	return resp
}

// Route routes one message through the collection
// @Summary Route a message
// @Description Hands the message to the first matching router, or to every matching router in match-all mode
// @Tags routing
// @Accept json
// @Produce json
// @Param request body RouteRequest true "Message to route"
// @Success 200 {object} RouteResponse "Routed result"
// @Success 204 "Nothing to return"
// @Failure 400 {object} errorResponse "Invalid request"
// @Failure 503 {object} errorResponse "Routers not started"
// @Router /route [post]
func (h *Handlers) Route(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		h.sendError(w, apperrors.ValidationError("invalid request body").WithCause(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	event := req.event()
	h.logger.Debug("Routing message",
		logging.MessageID(event.Message().ID()),
		logging.Bool("synchronous", event.Synchronous()),
	)

	result, err := h.processor.Process(ctx, event)
	if err != nil {
		h.sendError(w, err)
		return
	}
	if result.IsNoResult() || result.Message() == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.sendJSONResponse(w, http.StatusOK, toResponse(result.Message()))
}
