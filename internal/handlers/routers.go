package handlers

import (
	"net/http"
	"time"

	"outbound-router/internal/routing"
)

// RouterInfo describes one router of the collection
type RouterInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	State  string `json:"state"`
	Routes int    `json:"routes"`
}

// GetRouters lists the routers in evaluation order
// @Summary List routers
// @Tags routing
// @Produce json
// @Success 200 {array} RouterInfo "Routers"
// @Router /routers [get]
func (h *Handlers) GetRouters(w http.ResponseWriter, r *http.Request) {
	routers := h.processor.Routers()
	infos := make([]RouterInfo, 0, len(routers))
	for _, router := range routers {
		infos = append(infos, RouterInfo{
			Name:   router.Name(),
			Kind:   router.Kind(),
			State:  router.State().String(),
			Routes: len(router.Routes()),
		})
	}
	h.sendJSONResponse(w, http.StatusOK, infos)
}

// HealthCheck reports whether the collection is accepting messages
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Routers not started"
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.processor.State()
	health := map[string]interface{}{
		"status":    "healthy",
		"state":     state.String(),
		"routers":   len(h.processor.Routers()),
		"timestamp": time.Now(),
	}

	status := http.StatusOK
	if state != routing.StateStarted {
		health["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	h.sendJSONResponse(w, status, health)
}
