package app

import (
	"github.com/gorilla/mux"

	"outbound-router/internal/handlers"
	"outbound-router/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers) {
	router.Use(middleware.LoggingMiddleware(nil))
	h.RegisterRoutes(router)
}
