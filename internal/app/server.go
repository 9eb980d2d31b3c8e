package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"outbound-router/internal/handlers"
	"outbound-router/internal/server"
)

// NewServer wires the handlers over the collection into an HTTP server
func (app *App) NewServer() (*server.Server, http.Handler) {
	h := handlers.New(app.Collection,
		handlers.WithRequestTimeout(app.Config.RequestTimeout),
		handlers.WithLogger(app.Logger),
	)

	router := mux.NewRouter()
	SetupRoutes(router, h)

	srv := server.New(router, app.Config.Port, app.Config.RequestTimeout+app.Config.RequestTimeout/2)
	return srv, router
}
