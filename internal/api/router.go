// Package api implements the routetree REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/routetree/internal/routeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *routeservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", h.ListRoutes)
		r.With(middleware.AllowContentType("application/json")).Post("/", h.CreateRoute)
		r.Get("/longest", h.Longest)
		r.Get("/shortest", h.Shortest)
		r.Get("/{id}", h.GetRoute)
		r.Get("/{id}/children", h.Children)
		r.Get("/{id}/last", h.LastReachable)
	})

	r.Get("/dashboard", h.Dashboard)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
