package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Device channels (device JWT, validated in handler since
		// websocket clients cannot always set headers)
		r.Get("/channels/{kind}/{deviceID}", s.handleChannel)

		// Protected routes (user JWT)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/brands", s.handleBrands)
			r.Get("/brands/{brandID}", s.handleBrand)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleCreateDevice)

				r.Route("/{deviceID}", func(r chi.Router) {
					// Linking requires the feeder password, not an
					// existing link, so it sits outside the access check.
					r.Post("/users", s.handleAddDeviceUser)

					r.Group(func(r chi.Router) {
						r.Use(s.deviceAccessMiddleware)

						r.Get("/", s.handleGetDevice)
						r.Get("/configuration", s.handleGetConfiguration)
						r.Patch("/configuration", s.handleChangeConfiguration)
						r.Post("/schedules", s.handleAddSchedule)
						r.Delete("/schedules/{key}", s.handleRemoveSchedule)
						r.Delete("/users/{userID}", s.handleRemoveDeviceUser)
						r.Get("/records/today", s.handleDiary)
						r.Get("/records", s.handleRecordHistory)
					})
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"devices":  s.registry.DeviceCount(),
		"channels": s.registry.ChannelCount(),
	})
}
