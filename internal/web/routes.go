package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Deps) {
	attendanceHandler := handlers.NewAttendanceHandler(deps.Service)

	s.router.Route("/api/v1", func(r chi.Router) {
		// No auth required
		r.Get("/health", handlers.HealthCheck)
		if deps.DB != nil {
			r.Get("/ready", handlers.ReadinessCheck(deps.DB))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(deps.Tokens, deps.Identities))

			r.With(s.limiter.Middleware).Post("/attendance/check-in", attendanceHandler.CheckIn)
			r.Get("/attendance/history", attendanceHandler.History)
			r.Get("/attendance/stats", attendanceHandler.Stats)
		})
	})
}
