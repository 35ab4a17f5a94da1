package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	wsHandler := handlers.NewWSHandler(s.hub, s.pipe, s.store, s.loc)
	attendanceHandler := handlers.NewAttendanceHandler(s.store, s.loc)
	employeesHandler := handlers.NewEmployeesHandler(s.store, s.pipe)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Live camera/kiosk protocol
	s.router.Get("/ws", wsHandler.Serve)

	// REST API for dashboards and scripting
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/attendance", attendanceHandler.List)
		r.Delete("/attendance/{id}", attendanceHandler.Delete)
		r.Post("/attendance/{id}/early-exit-reason", attendanceHandler.EarlyExitReason)

		r.Get("/employees", employeesHandler.List)
		r.Post("/employees", employeesHandler.Register)
		r.Delete("/employees/{employeeID}", employeesHandler.Delete)
	})
}
