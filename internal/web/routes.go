package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/veriface/internal/web/handlers"
	"github.com/kozaktomas/veriface/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.deps.DB)
	eventsHandler := handlers.NewEventsHandler(s.deps.Service)
	sessionsHandler := handlers.NewSessionsHandler(s.deps.Service)
	checkInHandler := handlers.NewCheckInHandler(s.deps.Service, s.deps.Embedder, s.config.Matching.Threshold)
	membersHandler := handlers.NewMembersHandler(s.deps.Service, s.deps.Embedder)
	importHandler := handlers.NewImportHandler(s.deps.Service, s.deps.Importer)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Health check (no member required)
		r.Get("/health", healthHandler.Check)

		// Kiosk check-in identifies people by face, not by header
		r.Post("/sessions/{id}/checkin", checkInHandler.Embedding)
		r.Post("/sessions/{id}/checkin/photo", checkInHandler.Photo)
		r.Post("/sessions/{id}/checkin/group", checkInHandler.Group)

		// Everything else acts on behalf of a member
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMember())

			// Events
			r.Get("/events", eventsHandler.List)
			r.Post("/events", eventsHandler.Create)
			r.Delete("/events/{id}", eventsHandler.Delete)
			r.Get("/events/{id}/overview", eventsHandler.Overview)
			r.Post("/events/{id}/backfill", eventsHandler.Backfill)

			// Event members
			r.Get("/events/{id}/members", eventsHandler.ListMembers)
			r.Post("/events/{id}/members", eventsHandler.AddMember)
			r.Delete("/events/{id}/members/{memberID}", eventsHandler.RemoveMember)
			r.Post("/events/{id}/members/import", importHandler.Import)

			// Sessions
			r.Post("/events/{id}/sessions", sessionsHandler.Create)
			r.Delete("/sessions/{id}", sessionsHandler.Delete)
			r.Post("/sessions/{id}/seed", sessionsHandler.Seed)
			r.Get("/sessions/{id}/attendance", sessionsHandler.Attendance)
			r.Put("/sessions/{id}/attendance/{memberID}", sessionsHandler.UpdateStatus)
			r.Post("/sessions/{id}/checkin/{memberID}", sessionsHandler.CheckIn)
			r.Post("/sessions/{id}/checkout/{memberID}", sessionsHandler.CheckOut)

			// Enrollment
			r.Put("/members/{id}/embedding", membersHandler.Enroll)
		})
	})
}
