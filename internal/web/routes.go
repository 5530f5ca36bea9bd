package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/web/handlers"
)

func (s *Server) setupRoutes(enrollments database.EnrollmentWriter, votes database.VoteWriter, embedClient *embedder.Client) {
	verifyHandler := handlers.NewVerifyHandler(s.config, enrollments, embedClient)
	identifyHandler := handlers.NewIdentifyHandler(s.config, enrollments, embedClient)
	votersHandler := handlers.NewVotersHandler(enrollments)
	auditHandler := handlers.NewAuditHandler(s.config, enrollments, votes)
	statsHandler := handlers.NewStatsHandler(enrollments, votes, s.config)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Verification (1:1)
		r.Post("/verify", verifyHandler.Verify)
		r.Post("/verify/image", verifyHandler.VerifyImage)

		// Identification (1:N)
		r.Post("/identify", identifyHandler.Identify)
		r.Post("/identify/image", identifyHandler.IdentifyImage)

		// Enrollment inspection
		r.Get("/voters", votersHandler.List)
		r.Get("/voters/{voterID}", votersHandler.Get)
		r.Delete("/voters/{voterID}", votersHandler.Delete)

		// Fraud audit
		r.Post("/audit", auditHandler.Audit)
		r.Get("/votes", auditHandler.ListVotes)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
