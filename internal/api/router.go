package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seojun/letterpress/internal/auth"
	"github.com/seojun/letterpress/internal/config"
	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/storage"
)

// NewRouter creates a chi.Mux with all routes, middleware, and handlers
// configured.
func NewRouter(
	cfg *config.Config,
	db *storage.DB,
	queries storage.Querier,
	publisher Publisher,
	mail mailer.Client,
	jwtService *auth.JWTService,
	log zerolog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(db))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Public subscription endpoints
	r.Post("/subscriptions", SubscribeHandler(db, mail, cfg.App.BaseURL))
	r.Get("/subscriptions/confirm", ConfirmHandler(queries))

	// Public collaborator registration (the invitation token and
	// validation code are the credentials)
	r.Get("/collaborators/register", CheckInvitationHandler(queries))
	r.Post("/collaborators/register", RegisterCollaboratorHandler(db))

	// Admin login (no auth required)
	r.Post("/api/v1/login", LoginHandler(queries, jwtService, int(cfg.Auth.TokenExpiry.Seconds())))

	// Admin routes (auth required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.BearerAuth(jwtService))

		r.Post("/newsletters", PublishNewsletterHandler(publisher))
		r.Get("/newsletters/{id}", GetNewsletterHandler(queries))
		r.Get("/newsletters/{id}/failures", ListNewsletterFailuresHandler(queries))

		r.Post("/admin/password", ChangePasswordHandler(queries))
		r.Post("/admin/collaborators", InviteCollaboratorHandler(queries, mail, cfg.App.BaseURL))
	})

	return r
}
