// Package httpapi is the HTTP/JSON control plane over the broker.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/clients"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	DB          *pgxpool.Pool
	Broker      *broker.Broker
	Clients     *clients.Store
	AuthEnabled bool
}

// Routes creates the HTTP router with all broker endpoints
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(instrumentRequests)

	// Unauthenticated: probes, prometheus exposition, token exchange
	r.Get("/liveness", s.Liveness)
	r.Get("/readiness", s.Readiness)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/oauth/token", s.IssueToken)

	// Everything else requires a valid client token (unless auth is off)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		// Topics
		r.With(s.requireScope("topics", "create")).Post("/topics", s.CreateTopic)
		r.With(s.requireScope("topics", "read")).Get("/topics", s.ListTopics)
		r.With(s.requireScope("topics", "read")).Get("/topics/{id}", s.GetTopic)
		r.With(s.requireScope("topics", "delete")).Delete("/topics/{id}", s.DeleteTopic)
		r.With(s.requireScope("topics", "publish")).Post("/topics/{id}/messages", s.PublishMessages)

		// Subscriptions
		r.With(s.requireScope("subscriptions", "create")).Post("/subscriptions", s.CreateSubscription)
		r.With(s.requireScope("subscriptions", "read")).Get("/subscriptions", s.ListSubscriptions)
		r.With(s.requireScope("subscriptions", "read")).Get("/subscriptions/{id}", s.GetSubscription)
		r.With(s.requireScope("subscriptions", "delete")).Delete("/subscriptions/{id}", s.DeleteSubscription)
		r.With(s.requireScope("subscriptions", "consume")).Get("/subscriptions/{id}/messages", s.ConsumeMessages)
		r.With(s.requireScope("subscriptions", "consume")).Post("/subscriptions/{id}/acks", s.AckMessages)
		r.With(s.requireScope("subscriptions", "consume")).Post("/subscriptions/{id}/nacks", s.NackMessages)
		r.With(s.requireScope("subscriptions", "consume")).Get("/subscriptions/{id}/dlq", s.ListDLQ)
		r.With(s.requireScope("subscriptions", "consume")).Post("/subscriptions/{id}/dlq/reprocess", s.ReprocessDLQ)
		r.With(s.requireScope("subscriptions", "read")).Get("/subscriptions/{id}/metrics", s.SubscriptionMetrics)

		// Clients
		r.With(s.requireScope("clients", "create")).Post("/clients", s.CreateClient)
		r.With(s.requireScope("clients", "read")).Get("/clients", s.ListClients)
		r.With(s.requireScope("clients", "read")).Get("/clients/{id}", s.GetClient)
		r.With(s.requireScope("clients", "update")).Put("/clients/{id}", s.UpdateClient)
		r.With(s.requireScope("clients", "delete")).Delete("/clients/{id}", s.DeleteClient)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
