// Package server assembles the HTTP routes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/localchat/internal/handler"
	"github.com/capitalize-ai/localchat/internal/llm"
	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Logger        *logger.Logger
	Tokens        *middleware.Tokens
	Users         *service.UserService
	Conversations *service.ConversationService
	Exchange      *service.ExchangeService
	Models        llm.Client
	DefaultModel  string
	Checks        map[string]handler.Pinger

	AuthRequired       bool
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins []string
}

// NewRouter creates the API router.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}

	healthHandler := handler.NewHealthHandler(d.Checks)
	userHandler := handler.NewUserHandler(d.Users, d.Conversations, log)
	conversationHandler := handler.NewConversationHandler(d.Conversations, log)
	messageHandler := handler.NewMessageHandler(d.Exchange, log)
	streamHandler := handler.NewStreamHandler(d.Exchange, log)
	modelHandler := handler.NewModelHandler(d.Models, d.DefaultModel)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.CORSAllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(d.Tokens))
		if d.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(d.RateLimitRequests, d.RateLimitWindow))
		}

		r.Post("/users", userHandler.Signup)
		r.Post("/auth/login", userHandler.Login)
		r.With(middleware.RequireUser).Get("/auth/me", userHandler.Me)

		r.Group(func(r chi.Router) {
			if d.AuthRequired {
				r.Use(middleware.RequireUser)
			}

			r.Get("/models", modelHandler.List)
			r.Get("/users/{userId}/conversations", userHandler.Conversations)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", conversationHandler.Create)
				r.Get("/", conversationHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversationHandler.Get)

					// Messages
					r.Get("/messages", messageHandler.List)
					r.Post("/messages", messageHandler.Submit)

					// Streaming
					r.Post("/stream", streamHandler.StreamWithMessage)
				})
			})
		})
	})

	return r
}
