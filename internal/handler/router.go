package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/middleware"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

// RouterConfig holds the HTTP-level settings of the API.
type RouterConfig struct {
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	MaxUploadBytes    int64
	AllowedOrigins    []string
}

// Services groups the domain services the handlers delegate to.
type Services struct {
	Assistants  *service.AssistantService
	Collections *service.CollectionManager
	Documents   *service.DocumentManager
	Chats       *service.ChatOrchestrator
}

// NewRouter builds the API router. natsClient may be nil.
func NewRouter(cfg RouterConfig, svc Services, db Pinger, natsClient *events.Client, log *logger.Logger) http.Handler {
	healthHandler := NewHealthHandler(db, natsClient)
	assistantHandler := NewAssistantHandler(svc.Assistants, log)
	fileHandler := NewFileHandler(svc.Documents, cfg.MaxUploadBytes, log)
	collectionHandler := NewCollectionHandler(svc.Collections, log)
	chatHandler := NewChatHandler(svc.Chats, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/help-assistant", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).
			Get("/tones", assistantHandler.Tones)

		// Browser download links carry the token in the query string.
		r.Group(func(r chi.Router) {
			r.Use(middleware.QueryAuth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Get("/{id}/files/{file_id}/download", fileHandler.Download)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			// Assistants
			r.Post("/", assistantHandler.Create)
			r.Get("/me", assistantHandler.ListMine)
			r.Get("/{id}", assistantHandler.Get)
			r.Put("/{id}", assistantHandler.Update)
			r.Delete("/{id}", assistantHandler.Delete)

			// Documents
			r.Post("/{id}/files", fileHandler.Upload)
			r.Get("/{id}/files", fileHandler.List)
			r.Post("/{id}/files/sync", fileHandler.Sync)
			r.Delete("/{id}/files/{file_id}", fileHandler.Delete)

			// Retrieval
			r.Get("/{id}/collection", collectionHandler.Get)
			r.Post("/{id}/agent/search", collectionHandler.Search)

			// Chat
			r.Post("/{id}/chat/init", chatHandler.Init)
			r.Get("/{id}/chat", chatHandler.List)
			r.Get("/{id}/chat/{chat_id}/messages", chatHandler.Messages)
			r.Post("/{id}/chat/{chat_id}/message", chatHandler.Send)
		})
	})

	return r
}
