package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/api/handlers"
	"github.com/cloo-solutions/faqdesk/internal/api/middleware"
)

// RouterConfig wires handlers and middleware dependencies. MetricsHandler and
// HTTPObserver are optional.
type RouterConfig struct {
	Logger           *zap.Logger
	AuthValidator    middleware.AuthValidator
	SessionVerifier  middleware.SessionVerifier
	HTTPObserver     middleware.HTTPObserver
	MetricsHandler   http.Handler
	WidgetHandler    *handlers.WidgetHandler
	ChatbotHandler   *handlers.ChatbotHandler
	FAQHandler       *handlers.FAQHandler
	AnalyticsHandler *handlers.AnalyticsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	if cfg.HTTPObserver != nil {
		r.Use(middleware.Metrics(cfg.HTTPObserver))
	}
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// Widget traffic is public; a session token is optional.
	r.Route("/chatbots/{chatbotID}", func(r chi.Router) {
		r.Use(middleware.Session(cfg.SessionVerifier, "chatbotID"))
		r.Post("/sessions", cfg.WidgetHandler.StartSession)
		r.Post("/answer", cfg.WidgetHandler.Answer)
		r.Post("/browse", cfg.WidgetHandler.Browse)
	})
	r.Post("/events/{eventID}/actions", cfg.WidgetHandler.RecordAction)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/chatbots", func(r chi.Router) {
			r.Post("/", cfg.ChatbotHandler.Create)
			r.Get("/", cfg.ChatbotHandler.List)

			r.Route("/{chatbotID}", func(r chi.Router) {
				r.Get("/", cfg.ChatbotHandler.Get)
				r.Put("/status", cfg.ChatbotHandler.SetStatus)
				r.Put("/quota", cfg.ChatbotHandler.SetQueryLimit)
				r.Post("/preview", cfg.ChatbotHandler.Preview)

				r.Post("/faqs", cfg.FAQHandler.Create)
				r.Get("/faqs", cfg.FAQHandler.List)
				r.Post("/media", cfg.FAQHandler.InitMediaUpload)

				r.Get("/stats", cfg.AnalyticsHandler.Stats)
				r.Get("/events", cfg.AnalyticsHandler.ListEvents)
				r.Put("/ignored-queries", cfg.AnalyticsHandler.IgnoreQuery)
			})
		})

		r.Get("/events/{eventID}/actions", cfg.AnalyticsHandler.ListActions)
		r.Delete("/events/{eventID}", cfg.AnalyticsHandler.DeleteEvent)
	})

	return r
}
