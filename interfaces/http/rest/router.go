package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/config"
	"github.com/imanima/InsightJourney-backend-sub000/interfaces/http/rest/handlers"
	"github.com/imanima/InsightJourney-backend-sub000/interfaces/http/rest/middleware"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/auth"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg         *config.Config
	authHandler *handlers.AuthHandler
	users       *handlers.UserHandler
	sessions    *handlers.SessionHandler
	insights    *handlers.InsightHandler
	topics      *handlers.TopicHandler
	tokens      *auth.TokenManager
	userLimiter *auth.DistributedRateLimiter
	ipLimiter   *auth.IPRateLimiter
	errors      *apperrors.ErrorHandler
	readiness   func() error
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	users *handlers.UserHandler,
	sessions *handlers.SessionHandler,
	insights *handlers.InsightHandler,
	topics *handlers.TopicHandler,
	tokens *auth.TokenManager,
	userLimiter *auth.DistributedRateLimiter,
	errors *apperrors.ErrorHandler,
	readiness func() error,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		authHandler: authHandler,
		users:       users,
		sessions:    sessions,
		insights:    insights,
		topics:      topics,
		tokens:      tokens,
		userLimiter: userLimiter,
		ipLimiter:   auth.NewIPRateLimiter(60),
		errors:      errors,
		readiness:   readiness,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics)
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.insightjourney.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Operational endpoints
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated auth endpoints, throttled per IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(rt.ipLimiter))
			r.Post("/auth/register", rt.authHandler.Register)
			r.Post("/auth/login", rt.authHandler.Login)
		})

		// Authenticated API
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.tokens, rt.userLimiter, rt.logger))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", rt.users.GetProfile)
				r.Put("/", rt.users.UpdateProfile)
				r.Delete("/", rt.users.DeleteAccount)
				r.Get("/elements-summary", rt.users.ElementsSummary)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", rt.sessions.CreateSession)
				r.Get("/", rt.sessions.ListSessions)
				r.Get("/chain", rt.sessions.GetChain)
				r.Get("/{sessionID}", rt.sessions.GetSession)
				r.Delete("/{sessionID}", rt.sessions.DeleteSession)
				r.Post("/{sessionID}/elements", rt.sessions.IngestElements)
			})

			r.Route("/insights", func(r chi.Router) {
				r.Get("/turning-point", rt.insights.TurningPoint)
				r.Get("/correlations", rt.insights.Correlations)
				r.Get("/cascade", rt.insights.Cascade)
				r.Get("/predictions", rt.insights.Predictions)
				r.Get("/challenge-persistence", rt.insights.ChallengePersistence)
				r.Get("/snapshot", rt.insights.Snapshot)
			})

			r.Route("/topics", func(r chi.Router) {
				r.Get("/", rt.topics.ListTopics)
				r.Get("/{topicName}/classification", rt.topics.GetClassification)
			})
			r.Get("/taxonomies", rt.topics.ListTaxonomies)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck verifies the store dependency before reporting ready
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.readiness != nil {
		if err := rt.readiness(); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
