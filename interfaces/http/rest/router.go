package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/interfaces/http/rest/handlers"
	"github.com/sjak1/rabbithole-backend/interfaces/http/rest/middleware"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	branchHandler  *handlers.BranchHandler
	messageHandler *handlers.MessageHandler
	userHandler    *handlers.UserHandler
	chatHandler    *handlers.ChatHandler
	titleHandler   *handlers.TitleHandler
	validator      *auth.JWTValidator
	enableCORS     bool
	logger         *zap.Logger
}

// NewRouter creates a new router instance. CORS is switchable so deployments
// behind a proxy that already handles it do not emit duplicate headers.
func NewRouter(
	branchHandler *handlers.BranchHandler,
	messageHandler *handlers.MessageHandler,
	userHandler *handlers.UserHandler,
	chatHandler *handlers.ChatHandler,
	titleHandler *handlers.TitleHandler,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		branchHandler:  branchHandler,
		messageHandler: messageHandler,
		userHandler:    userHandler,
		chatHandler:    chatHandler,
		titleHandler:   titleHandler,
		validator:      validator,
		enableCORS:     enableCORS,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	// CORS configuration
	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.rabbithole.chat"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		// Account
		r.Get("/api/user", rt.userHandler.GetUser)

		// Branch tree
		r.Post("/branch", rt.branchHandler.CreateBranch)
		r.Get("/branches", rt.branchHandler.ListBranches)
		r.Delete("/branch/{branchId}", rt.branchHandler.DeleteBranch)
		r.Get("/parent/{branchId}", rt.branchHandler.GetParent)
		r.Post("/parent/{branchId}", rt.branchHandler.Relink)

		// Message log
		r.Get("/messages/{branchId}", rt.messageHandler.GetMessages)
		r.Post("/messages/{branchId}", rt.messageHandler.AppendMessage)

		// Titles
		r.Post("/title/{branchId}", rt.branchHandler.SetTitle)
		r.Post("/title/generate/{branchId}", rt.titleHandler.GenerateTitle)

		// Streaming completion
		r.Post("/api/llm", rt.chatHandler.StreamCompletion)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
