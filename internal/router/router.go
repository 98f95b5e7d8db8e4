package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smart-canteen/api/internal/config"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
	"github.com/smart-canteen/api/internal/handler"
	"github.com/smart-canteen/api/internal/metrics"
	mw "github.com/smart-canteen/api/internal/middleware"
	"github.com/smart-canteen/api/internal/service"
	"github.com/smart-canteen/api/internal/ws"
)

// Deps are the long-lived components the routes are built from.
type Deps struct {
	Queries  *database.Queries
	Orders   *service.OrderService
	Canteens service.CanteenResolver
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(mw.Instrument(deps.Metrics))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", health(deps.Queries))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authHandler := handler.NewAuthHandler(deps.Queries, cfg.JWTSecret, cfg.AccessTokenTTL)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	if deps.Hub != nil {
		r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(deps.Hub, cfg.JWTSecret, w, r)
		})
	}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Get("/auth/me", authHandler.Me)

		menuHandler := handler.NewMenuHandler(deps.Queries, deps.Canteens)
		r.Route("/menu", menuHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(deps.Orders)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Super-admin only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleSuperAdmin))
			userHandler := handler.NewUserHandler(deps.Queries)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	slog.Info("router initialized")
	return r
}

func health(q *database.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := q.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check: mongo ping failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}
