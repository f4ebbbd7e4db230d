package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/orderin/api/internal/auth"
	"github.com/orderin/api/internal/cart"
	"github.com/orderin/api/internal/catalog"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/config"
	"github.com/orderin/api/internal/enum"
	"github.com/orderin/api/internal/handler"
	"github.com/orderin/api/internal/metrics"
	mw "github.com/orderin/api/internal/middleware"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/ws"
	"go.uber.org/zap"
)

// Deps are the long-lived components the routes are wired to. Feed is nil
// when the synthetic feed is disabled.
type Deps struct {
	Auth    *auth.Service
	Orders  *order.Store
	Carts   *cart.Registry
	Menu    *catalog.Catalog
	Feed    handler.Refresher
	Hub     *ws.Hub
	Metrics *metrics.Metrics
	Health  *handler.HealthHandler
	Clock   clock.Clock
	Log     *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Staff routes require a session token; reports additionally require the
// owner role.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Instrument)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", d.Health.Health)
	r.Handle("/metrics", d.Metrics.Handler())

	authHandler := handler.NewAuthHandler(d.Auth)
	authHandler.RegisterRoutes(r)

	r.Route("/menu", handler.NewMenuHandler(d.Menu).RegisterRoutes)
	r.Route("/carts", handler.NewCartHandler(d.Carts, d.Menu, d.Orders, d.Clock).RegisterRoutes)

	// WebSocket routes (staff auth via query param, customers by order ID)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeStaffWS(d.Hub, d.Auth, w, r)
	})
	r.Get("/ws/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeOrderWS(d.Hub, func(id string) error {
			_, err := d.Orders.Get(id)
			return err
		}, w, r)
	})

	orderHandler := handler.NewOrderHandler(d.Orders, d.Feed, d.Clock)
	r.Route("/orders", func(r chi.Router) {
		orderHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(d.Auth))
			r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleOwner))
			orderHandler.RegisterRoutes(r)
		})
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(d.Auth))
		authHandler.RegisterSessionRoutes(r)

		// Owner-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleOwner))
			r.Route("/reports", handler.NewReportsHandler(d.Orders, d.Clock).RegisterRoutes)
		})
	})

	d.Log.Info("router initialized")
	return r
}
