package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warungmie/api/internal/cache"
	"github.com/warungmie/api/internal/catalog"
	"github.com/warungmie/api/internal/config"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/handler"
	mw "github.com/warungmie/api/internal/middleware"
	"github.com/warungmie/api/internal/payment"
	"github.com/warungmie/api/internal/pricing"
	"github.com/warungmie/api/internal/service"
	"github.com/warungmie/api/internal/ws"
)

// Services bundles the wired application services so cmd/server can share
// them with background workers (the sweeper) without rebuilding the graph.
type Services struct {
	Orders     *service.OrderService
	Settlement *service.SettlementService
}

// New creates a Chi router with all application routes wired up.
// Customer-facing placement/tracking/payment routes are public (the QR-entry
// flow has no account); kitchen and staff routes require a staff token.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, queueCache cache.QueueCache) (chi.Router, *Services) {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Service graph
	catalogSvc := catalog.NewService(queries)
	estimator := pricing.NewEstimator(catalogSvc, nil)
	notifier := ws.NewHubNotifier(hub)

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderSvc := service.NewOrderService(queries, pool, newOrderStore, estimator, queueCache, notifier, nil)

	gateway := payment.NewClient(cfg.MidtransBaseURL, cfg.MidtransServerKey)
	newSettlementStore := func(db database.DBTX) service.SettlementStore {
		return database.New(db)
	}
	settlementSvc := service.NewSettlementService(queries, pool, newSettlementStore, gateway, cfg.MidtransEnabledMethods, queueCache, notifier, nil)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	menuHandler := handler.NewMenuHandler(catalogSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	kitchenHandler := handler.NewKitchenHandler(orderSvc, queueCache)
	paymentHandler := handler.NewPaymentHandler(settlementSvc)
	staffHandler := handler.NewStaffHandler(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/refresh", authHandler.Refresh)

	r.Get("/menu/categories", menuHandler.Categories)
	r.Get("/menu/quick-jobs", menuHandler.QuickJobs)

	r.Get("/payments/methods", paymentHandler.Methods)
	r.Post("/payments/verify", paymentHandler.Verify)

	r.Post("/orders", orderHandler.Place)
	r.Get("/orders/{id}", orderHandler.Get)
	r.Post("/orders/{id}/charge", paymentHandler.Charge)
	r.Post("/orders/{id}/simulate-payment", paymentHandler.Simulate)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Staff routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("admin", "cashier"))
			r.Get("/kitchen/queue", kitchenHandler.Queue)
			r.Post("/orders/{id}/cook", kitchenHandler.StartCooking)
			r.Post("/orders/{id}/finish", kitchenHandler.Finish)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("admin"))
			r.Post("/staff", staffHandler.Create)
		})
	})

	return r, &Services{Orders: orderSvc, Settlement: settlementSvc}
}
