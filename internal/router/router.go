package router

import (
	"net/http"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	mw "github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, company scoping, and role-based middleware as
// needed.
func New(cfg *config.Config, store *postgres.Store, pool *pgxpool.Pool, tabs *service.TabService, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/companies/{cid}/tabs", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	orderService := service.NewOrderService(pool, func(db postgres.DBTX) service.OrderStore {
		return postgres.New(db)
	})
	checkoutService := service.NewCheckoutService(pool, func(db postgres.DBTX) service.CheckoutStore {
		return postgres.New(db)
	}, tabs)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/companies/{cid}", func(r chi.Router) {
			r.Use(mw.RequireCompany)

			tabHandler := handler.NewTabHandler(tabs, orderService, checkoutService)
			r.Route("/tabs", tabHandler.RegisterRoutes)

			// Counter sales and tab checkouts are cashier work.
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleCashier))
				r.Route("/sales", tabHandler.RegisterSalesRoutes)
			})

			orderHandler := handler.NewOrderHandler(orderService, store)
			r.Route("/orders", orderHandler.RegisterRoutes)

			productHandler := handler.NewProductHandler(store)
			r.Route("/products", productHandler.RegisterRoutes)

			ledgerHandler := handler.NewLedgerHandler(store)
			r.Route("/stock", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
				ledgerHandler.RegisterStockRoutes(r)
			})
			r.Route("/transactions", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
				ledgerHandler.RegisterTransactionRoutes(r)
			})
		})
	})

	return r
}
