package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/grainlyyy/pds-api/internal/config"
	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/transport/http/handler"
	appmiddleware "github.com/grainlyyy/pds-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Tokens)
	adminOnly := appmiddleware.RequireRole(domain.RoleAdmin)

	// 5 requests/second, burst of 10, on sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.HealthChecks)
	authH := handler.NewAuthHandler(deps.Auth)
	identityH := handler.NewIdentityHandler(deps.Identity)
	otpH := handler.NewOTPHandler(deps.OTP)
	signupH := handler.NewSignupHandler(deps.Signups)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	allocH := handler.NewAllocationHandler(deps.Allocations)
	pickupH := handler.NewPickupHandler(deps.Pickups)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health", healthH.Check)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/auth/admin/login", authH.AdminLogin)
			r.Post("/auth/consumer/login", authH.ConsumerLogin)
			r.Post("/auth/shopkeeper/login", authH.ShopkeeperLogin)
			r.Post("/auth/delivery/login", authH.DeliveryLogin)

			r.Post("/otp/generate", otpH.Generate)
			r.Post("/otp/verify", otpH.Verify)

			r.Post("/signups/{kind}", signupH.Submit)
		})

		r.Get("/identities/{role}/{key}", identityH.Get)
		r.Get("/otp", otpH.Details)

		r.Get("/notifications", notifH.List)
		r.Post("/notifications", notifH.Create)
		r.Patch("/notifications/{id}", notifH.Update)

		// ── Admin routes ─────────────────────────────────────────────────────
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMw)
			r.Use(adminOnly)

			r.Get("/categories", signupH.Categories)
			r.Post("/signups/reconcile", signupH.Reconcile)
			r.Get("/signups/{kind}", signupH.List)
			r.Get("/signups/{kind}/{id}", signupH.Get)
			r.Patch("/signups/{kind}/{id}", signupH.Review)

			r.Get("/otp/stats", otpH.Stats)
			r.Delete("/otp", otpH.Cleanup)

			r.Post("/pickups", pickupH.Assign)
			r.Post("/pickups/{id}/confirm", pickupH.Confirm)
			r.Post("/deliveries", pickupH.MarkDelivered)

			r.Get("/allocations", allocH.List)
			r.Post("/allocations", allocH.Create)
			r.Put("/allocations/{id}", allocH.Update)
			r.Delete("/allocations/{id}", allocH.Delete)

			r.Put("/abi", pickupH.UploadABI)
			r.Get("/abi/url", pickupH.ABIURL)
		})
	})

	return r
}
