package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jfchinemerem/Threesixteen/internal/auth"
	"github.com/jfchinemerem/Threesixteen/internal/checkout"
	"github.com/jfchinemerem/Threesixteen/internal/service"
	"github.com/jfchinemerem/Threesixteen/internal/view"
	"github.com/jfchinemerem/Threesixteen/pkg/health"
	"github.com/jfchinemerem/Threesixteen/pkg/middleware"
)

// RouterConfig bundles the dependencies and settings the router needs.
type RouterConfig struct {
	UserService  *service.UserService
	Views        *view.Registry
	Store        view.WishlistStore
	Checkout     *checkout.Orchestrator
	JWTManager   *auth.JWTManager
	Health       *health.Handler
	Logger       *slog.Logger
	ServiceName  string
	PublicOrigin string
	CORS         middleware.CORSConfig
	TracingOn    bool
	PprofCIDRs   []string
	EnablePprof  bool
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	// Tracing runs before the logging middlewares so log lines pick up the
	// span context.
	if cfg.TracingOn {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics())

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.EnablePprof {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)
	}

	// Bridge to the application's JWT manager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := cfg.JWTManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Email: claims.Email}, nil
	}

	authHandler := NewAuthHandler(cfg.UserService, cfg.Views, cfg.Logger)
	userHandler := NewUserHandler(cfg.UserService, cfg.Logger)
	wishlistHandler := NewWishlistHandler(cfg.Views, cfg.Store, cfg.PublicOrigin, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Store, cfg.Logger)

	// Public auth endpoints.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(tokenValidator))
			r.Get("/session", authHandler.Session)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	// Profile endpoints.
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/me", userHandler.GetProfile)
		r.Put("/me", userHandler.UpdateProfile)
	})

	// Wishlist and view endpoints, owner session scoped.
	r.Route("/api/v1/wishlists", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", wishlistHandler.List)
		r.Post("/", wishlistHandler.Create)
		r.Get("/{id}", wishlistHandler.Get)
		r.Put("/{id}", wishlistHandler.Update)
		r.Delete("/{id}", wishlistHandler.Delete)
		r.Post("/{id}/items", wishlistHandler.AddItem)
		r.Delete("/{id}/items/{itemID}", wishlistHandler.RemoveItem)
		r.Get("/{id}/share", wishlistHandler.Share)
	})

	r.Route("/api/v1/view", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", wishlistHandler.ViewState)
		r.Post("/deselect", wishlistHandler.Deselect)
	})

	// Checkout endpoints. Public so shared-view visitors can purchase;
	// signed-in callers get their identity picked up when present.
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.OptionalAuth(tokenValidator))

		r.Post("/", checkoutHandler.Begin)
		r.Get("/{sessionID}", checkoutHandler.State)
		r.Post("/{sessionID}/pay", checkoutHandler.Pay)
		r.Post("/{sessionID}/success", checkoutHandler.Success)
		r.Post("/{sessionID}/close", checkoutHandler.Close)
	})

	// The page a share link opens.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(tokenValidator))
		r.Get("/wishlist/{id}", wishlistHandler.Public)
	})

	return r
}
