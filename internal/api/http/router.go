package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/integrity-watch/report-service/internal/api/http/handlers"
	"github.com/integrity-watch/report-service/internal/auth"
	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/observability"
	"github.com/integrity-watch/report-service/internal/storage"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportsHandler
	Analytics      *handlers.AnalyticsHandler
	Users          *handlers.UsersHandler
	Socket         *handlers.SocketHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	UploadsDir     string
	RateLimit      config.RateLimitConfig
}

// evidenceHeaders keeps browsers from rendering uploaded files as active content.
func evidenceHeaders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; sandbox")
	return c.Next()
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	if cfg.UploadsDir != "" {
		prefix := strings.TrimSuffix(storage.URLPrefix, "/")
		app.Use(prefix, evidenceHeaders)
		app.Static(prefix, cfg.UploadsDir, fiber.Static{Browse: false})
	}

	authn := cfg.AuthMiddleware.Handle
	verifiedPolice := auth.RequireVerifiedPolice()
	adminOnly := auth.RequireRole(domain.RoleAdmin)
	throttle := rateLimiter(cfg.RateLimit)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", throttle, cfg.Auth.Register)
	authGroup.Post("/login", throttle, cfg.Auth.Login)
	authGroup.Post("/verify-email", throttle, cfg.Auth.VerifyEmail)
	authGroup.Post("/forgot-password", throttle, cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", throttle, cfg.Auth.ResetPassword)
	authGroup.Get("/me", authn, cfg.Auth.Me)
	authGroup.Put("/profile", authn, cfg.Auth.UpdateProfile)
	authGroup.Put("/password", authn, cfg.Auth.ChangePassword)
	authGroup.Post("/logout", authn, cfg.Auth.Logout)

	reports := api.Group("/reports")
	reports.Post("", cfg.AuthMiddleware.Optional, cfg.Reports.Create)
	reports.Get("", authn, cfg.Reports.List)
	reports.Get("/my/stats", authn, auth.RequireRole(domain.RoleCitizen), cfg.Reports.MyStats)
	reports.Get("/track/:code", cfg.Reports.Track)
	reports.Get("/:id", authn, cfg.Reports.Get)
	reports.Put("/:id", authn, cfg.Reports.Update)
	reports.Delete("/:id", authn, cfg.Reports.Delete)
	reports.Patch("/:id/status", authn, verifiedPolice, cfg.Reports.UpdateStatus)
	reports.Patch("/:id/assign", authn, adminOnly, cfg.Reports.Assign)
	reports.Post("/:id/resolve", authn, verifiedPolice, cfg.Reports.Resolve)
	reports.Post("/:id/notes", authn, verifiedPolice, cfg.Reports.AddNote)
	reports.Get("/:id/messages", authn, cfg.Reports.ListMessages)
	reports.Post("/:id/messages", authn, cfg.Reports.AddMessage)
	reports.Post("/:id/evidence", authn, cfg.Reports.AddEvidence)

	analytics := api.Group("/analytics", authn, verifiedPolice)
	analytics.Get("/overview", cfg.Analytics.Overview)
	analytics.Get("/categories", cfg.Analytics.Categories)
	analytics.Get("/statuses", cfg.Analytics.Statuses)
	analytics.Get("/priorities", cfg.Analytics.Priorities)
	analytics.Get("/locations", cfg.Analytics.Locations)
	analytics.Get("/trends", cfg.Analytics.Trends)
	analytics.Get("/officers", cfg.Analytics.Officers)

	users := api.Group("/users", authn, adminOnly)
	users.Get("", cfg.Users.List)
	users.Post("", cfg.Users.Create)
	users.Get("/officers", cfg.Users.ListOfficers)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id/role", cfg.Users.UpdateRole)
	users.Patch("/:id/status", cfg.Users.UpdateStatus)
	users.Patch("/:id/verify", cfg.Users.Verify)

	if cfg.Socket != nil {
		app.Get("/ws", cfg.Socket.Upgrade, cfg.Socket.Serve())
	}
}

func rateLimiter(cfg config.RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window(),
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}
