package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/ws"
)

type Dependencies struct {
	Manager *alert.Manager
	Hub     *ws.Hub
	// DB is pinged by /ready; nil when persistence is disabled.
	DB handler.Pinger

	SnapshotRateLimit middleware.RateLimiterConfig
	AllowOrigins      string
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Defiwatch API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	allowOrigins := "*"
	if r.deps != nil && r.deps.AllowOrigins != "" {
		allowOrigins = r.deps.AllowOrigins
	}

	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db handler.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil || r.deps.Manager == nil {
		return
	}

	v1 := r.app.Group("/v1")
	store := r.deps.Manager.Store()

	alertsHandler := handler.NewAlertsHandler(store, r.logger)
	v1.Get("/alerts", alertsHandler.List)
	v1.Post("/alerts", alertsHandler.Create)
	v1.Get("/alerts/unread-count", alertsHandler.UnreadCount)
	v1.Post("/alerts/read-all", alertsHandler.MarkAllAsRead)
	v1.Get("/alerts/:id", alertsHandler.Get)
	v1.Post("/alerts/:id/read", alertsHandler.MarkAsRead)
	v1.Delete("/alerts/:id", alertsHandler.Dismiss)

	rulesHandler := handler.NewRulesHandler(store, r.logger)
	v1.Get("/rules", rulesHandler.List)
	v1.Post("/rules", rulesHandler.Create)
	v1.Get("/rules/:id", rulesHandler.Get)
	v1.Patch("/rules/:id", rulesHandler.Update)
	v1.Delete("/rules/:id", rulesHandler.Delete)

	r.rateLimiter = middleware.NewRateLimiter(r.deps.SnapshotRateLimit)
	snapshotsHandler := handler.NewSnapshotsHandler(r.deps.Manager, r.logger)
	snapshots := v1.Group("/snapshots", r.rateLimiter.Handler())
	snapshots.Post("/prices", snapshotsHandler.Prices)
	snapshots.Post("/portfolio", snapshotsHandler.Portfolio)
	snapshots.Post("/gas", snapshotsHandler.Gas)
	snapshots.Post("/yields", snapshotsHandler.Yields)

	if r.deps.Hub != nil {
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
