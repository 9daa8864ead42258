package routes

import (
	"remote-jobs/internal/delivery/http/handler"
	"remote-jobs/internal/delivery/http/middleware"
	"remote-jobs/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health *handler.HealthHandler
	jobs   *handler.JobsHandler
	crawls *handler.CrawlHandler
	ws     *ws.Handler
	auth   *middleware.AuthMiddleware
}

type Handlers struct {
	Health *handler.HealthHandler
	Jobs   *handler.JobsHandler
	Crawls *handler.CrawlHandler
	WS     *ws.Handler
	Auth   *middleware.AuthMiddleware
}

func NewRegistry(h Handlers) *Registry {
	if h.Health == nil {
		h.Health = handler.NewHealthHandler(nil, nil)
	}
	return &Registry{health: h.Health, jobs: h.Jobs, crawls: h.Crawls, ws: h.WS, auth: h.Auth}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)
	if r.ws != nil {
		app.Get("/ws/jobs", r.ws.HandleJobsWS)
	}
	r.registerAPI(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	v1 := app.Group("/api").Group("/v1")
	if r.jobs != nil {
		r.jobs.RegisterRoutes(v1)
	}
	if r.crawls != nil {
		admin := v1.Group("/admin", r.auth.Middleware())
		r.crawls.RegisterRoutes(v1, admin)
	}
}
