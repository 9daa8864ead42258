package app

import (
	"context"
	"fmt"
	"strings"

	"remote-jobs/internal/config"
	"remote-jobs/internal/delivery/http/handler"
	"remote-jobs/internal/delivery/http/middleware"
	"remote-jobs/internal/delivery/http/routes"
	"remote-jobs/internal/scheduler"
	"remote-jobs/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
	Scheduler *scheduler.Scheduler
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	a := &App{Fiber: f, Container: c}
	if spec := strings.TrimSpace(c.Config.Scraper.Schedule); spec != "" {
		a.Scheduler = scheduler.New(spec, func(ctx context.Context) {
			if _, err := c.Crawl.Run(ctx, "", 0); err != nil {
				c.Log.Printf("scheduler=crawl status=error err=%v", err)
			}
		}, c.Log)
	}
	return a
}

// Bootstrap wires the container into a fiber app. ctx bounds the websocket
// hub, the scheduler and crawls triggered over HTTP.
func Bootstrap(ctx context.Context, cfg config.Config) (*App, func() error, error) {
	c, err := NewContainer(cfg, Options{BaseContext: ctx})
	if err != nil {
		return nil, nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	a := New(c)
	go c.Hub.Run(ctx)
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			_ = c.Close()
			return nil, nil, err
		}
	}

	cleanup := func() error {
		if a.Scheduler != nil {
			<-a.Scheduler.Stop().Done()
		}
		return c.Close()
	}
	return a, cleanup, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(c.Log).Middleware())
	app.Use(middleware.NewErrorMiddleware(c.Log).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	health := handler.NewHealthHandler(nil, c.Redis)
	if c.DB != nil {
		health = handler.NewHealthHandler(c.DB, c.Redis)
	}
	routes.NewRegistry(routes.Handlers{
		Health: health,
		Jobs:   handler.NewJobsHandler(c.JobList),
		Crawls: handler.NewCrawlHandler(c.Crawl),
		WS:     ws.NewHandler(c.Hub, c.Log),
		Auth:   middleware.NewAuthMiddleware(c.JWT),
	}).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
