package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"remote-jobs/internal/config"
	"remote-jobs/internal/database"
	"remote-jobs/internal/database/migration"
	dbpostgres "remote-jobs/internal/database/postgres"
	"remote-jobs/internal/infrastructure/cache"
	"remote-jobs/internal/pipeline"
	"remote-jobs/internal/pkg/jwt"
	"remote-jobs/internal/repository"
	"remote-jobs/internal/scraper"
	"remote-jobs/internal/usecase"
	"remote-jobs/internal/ws"
	"remote-jobs/migrations"
)

const crawlTimeout = 30 * time.Minute

type Options struct {
	// DryRun keeps every job in memory and never touches Postgres.
	DryRun bool
	// BaseContext parents background crawls started over HTTP.
	BaseContext context.Context
	Logger      *log.Logger
}

// Container owns the long-lived dependencies shared by the server and the
// CLI.
type Container struct {
	Config config.Config
	Log    *log.Logger

	DB    database.DB
	Redis *cache.Redis

	Jobs   repository.JobRepository
	Crawls repository.CrawlLogRepository

	Sources  []pipeline.Source
	Runner   *pipeline.Runner
	Hub      *ws.Hub
	Notifier *ws.Notifier
	JWT      jwt.Service

	JobList *usecase.JobList
	Crawl   *usecase.Crawl
}

func NewContainer(cfg config.Config, opts Options) (*Container, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &Container{Config: cfg, Log: logger}

	if opts.DryRun {
		c.Jobs = repository.NewMemoryJobStore()
		c.Crawls = repository.NewMemoryCrawlLog()
		logger.Printf("app=container storage=memory dry_run=true")
	} else {
		if err := cfg.Database.Validate(); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := dbpostgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Jobs = repository.NewPostgresJobRepository(db)
		c.Crawls = repository.NewPostgresCrawlLogRepository(db)
	}

	c.Redis = cache.NewRedis(cfg.Redis, logger)
	c.Hub = ws.NewHub(logger)
	c.Notifier = ws.NewNotifier(c.Hub, c.Redis, logger)

	fetcher := scraper.NewFetcherFromConfig(cfg.Scraper, logger)
	sources, err := scraper.NewSources(cfg.Scraper.Sources, fetcher, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Sources = sources

	redisLocks := cache.NewLocker(c.Redis, 0)
	c.Runner = pipeline.NewRunner(c.Jobs, pipeline.RunnerOptions{
		Workers:          cfg.Scraper.Workers,
		DetailsPerSecond: cfg.Scraper.DetailsPerSec,
		StaleAfter:       cfg.Scraper.StaleAfter,
		Locker:           pipeline.Chain(pipeline.NewKeyedMutex(), redisLocks),
		SourceGuard:      redisLocks,
		CrawlLog:         c.Crawls,
		Notifier:         c.Notifier,
		Logger:           logger,
	})

	c.JobList = usecase.NewJobListUsecase(c.Jobs, c.Redis, logger)
	c.Crawl = usecase.NewCrawlUsecase(c.Runner, c.Sources, c.Crawls, usecase.CrawlOptions{
		MaxDetails:  cfg.Scraper.MaxDetails,
		Timeout:     crawlTimeout,
		BaseContext: opts.BaseContext,
		Logger:      logger,
	})

	if err := cfg.JWT.Validate(); err != nil {
		logger.Printf("app=container admin_api=disabled reason=%q", err.Error())
	}
	c.JWT = jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiresIn)

	return c, nil
}

// Migrate applies the embedded schema migrations. It is a no-op without a
// database.
func (c *Container) Migrate(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return nil
	}
	r := migration.Runner{FS: migrations.FS, Logger: c.Log}
	n, err := r.Run(ctx, c.DB.SQLDB())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	c.Log.Printf("app=migrate applied=%d", n)
	return nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Crawl != nil {
		c.Crawl.Wait()
	}

	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
