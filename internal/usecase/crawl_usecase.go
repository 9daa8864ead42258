package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"remote-jobs/internal/domain/job"
	"remote-jobs/internal/pipeline"
	"remote-jobs/internal/repository"
)

const SourceAll = "all"

type CrawlUsecase interface {
	Run(ctx context.Context, source string, maxDetails int) (map[string]job.CrawlStats, error)
	Trigger(source string, maxDetails int) error
	Recent(ctx context.Context, source string, limit int) ([]job.CrawlRun, error)
	Running() bool
}

type CrawlRunner interface {
	RunAll(ctx context.Context, sources []pipeline.Source, maxDetails int) map[string]job.CrawlStats
	RunSource(ctx context.Context, src pipeline.Source, maxDetails int) (job.CrawlStats, error)
}

type CrawlOptions struct {
	MaxDetails int
	// Timeout bounds a triggered background crawl. Zero means no limit.
	Timeout time.Duration
	// BaseContext parents triggered crawls; canceling it stops them.
	BaseContext context.Context
	Logger      *log.Logger
}

// Crawl runs at most one crawl at a time per process, either inline (CLI,
// scheduler) or in the background (admin API).
type Crawl struct {
	runner     CrawlRunner
	sources    []pipeline.Source
	crawls     repository.CrawlLogRepository
	maxDetails int
	timeout    time.Duration
	base       context.Context
	log        *log.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewCrawlUsecase(runner CrawlRunner, sources []pipeline.Source, crawls repository.CrawlLogRepository, opts CrawlOptions) *Crawl {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.MaxDetails <= 0 {
		opts.MaxDetails = pipeline.DefaultMaxDetails
	}
	return &Crawl{
		runner:     runner,
		sources:    sources,
		crawls:     crawls,
		maxDetails: opts.MaxDetails,
		timeout:    opts.Timeout,
		base:       opts.BaseContext,
		log:        opts.Logger,
	}
}

// selectSources resolves "" or "all" to every configured source.
func (u *Crawl) selectSources(source string) ([]pipeline.Source, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" || source == SourceAll {
		return u.sources, nil
	}
	for _, s := range u.sources {
		if s.Name() == source {
			return []pipeline.Source{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
}

func (u *Crawl) Running() bool { return u.running.Load() }

func (u *Crawl) Run(ctx context.Context, source string, maxDetails int) (map[string]job.CrawlStats, error) {
	srcs, err := u.selectSources(source)
	if err != nil {
		return nil, err
	}
	if !u.running.CompareAndSwap(false, true) {
		return nil, ErrCrawlInProgress
	}
	defer u.running.Store(false)
	return u.run(ctx, srcs, maxDetails)
}

func (u *Crawl) run(ctx context.Context, srcs []pipeline.Source, maxDetails int) (map[string]job.CrawlStats, error) {
	if maxDetails <= 0 {
		maxDetails = u.maxDetails
	}
	if len(srcs) == 1 {
		stats, err := u.runner.RunSource(ctx, srcs[0], maxDetails)
		return map[string]job.CrawlStats{srcs[0].Name(): stats}, err
	}
	return u.runner.RunAll(ctx, srcs, maxDetails), nil
}

// Trigger starts a crawl in the background and returns at once.
func (u *Crawl) Trigger(source string, maxDetails int) error {
	srcs, err := u.selectSources(source)
	if err != nil {
		return err
	}
	if !u.running.CompareAndSwap(false, true) {
		return ErrCrawlInProgress
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.running.Store(false)

		ctx, cancel := u.base, context.CancelFunc(func() {})
		if u.timeout > 0 {
			ctx, cancel = context.WithTimeout(u.base, u.timeout)
		}
		defer cancel()

		start := time.Now()
		stats, err := u.run(ctx, srcs, maxDetails)
		var total job.CrawlStats
		for _, s := range stats {
			total.Add(s)
		}
		if err != nil {
			u.log.Printf("usecase=crawl trigger=api status=error duration=%s err=%v", time.Since(start), err)
			return
		}
		u.log.Printf("usecase=crawl trigger=api status=finished duration=%s sources=%d new=%d updated=%d",
			time.Since(start), len(stats), total.New, total.Updated)
	}()
	return nil
}

// Wait blocks until background crawls have returned.
func (u *Crawl) Wait() { u.wg.Wait() }

func (u *Crawl) Recent(ctx context.Context, source string, limit int) ([]job.CrawlRun, error) {
	if limit < 0 || limit > maxJobListLimit {
		return nil, ErrInvalidInput
	}
	if u.crawls == nil {
		return []job.CrawlRun{}, nil
	}
	runs, err := u.crawls.Recent(ctx, source, limit)
	if err != nil {
		u.log.Printf("usecase=crawl step=recent status=error err=%v", err)
		return nil, ErrInternal
	}
	return runs, nil
}
