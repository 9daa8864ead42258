// Package scheduler runs the crawl on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron. Ticks that fire while a crawl is still running
// are skipped, including the crawl started by WithRunOnStart.
type Scheduler struct {
	cron       *cron.Cron
	chain      cron.Chain
	spec       string
	run        func(ctx context.Context)
	runOnStart bool
	log        *log.Logger

	startRun sync.WaitGroup
}

type Option func(*Scheduler)

// WithRunOnStart triggers one crawl as soon as Start is called.
func WithRunOnStart() Option {
	return func(s *Scheduler) { s.runOnStart = true }
}

func New(spec string, run func(ctx context.Context), logger *log.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		spec: strings.TrimSpace(spec),
		run:  run,
		log:  logger,
	}
	s.cron = cron.New()
	s.chain = cron.NewChain(
		cron.Recover(cron.PrintfLogger(logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
	)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.run == nil {
		return fmt.Errorf("scheduler: nil run func")
	}
	if s.spec == "" {
		return fmt.Errorf("scheduler: empty schedule")
	}
	job := s.chain.Then(cron.FuncJob(func() { s.tick(ctx) }))
	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Printf("scheduler=crawl status=started spec=%q", s.spec)

	if s.runOnStart {
		s.startRun.Add(1)
		go func() {
			defer s.startRun.Done()
			job.Run()
		}()
	}
	return nil
}

// Stop halts the schedule and returns a context that is done once any
// running crawl has returned.
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	s.log.Printf("scheduler=crawl status=stopped")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.startRun.Wait()
		cancel()
	}()
	return ctx
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.log.Printf("scheduler=crawl status=tick")
	s.run(ctx)
}
