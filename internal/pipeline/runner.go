package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

const (
	DefaultMaxDetails = 50
	crawlStage        = "full"
	msgNoListings     = "No listings found"
)

var (
	ErrNoDetail   = errors.New("source returned no detail")
	ErrSourceBusy = errors.New("source is already being crawled")
)

type Outcome int

const (
	OutcomeError Outcome = iota
	OutcomeNew
	OutcomeUpdated
	OutcomeDuplicate
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "quality_rejected"
	default:
		return "error"
	}
}

// Source is one job board. CrawlListings discovers stubs and CrawlDetail
// turns one stub into a raw record.
type Source interface {
	Name() string
	CrawlListings(ctx context.Context) ([]job.Listing, error)
	CrawlDetail(ctx context.Context, l job.Listing) (job.RawDetail, error)
}

type Store interface {
	FingerprintFinder
	FindIDByNaturalKey(ctx context.Context, source, sourceJobID string) (uuid.UUID, bool, error)
	Upsert(ctx context.Context, j *job.Job) (job.UpsertResult, error)
	MarkStale(ctx context.Context, source string, checkedBefore time.Time) (int64, error)
}

type CrawlLog interface {
	Start(ctx context.Context, source, stage string) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, stats job.CrawlStats, errMsg string) error
}

type Notifier interface {
	NotifyJobsUpdated(source string, newJobs, updatedJobs int)
}

// TryLocker takes a lock without waiting; ok is false when someone else
// holds it.
type TryLocker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

type RunnerOptions struct {
	Workers    int
	StaleAfter time.Duration
	// DetailsPerSecond caps detail fetches per source run. Zero means no cap.
	DetailsPerSecond int

	Locker      Locker
	SourceGuard TryLocker
	CrawlLog    CrawlLog
	Notifier    Notifier
	Logger      *log.Logger
	Now         func() time.Time
}

// Runner drives listings through normalize, quality gate, dedupe and upsert.
type Runner struct {
	store      Store
	dedupe     *Deduplicator
	normalizer Normalizer
	locker     Locker
	guard      TryLocker
	crawlLog   CrawlLog
	notifier   Notifier
	log        *log.Logger
	workers    int
	detailRate int
	staleAfter time.Duration
	now        func() time.Time
}

func NewRunner(store Store, opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locker == nil {
		opts.Locker = NewKeyedMutex()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{
		store:      store,
		dedupe:     NewDeduplicator(store),
		normalizer: Normalizer{Now: opts.Now},
		locker:     opts.Locker,
		guard:      opts.SourceGuard,
		crawlLog:   opts.CrawlLog,
		notifier:   opts.Notifier,
		log:        opts.Logger,
		workers:    opts.Workers,
		detailRate: opts.DetailsPerSecond,
		staleAfter: opts.StaleAfter,
		now:        opts.Now,
	}
}

// RunAll crawls sources one after another. A failing source never stops the
// others.
func (r *Runner) RunAll(ctx context.Context, sources []Source, maxDetails int) map[string]job.CrawlStats {
	start := time.Now()
	r.log.Printf("pipeline=crawl status=started sources=%d", len(sources))

	all := make(map[string]job.CrawlStats, len(sources))
	var total job.CrawlStats
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		stats, err := r.RunSource(ctx, src, maxDetails)
		if err != nil {
			r.log.Printf("pipeline=crawl source=%s status=error err=%v", src.Name(), err)
		}
		all[src.Name()] = stats
		total.Add(stats)
	}

	r.log.Printf("pipeline=crawl status=finished duration=%s found=%d new=%d updated=%d duplicates=%d rejected=%d errors=%d",
		time.Since(start), total.Found, total.New, total.Updated, total.Duplicates, total.QualityRejected, total.Errors)
	return all
}

// RunSource runs the two-stage crawl for a single source.
func (r *Runner) RunSource(ctx context.Context, src Source, maxDetails int) (stats job.CrawlStats, err error) {
	if r == nil || r.store == nil {
		return stats, fmt.Errorf("nil runner/store")
	}
	if src == nil {
		return stats, fmt.Errorf("nil source")
	}
	name := src.Name()
	if maxDetails <= 0 {
		maxDetails = DefaultMaxDetails
	}

	if r.guard != nil {
		unlock, ok, gerr := r.guard.TryLock(ctx, "crawl:lock:"+name)
		if gerr != nil {
			r.log.Printf("pipeline=crawl source=%s step=guard status=error err=%v", name, gerr)
		} else if !ok {
			r.log.Printf("pipeline=crawl source=%s status=skipped reason=locked", name)
			return stats, ErrSourceBusy
		} else {
			defer unlock()
		}
	}

	start := time.Now()
	startedAt := r.now()
	r.log.Printf("pipeline=crawl source=%s status=started", name)

	crawlID := r.startCrawl(ctx, name)
	defer func() {
		if rec := recover(); rec != nil {
			stats.Errors++
			err = fmt.Errorf("source %s panicked: %v", name, rec)
		}
		msg := ""
		if err != nil {
			msg = err.Error()
		} else if stats.Found == 0 {
			msg = msgNoListings
		}
		r.finishCrawl(name, crawlID, stats, msg)
		r.log.Printf("pipeline=crawl source=%s status=finished duration=%s found=%d fetched=%d new=%d updated=%d duplicates=%d rejected=%d errors=%d",
			name, time.Since(start), stats.Found, stats.DetailsFetched, stats.New, stats.Updated, stats.Duplicates, stats.QualityRejected, stats.Errors)
	}()

	listings, err := src.CrawlListings(ctx)
	if err != nil {
		stats.Errors++
		return stats, fmt.Errorf("crawl listings: %w", err)
	}
	stats.Found = len(listings)
	if len(listings) == 0 {
		r.log.Printf("pipeline=crawl source=%s status=empty reason=%q", name, msgNoListings)
		return stats, nil
	}
	if len(listings) > maxDetails {
		listings = listings[:maxDetails]
	}

	for res := range r.process(ctx, src, listings) {
		if res.Fetched {
			stats.DetailsFetched++
		}
		switch res.Outcome {
		case OutcomeNew:
			stats.New++
		case OutcomeUpdated:
			stats.Updated++
		case OutcomeDuplicate:
			stats.Duplicates++
		case OutcomeRejected:
			stats.QualityRejected++
		default:
			stats.Errors++
		}
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}

	if r.staleAfter > 0 {
		n, serr := r.store.MarkStale(ctx, name, startedAt.Add(-r.staleAfter))
		if serr != nil {
			r.log.Printf("pipeline=crawl source=%s step=mark_stale status=error err=%v", name, serr)
		} else if n > 0 {
			r.log.Printf("pipeline=crawl source=%s step=mark_stale status=ok marked=%d", name, n)
		}
	}

	if (stats.New > 0 || stats.Updated > 0) && r.notifier != nil {
		r.notifier.NotifyJobsUpdated(name, stats.New, stats.Updated)
	}
	return stats, nil
}

func (r *Runner) process(ctx context.Context, src Source, listings []job.Listing) <-chan Result {
	workers := r.workers
	if workers > len(listings) {
		workers = len(listings)
	}
	pool := NewWorkerPool(workers, workers*2)
	pool.SetRateLimit(r.detailRate)
	results := pool.Run(ctx)

	go func() {
		defer pool.Close()
		for _, l := range listings {
			l := l
			if !pool.Submit(ctx, func(ctx context.Context) Result {
				return r.ProcessListing(ctx, src, l)
			}) {
				return
			}
		}
	}()

	return results
}

// ProcessListing handles one listing end to end. Failures and panics become
// an error outcome so the batch keeps going.
func (r *Runner) ProcessListing(ctx context.Context, src Source, l job.Listing) (res Result) {
	name := src.Name()
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Outcome: OutcomeError, Fetched: res.Fetched, Err: fmt.Errorf("panic: %v", rec)}
		}
		if res.Outcome == OutcomeError && res.Err != nil {
			r.log.Printf("pipeline=crawl source=%s url=%s status=error err=%v", name, l.URL, res.Err)
		}
	}()

	raw, err := src.CrawlDetail(ctx, l)
	if err != nil {
		return Result{Err: fmt.Errorf("crawl detail: %w", err)}
	}
	if raw == nil {
		return Result{Err: ErrNoDetail}
	}
	res.Fetched = true

	if raw.String(job.KeySource) == "" {
		raw[job.KeySource] = name
	}
	if raw.String(job.KeySourceJobID) == "" {
		raw[job.KeySourceJobID] = l.SourceJobID
	}

	j := r.normalizer.Normalize(raw)
	if strings.TrimSpace(j.SourceJobID) == "" {
		res.Err = fmt.Errorf("empty source_job_id")
		return res
	}

	if ok, reason := Passes(j); !ok {
		r.log.Printf("pipeline=crawl source=%s source_job_id=%s status=rejected reason=%q", name, j.SourceJobID, reason)
		res.Outcome = OutcomeRejected
		return res
	}

	outcome, err := r.persist(ctx, &j)
	res.Outcome, res.Err = outcome, err
	return res
}

// persist runs dedupe and upsert under the fingerprint lock so two workers
// never both decide the same content is new.
func (r *Runner) persist(ctx context.Context, j *job.Job) (Outcome, error) {
	unlock, err := r.locker.Lock(ctx, "fp:"+j.FingerprintHash)
	if err != nil {
		return OutcomeError, fmt.Errorf("lock fingerprint: %w", err)
	}
	defer unlock()

	id, found, err := r.store.FindIDByNaturalKey(ctx, j.Source, j.SourceJobID)
	if err != nil {
		return OutcomeError, fmt.Errorf("find natural key: %w", err)
	}
	if found {
		j.ID = id
	}

	dup, err := r.dedupe.Check(ctx, *j)
	if err != nil {
		return OutcomeError, err
	}
	if dup != nil {
		r.log.Printf("pipeline=crawl source=%s source_job_id=%s status=duplicate of=%s of_source=%s", j.Source, j.SourceJobID, dup.ID, dup.Source)
		return OutcomeDuplicate, nil
	}

	res, err := r.store.Upsert(ctx, j)
	if err != nil {
		if errors.Is(err, job.ErrDuplicateFingerprint) {
			return OutcomeDuplicate, nil
		}
		return OutcomeError, fmt.Errorf("upsert: %w", err)
	}
	j.ID = res.ID
	if res.Inserted {
		return OutcomeNew, nil
	}
	return OutcomeUpdated, nil
}

func (r *Runner) startCrawl(ctx context.Context, source string) uuid.UUID {
	if r.crawlLog == nil {
		return uuid.Nil
	}
	id, err := r.crawlLog.Start(ctx, source, crawlStage)
	if err != nil {
		r.log.Printf("pipeline=crawl source=%s step=crawl_log status=error err=%v", source, err)
		return uuid.Nil
	}
	return id
}

func (r *Runner) finishCrawl(source string, id uuid.UUID, stats job.CrawlStats, msg string) {
	if r.crawlLog == nil || id == uuid.Nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.crawlLog.Finish(ctx, id, stats, msg); err != nil {
		r.log.Printf("pipeline=crawl source=%s step=crawl_log status=error err=%v", source, err)
	}
}
