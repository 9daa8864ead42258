package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"remote-jobs/internal/app"
	"remote-jobs/internal/config"
	"remote-jobs/internal/domain/job"
	"remote-jobs/internal/pipeline"
	"remote-jobs/internal/pkg/jwt"
	"remote-jobs/internal/scheduler"
	"remote-jobs/internal/scraper"
)

func main() {
	source := flag.String("source", "all", "source to crawl: all or one of "+strings.Join(scraper.Names(), ", "))
	maxDetails := flag.Int("max-details", pipeline.DefaultMaxDetails, "detail pages to fetch per source")
	workers := flag.Int("workers", 0, "concurrent detail fetches per source (0 keeps SCRAPER_WORKERS)")
	initDB := flag.Bool("init-db", false, "apply migrations and exit")
	dryRun := flag.Bool("dry-run", false, "keep results in memory instead of Postgres")
	schedule := flag.String("schedule", "", "cron spec; keep running and crawl on this schedule")
	issueToken := flag.String("issue-token", "", "print an admin API token for this subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *workers > 0 {
		cfg.Scraper.Workers = *workers
	}

	if *issueToken != "" {
		tok, err := jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiresIn).GenerateToken(*issueToken)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.NewContainer(cfg, app.Options{DryRun: *dryRun, BaseContext: ctx})
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Printf("close error: %v", err)
		}
	}()

	migCtx, migCancel := context.WithTimeout(ctx, 2*time.Minute)
	err = c.Migrate(migCtx)
	migCancel()
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if *initDB {
		log.Printf("database initialized")
		return
	}

	crawl := func(ctx context.Context) {
		start := time.Now()
		stats, err := c.Crawl.Run(ctx, *source, *maxDetails)
		if err != nil {
			log.Printf("crawl status=error err=%v", err)
			return
		}
		printSummary(stats, time.Since(start))
	}

	if strings.TrimSpace(*schedule) == "" {
		crawl(ctx)
		return
	}

	go c.Hub.Run(ctx)
	s := scheduler.New(*schedule, crawl, c.Log, scheduler.WithRunOnStart())
	if err := s.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	<-ctx.Done()
	<-s.Stop().Done()
}

func printSummary(stats map[string]job.CrawlStats, elapsed time.Duration) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var total job.CrawlStats
	w := os.Stdout
	fmt.Fprintf(w, "%-16s %6s %6s %6s %7s %6s %8s %6s\n", "SOURCE", "FOUND", "DETAIL", "NEW", "UPDATED", "DUPES", "REJECTED", "ERRORS")
	for _, name := range names {
		s := stats[name]
		total.Add(s)
		fmt.Fprintf(w, "%-16s %6d %6d %6d %7d %6d %8d %6d\n", name, s.Found, s.DetailsFetched, s.New, s.Updated, s.Duplicates, s.QualityRejected, s.Errors)
	}
	fmt.Fprintf(w, "%-16s %6d %6d %6d %7d %6d %8d %6d\n", "TOTAL", total.Found, total.DetailsFetched, total.New, total.Updated, total.Duplicates, total.QualityRejected, total.Errors)
	fmt.Fprintf(w, "finished in %s\n", elapsed.Round(time.Millisecond))
}
