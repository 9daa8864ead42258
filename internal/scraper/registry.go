package scraper

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"remote-jobs/internal/config"
	"remote-jobs/internal/pipeline"
)

type constructor func(f *Fetcher, logger *log.Logger) pipeline.Source

var registry = map[string]constructor{
	jobicyName:    func(f *Fetcher, l *log.Logger) pipeline.Source { return NewJobicy(f, l) },
	himalayasName: func(f *Fetcher, l *log.Logger) pipeline.Source { return NewHimalayas(f, l) },
	wwrName:       func(f *Fetcher, l *log.Logger) pipeline.Source { return NewWeWorkRemotely(f, l) },
	wnName:        func(f *Fetcher, l *log.Logger) pipeline.Source { return NewWorkingNomads(f, l) },
}

// Names lists every registered source in alphabetical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewSource builds a single source by name.
func NewSource(name string, f *Fetcher, logger *log.Logger) (pipeline.Source, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(f, logger), nil
}

// NewSources builds the sources named in names, sharing one fetcher.
func NewSources(names []string, f *Fetcher, logger *log.Logger) ([]pipeline.Source, error) {
	out := make([]pipeline.Source, 0, len(names))
	for _, name := range names {
		src, err := NewSource(name, f, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// NewFetcherFromConfig wires the shared fetcher, with headless Chrome as
// the 403 fallback when enabled.
func NewFetcherFromConfig(cfg config.ScraperConfig, logger *log.Logger) *Fetcher {
	opts := FetcherOptions{
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		RateLimit:  cfg.RateLimit,
		Logger:     logger,
	}
	if cfg.Headless {
		opts.Headless = NewChromeFetcher(cfg.RequestTimeout)
	}
	return NewFetcher(opts)
}
