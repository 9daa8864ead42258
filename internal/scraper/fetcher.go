package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxBody = 5 << 20

var defaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// HTMLFetcher renders a page in a real browser. It is the fallback for hosts
// that answer plain HTTP clients with 403.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d for %s", e.Code, e.URL)
}

func (e *StatusError) retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

type FetcherOptions struct {
	Client     *http.Client
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	RateLimit  time.Duration
	MaxBody    int64
	UserAgents []string
	Headless   HTMLFetcher
	Logger     *log.Logger
}

// Fetcher is the shared HTTP client of every source: retries with
// exponential backoff, per-host spacing, rotating user agents and a body
// size cap.
type Fetcher struct {
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	rateLimit  time.Duration
	maxBody    int64
	agents     []string
	headless   HTMLFetcher
	log        *log.Logger

	agentIdx atomic.Uint64
	mu       sync.Mutex
	nextSlot map[string]time.Time
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = defaultMaxBody
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = defaultUserAgents
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Fetcher{
		client:     opts.Client,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		rateLimit:  opts.RateLimit,
		maxBody:    opts.MaxBody,
		agents:     opts.UserAgents,
		headless:   opts.Headless,
		log:        opts.Logger,
		nextSlot:   map[string]time.Time{},
	}
}

func (f *Fetcher) userAgent() string {
	i := f.agentIdx.Add(1) - 1
	return f.agents[i%uint64(len(f.agents))]
}

// wait blocks until host may be hit again and reserves the following slot.
func (f *Fetcher) wait(ctx context.Context, host string) error {
	if f.rateLimit <= 0 {
		return ctx.Err()
	}
	f.mu.Lock()
	now := time.Now()
	slot := f.nextSlot[host]
	if slot.Before(now) {
		slot = now
	}
	f.nextSlot[host] = slot.Add(f.rateLimit)
	f.mu.Unlock()

	return sleep(ctx, time.Until(slot))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Get fetches rawURL and returns its body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if err := f.wait(ctx, u.Host); err != nil {
			return nil, err
		}
		body, err := f.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) {
			if se.Code == http.StatusForbidden && f.headless != nil {
				return f.fetchHeadless(ctx, rawURL, se)
			}
			if !se.retryable() {
				return nil, err
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < f.maxRetries-1 {
			wait := f.backoff << attempt
			f.log.Printf("fetch url=%s attempt=%d/%d status=retry wait=%s err=%v", rawURL, attempt+1, f.maxRetries, wait, err)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
	f.log.Printf("fetch url=%s status=failed attempts=%d err=%v", rawURL, f.maxRetries, lastErr)
	return nil, lastErr
}

func (f *Fetcher) fetchHeadless(ctx context.Context, rawURL string, blocked error) ([]byte, error) {
	f.log.Printf("fetch url=%s status=blocked fallback=headless", rawURL)
	html, err := f.headless.FetchHTML(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w (headless: %v)", blocked, err)
	}
	if strings.TrimSpace(html) == "" {
		return nil, blocked
	}
	return []byte(html), nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return readAllLimit(resp.Body, f.maxBody)
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// FetchJSON fetches rawURL and decodes the body into out.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string, out any) error {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid json from %s: %w", rawURL, err)
	}
	return nil
}

// ResolveApplyURL follows redirects with a HEAD request and returns where
// they end. Any failure returns the input unchanged.
func (f *Fetcher) ResolveApplyURL(ctx context.Context, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return rawURL
	}
	f.setHeaders(req)
	resp, err := f.client.Do(req)
	if err != nil {
		return rawURL
	}
	_ = resp.Body.Close()
	if resp.Request == nil || resp.Request.URL == nil {
		return rawURL
	}
	return resp.Request.URL.String()
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: max + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("response too large")
	}
	return b, nil
}
