package scraper

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = log.New(io.Discard, "", 0)

func testFetcher(opts FetcherOptions) *Fetcher {
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	opts.Logger = discard
	return NewFetcher(opts)
}

type fakeHeadless struct {
	html  string
	err   error
	calls atomic.Int32
}

func (h *fakeHeadless) FetchHTML(context.Context, string) (string, error) {
	h.calls.Add(1)
	return h.html, h.err
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(FetcherOptions{MaxRetries: 3}).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, hits.Load())
}

func TestFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testFetcher(FetcherOptions{MaxRetries: 2}).Get(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.EqualValues(t, 2, hits.Load())
}

func TestFetcher_BackoffDoubles(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher(FetcherOptions{MaxRetries: 3, Backoff: 40 * time.Millisecond}).Get(context.Background(), srv.URL)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 3)
	assert.GreaterOrEqual(t, hits[1].Sub(hits[0]), 40*time.Millisecond)
	assert.GreaterOrEqual(t, hits[2].Sub(hits[1]), 80*time.Millisecond)
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(FetcherOptions{MaxRetries: 3}).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetcher_RetriesTooManyRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := testFetcher(FetcherOptions{MaxRetries: 2}).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestFetcher_ForbiddenFallsBackToHeadless(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := &fakeHeadless{html: "<html><body>rendered</body></html>"}
	body, err := testFetcher(FetcherOptions{MaxRetries: 3, Headless: h}).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rendered")
	assert.EqualValues(t, 1, h.calls.Load())
}

func TestFetcher_HeadlessFailureKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := &fakeHeadless{err: errors.New("chrome missing")}
	_, err := testFetcher(FetcherOptions{Headless: h}).Get(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Contains(t, err.Error(), "chrome missing")
}

func TestFetcher_RotatesUserAgents(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.UserAgent())
		mu.Unlock()
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{UserAgents: []string{"ua-a", "ua-b"}})
	for i := 0; i < 3; i++ {
		_, err := f.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"ua-a", "ua-b", "ua-a"}, seen)
}

func TestFetcher_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := testFetcher(FetcherOptions{MaxBody: 16}).Get(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "too large")

	body, err := testFetcher(FetcherOptions{MaxBody: 64}).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 64)
}

func TestFetcher_RateLimitSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{RateLimit: 40 * time.Millisecond})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestFetcher_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testFetcher(FetcherOptions{MaxRetries: 3}).Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_FetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte("<html>"))
			return
		}
		_, _ = w.Write([]byte(`{"name":"jobicy","count":2}`))
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{})
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, f.FetchJSON(context.Background(), srv.URL+"/ok", &out))
	assert.Equal(t, "jobicy", out.Name)
	assert.Equal(t, 2, out.Count)

	assert.ErrorContains(t, f.FetchJSON(context.Background(), srv.URL+"/bad", &out), "invalid json")
}

func TestFetcher_ResolveApplyURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/apply/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/careers/backend", http.StatusFound)
	})
	mux.HandleFunc("/careers/backend", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := testFetcher(FetcherOptions{})
	assert.Equal(t, srv.URL+"/careers/backend", f.ResolveApplyURL(context.Background(), srv.URL+"/apply/1"))
	assert.Equal(t, "", f.ResolveApplyURL(context.Background(), "  "))
	assert.Equal(t, "http://127.0.0.1:1/x", f.ResolveApplyURL(context.Background(), "http://127.0.0.1:1/x"))
}
