package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"remote-jobs/internal/delivery/http/handler"
	"remote-jobs/internal/delivery/http/middleware"
	"remote-jobs/internal/domain/job"
	"remote-jobs/internal/pkg/jwt"
	"remote-jobs/internal/repository"
	"remote-jobs/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(quiet()).Middleware())
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func seed(t *testing.T) (*repository.MemoryJobStore, uuid.UUID) {
	t.Helper()
	store := repository.NewMemoryJobStore()
	var first uuid.UUID
	for i, title := range []string{"Backend Engineer", "Product Designer"} {
		lo := int64(90000)
		j := job.Job{
			Source:          "himalayas",
			SourceJobID:     title,
			Title:           title,
			CompanyName:     "Acme",
			Category:        job.CategoryEngineering,
			Status:          job.StatusActive,
			SalaryMin:       &lo,
			SalaryCurrency:  "USD",
			SalaryPeriod:    job.PeriodYearly,
			FingerprintHash: strings.Repeat(string(rune('a'+i)), 32),
			ApplyURLFinal:   "https://example.com/apply",
			DescriptionHTML: "<p>hello</p>",
		}
		res, err := store.Upsert(context.Background(), &j)
		require.NoError(t, err)
		if i == 0 {
			first = res.ID
		}
	}
	return store, first
}

func TestJobsHandler_List(t *testing.T) {
	store, _ := seed(t)
	app := newApp()
	handler.NewJobsHandler(usecase.NewJobListUsecase(store, nil, quiet())).RegisterRoutes(app)

	status, env := do(t, app, httptest.NewRequest(http.MethodGet, "/jobs?status=active&limit=1", nil))
	require.Equal(t, http.StatusOK, status)

	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://example.com/apply", page.Items[0]["apply_url"])
	assert.NotContains(t, page.Items[0], "description_html")
}

func TestJobsHandler_ListBadQuery(t *testing.T) {
	app := newApp()
	handler.NewJobsHandler(usecase.NewJobListUsecase(repository.NewMemoryJobStore(), nil, quiet())).RegisterRoutes(app)

	for _, q := range []string{"limit=abc", "limit=500", "offset=-1", "status=archived"} {
		status, env := do(t, app, httptest.NewRequest(http.MethodGet, "/jobs?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, status, q)
		assert.Equal(t, http.StatusBadRequest, env.Status, q)
	}
}

func TestJobsHandler_Get(t *testing.T) {
	store, id := seed(t)
	app := newApp()
	handler.NewJobsHandler(usecase.NewJobListUsecase(store, nil, quiet())).RegisterRoutes(app)

	status, env := do(t, app, httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil))
	require.Equal(t, http.StatusOK, status)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Backend Engineer", got["title"])
	assert.Equal(t, "<p>hello</p>", got["description_html"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, app, httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Job not found", env.Message)
}

func TestJobsHandler_Stats(t *testing.T) {
	store, _ := seed(t)
	app := newApp()
	handler.NewJobsHandler(usecase.NewJobListUsecase(store, nil, quiet())).RegisterRoutes(app)

	status, env := do(t, app, httptest.NewRequest(http.MethodGet, "/jobs/stats", nil))
	require.Equal(t, http.StatusOK, status)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &counts))
	assert.Equal(t, 2, counts["active"])
}

type fakeCrawl struct {
	triggerErr error
	source     string
	maxDetails int
	runs       []job.CrawlRun
}

func (f *fakeCrawl) Run(context.Context, string, int) (map[string]job.CrawlStats, error) {
	return nil, nil
}

func (f *fakeCrawl) Trigger(source string, maxDetails int) error {
	f.source, f.maxDetails = source, maxDetails
	return f.triggerErr
}

func (f *fakeCrawl) Recent(_ context.Context, _ string, limit int) ([]job.CrawlRun, error) {
	if limit > 50 {
		return nil, usecase.ErrInvalidInput
	}
	return f.runs, nil
}

func (f *fakeCrawl) Running() bool { return false }

func crawlApp(uc usecase.CrawlUsecase, svc jwt.Service) *fiber.App {
	app := newApp()
	admin := app.Group("/admin", middleware.NewAuthMiddleware(svc).Middleware())
	handler.NewCrawlHandler(uc).RegisterRoutes(app, admin)
	return app
}

func bearer(t *testing.T, svc jwt.Service) string {
	t.Helper()
	tok, err := svc.GenerateToken("ops")
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestCrawlHandler_Trigger(t *testing.T) {
	svc := jwt.NewHMACService("secret", time.Hour)
	uc := &fakeCrawl{}
	app := crawlApp(uc, svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/crawl?source=jobicy&max_details=5", nil)
	req.Header.Set("Authorization", bearer(t, svc))
	status, env := do(t, app, req)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "crawl started", env.Message)
	assert.Equal(t, "jobicy", uc.source)
	assert.Equal(t, 5, uc.maxDetails)

	req = httptest.NewRequest(http.MethodPost, "/admin/crawl", bytes.NewBufferString(`{"max_details":7}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, svc))
	status, _ = do(t, app, req)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, usecase.SourceAll, uc.source)
	assert.Equal(t, 7, uc.maxDetails)
}

func TestCrawlHandler_TriggerErrors(t *testing.T) {
	svc := jwt.NewHMACService("secret", time.Hour)
	cases := []struct {
		err  error
		want int
	}{
		{usecase.ErrCrawlInProgress, http.StatusConflict},
		{usecase.ErrUnknownSource, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := crawlApp(&fakeCrawl{triggerErr: tc.err}, svc)
		req := httptest.NewRequest(http.MethodPost, "/admin/crawl", nil)
		req.Header.Set("Authorization", bearer(t, svc))
		status, _ := do(t, app, req)
		assert.Equal(t, tc.want, status, tc.err.Error())
	}
}

func TestCrawlHandler_TriggerRequiresToken(t *testing.T) {
	app := crawlApp(&fakeCrawl{}, jwt.NewHMACService("secret", time.Hour))
	status, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/admin/crawl", nil))
	assert.Equal(t, http.StatusUnauthorized, status)

	disabled := crawlApp(&fakeCrawl{}, jwt.NewHMACService("", time.Hour))
	req := httptest.NewRequest(http.MethodPost, "/admin/crawl", nil)
	req.Header.Set("Authorization", "Bearer anything")
	status, env := do(t, disabled, req)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "Admin API disabled", env.Message)
}

func TestCrawlHandler_Recent(t *testing.T) {
	uc := &fakeCrawl{runs: []job.CrawlRun{{
		ID:        uuid.New(),
		Source:    "jobicy",
		Stage:     "crawl",
		Status:    job.CrawlStatusCompleted,
		Stats:     job.CrawlStats{Found: 4, New: 3, Duplicates: 1},
		StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}}}
	app := crawlApp(uc, nil)

	status, env := do(t, app, httptest.NewRequest(http.MethodGet, "/crawls?source=jobicy", nil))
	require.Equal(t, http.StatusOK, status)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	require.Len(t, runs, 1)
	assert.EqualValues(t, 3, runs[0]["jobs_new"])
	assert.Equal(t, "completed", runs[0]["status"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/crawls?limit=99", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	app := newApp()
	handler.NewHealthHandler(pinger{}, pinger{err: errors.New("down")}).RegisterRoutes(app)
	status, env := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, status)
	var out map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "up", out["database"])
	assert.Equal(t, "unavailable", out["redis"])

	app = newApp()
	handler.NewHealthHandler(pinger{err: errors.New("refused")}, nil).RegisterRoutes(app)
	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
