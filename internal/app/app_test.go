package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"remote-jobs/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dryRunConfig() config.Config {
	return config.Config{
		App:   config.AppConfig{AppName: "remote-jobs-test", HTTPPort: "0"},
		Redis: config.RedisConfig{Enabled: false},
		Scraper: config.ScraperConfig{
			Sources:        []string{"jobicy", "himalayas"},
			RequestTimeout: time.Second,
			MaxRetries:     1,
			MaxDetails:     5,
			Workers:        2,
		},
		JWT: config.JWTConfig{AccessSecret: "s3cret", AccessExpiresIn: time.Hour},
	}
}

func TestNewContainer_DryRun(t *testing.T) {
	c, err := NewContainer(dryRunConfig(), Options{DryRun: true, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	require.Len(t, c.Sources, 2)
	assert.Equal(t, "jobicy", c.Sources[0].Name())
	assert.NoError(t, c.Migrate(t.Context()))
}

func TestNewContainer_UnknownSource(t *testing.T) {
	cfg := dryRunConfig()
	cfg.Scraper.Sources = []string{"monster"}
	_, err := NewContainer(cfg, Options{DryRun: true, Logger: log.New(io.Discard, "", 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monster")
}

func TestNewContainer_RequiresDatabaseConfig(t *testing.T) {
	_, err := NewContainer(dryRunConfig(), Options{Logger: log.New(io.Discard, "", 0)})
	require.Error(t, err)
	assert.True(t, config.IsMissingRequired(err))
}

func TestNew_Routes(t *testing.T) {
	c, err := NewContainer(dryRunConfig(), Options{DryRun: true, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	defer c.Close()
	a := New(c)
	assert.Nil(t, a.Scheduler)

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disabled", body.Data["database"])
	assert.Equal(t, "unavailable", body.Data["redis"])

	resp, err = a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = a.Fiber.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/crawl", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNew_Scheduler(t *testing.T) {
	cfg := dryRunConfig()
	cfg.Scraper.Schedule = "@every 1h"
	c, err := NewContainer(cfg, Options{DryRun: true, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	defer c.Close()
	assert.NotNil(t, New(c).Scheduler)
}

func TestListenAddr(t *testing.T) {
	addr, err := ListenAddr("8080")
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)

	addr, err = ListenAddr(":9090")
	require.NoError(t, err)
	assert.Equal(t, ":9090", addr)

	_, err = ListenAddr(" ")
	assert.Error(t, err)
}
