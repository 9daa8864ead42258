package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		handler fiber.Handler
		status  int
		message string
	}{
		{"default ok", func(c fiber.Ctx) error { return Success(c, fiber.StatusOK, "", nil) }, 200, MessageOK},
		{"accepted", func(c fiber.Ctx) error { return Success(c, fiber.StatusAccepted, "", nil) }, 202, MessageAccepted},
		{"custom message", func(c fiber.Ctx) error { return Error(c, fiber.StatusNotFound, "Job not found", nil) }, 404, "Job not found"},
		{"unavailable", func(c fiber.Ctx) error { return Error(c, fiber.StatusServiceUnavailable, "", nil) }, 503, MessageServiceUnavailable},
		{"out of range", func(c fiber.Ctx) error { return Error(c, 42, "", nil) }, 500, MessageInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", tc.handler)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body SemanticResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}
