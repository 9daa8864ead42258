package handler

import (
	"context"
	"time"

	"remote-jobs/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler takes the database and cache to probe. A nil db means the
// process runs without storage and is reported as "disabled".
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	out := map[string]string{"database": "disabled", "redis": "disabled"}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			out["database"] = "down"
			status = fiber.StatusServiceUnavailable
		} else {
			out["database"] = "up"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			out["redis"] = "unavailable"
		} else {
			out["redis"] = "up"
		}
	}

	msg := response.MessageOK
	if status != fiber.StatusOK {
		msg = response.MessageServiceUnavailable
	}
	return response.Success(c, status, msg, out)
}
