package handler

import (
	"errors"
	"strconv"

	"remote-jobs/internal/delivery/http/dto"
	"remote-jobs/internal/delivery/http/middleware"
	"remote-jobs/internal/pkg/response"
	"remote-jobs/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type JobsHandler struct {
	uc usecase.JobListUsecase
}

func NewJobsHandler(uc usecase.JobListUsecase) *JobsHandler {
	return &JobsHandler{uc: uc}
}

func (h *JobsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/jobs", h.HandleListJobs)
	r.Get("/jobs/stats", h.HandleStats)
	r.Get("/jobs/:id", h.HandleGetJob)
}

func (h *JobsHandler) HandleListJobs(c fiber.Ctx) error {
	limit, err := parseQueryIntStrict(c, "limit", 0)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	offset, err := parseQueryIntStrict(c, "offset", 0)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	page, err := h.uc.ListJobs(c.Context(), usecase.JobListParams{
		Status:   c.Query("status"),
		Source:   c.Query("source"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return mapJobUsecaseError(err)
	}

	items := make([]dto.JobResponse, 0, len(page.Items))
	for _, j := range page.Items {
		items = append(items, dto.NewJobResponse(j))
	}
	return response.Success(c, fiber.StatusOK, "success", dto.JobListResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (h *JobsHandler) HandleGetJob(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid job id", nil, err)
	}
	j, err := h.uc.GetJob(c.Context(), id)
	if err != nil {
		return mapJobUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "success", dto.NewJobDetailResponse(j))
}

func (h *JobsHandler) HandleStats(c fiber.Ctx) error {
	counts, err := h.uc.CountByStatus(c.Context())
	if err != nil {
		return mapJobUsecaseError(err)
	}
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[string(st)] = n
	}
	return response.Success(c, fiber.StatusOK, "success", out)
}

func parseQueryIntStrict(c fiber.Ctx, key string, defaultVal int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(s)
}

func mapJobUsecaseError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	case errors.Is(err, usecase.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
