package handler

import (
	"errors"

	"remote-jobs/internal/delivery/http/dto"
	"remote-jobs/internal/delivery/http/middleware"
	"remote-jobs/internal/pkg/response"
	"remote-jobs/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

const defaultCrawlHistory = 20

type CrawlHandler struct {
	uc usecase.CrawlUsecase
}

func NewCrawlHandler(uc usecase.CrawlUsecase) *CrawlHandler {
	return &CrawlHandler{uc: uc}
}

// RegisterRoutes mounts the public crawl history on r and the trigger on
// admin, which is expected to carry the auth middleware.
func (h *CrawlHandler) RegisterRoutes(r, admin fiber.Router) {
	if r != nil {
		r.Get("/crawls", h.HandleRecent)
	}
	if admin != nil {
		admin.Post("/crawl", h.HandleTrigger)
	}
}

func (h *CrawlHandler) HandleRecent(c fiber.Ctx) error {
	limit, err := parseQueryIntStrict(c, "limit", defaultCrawlHistory)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	runs, err := h.uc.Recent(c.Context(), c.Query("source"), limit)
	if err != nil {
		return mapCrawlUsecaseError(err)
	}
	out := make([]dto.CrawlRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, dto.NewCrawlRunResponse(r))
	}
	return response.Success(c, fiber.StatusOK, "success", out)
}

// HandleTrigger accepts the source and max_details either as query
// parameters or as a JSON body. The crawl runs in the background.
func (h *CrawlHandler) HandleTrigger(c fiber.Ctx) error {
	var req dto.CrawlTriggerRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request body", nil, err)
		}
	}
	if s := c.Query("source"); s != "" {
		req.Source = s
	}
	maxDetails, err := parseQueryIntStrict(c, "max_details", req.MaxDetails)
	if err != nil || maxDetails < 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid max_details", nil, err)
	}
	if req.Source == "" {
		req.Source = usecase.SourceAll
	}

	if err := h.uc.Trigger(req.Source, maxDetails); err != nil {
		return mapCrawlUsecaseError(err)
	}
	return response.Success(c, fiber.StatusAccepted, "crawl started", dto.CrawlTriggerResponse{
		Source:     req.Source,
		MaxDetails: maxDetails,
		Accepted:   true,
	})
}

func mapCrawlUsecaseError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	case errors.Is(err, usecase.ErrUnknownSource):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	case errors.Is(err, usecase.ErrCrawlInProgress):
		return middleware.NewAppError(fiber.StatusConflict, "Crawl already in progress", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
