package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"results-web/internal/service"
	"results-web/internal/utils"
	"results-web/internal/worker"
)

type AnalyticsHandler struct {
	analytics   *service.AnalyticsService
	asynqClient *asynq.Client
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, asynqClient *asynq.Client) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, asynqClient: asynqClient}
}

func (h *AnalyticsHandler) ListAggregates(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	aggregates, total, err := h.analytics.ListAggregates(c.Context(), params.Limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list aggregates", err)
	}

	return utils.SuccessResponse(c, "Aggregates retrieved", fiber.Map{
		"aggregates": aggregates,
		"pagination": utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

// GetAggregate serves the cached snapshot for one subject sitting.
func (h *AnalyticsHandler) GetAggregate(c *fiber.Ctx) error {
	subject := c.Query("subject")
	dateStr := c.Query("exam_date")
	if subject == "" || dateStr == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "subject and exam_date are required", nil)
	}

	examDate, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "exam_date must be in YYYY-MM-DD format", err)
	}

	aggregate, err := h.analytics.GetCachedAggregate(c.Context(), subject, examDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read aggregate", err)
	}
	if aggregate == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No cached aggregate; trigger a recompute", nil)
	}

	return utils.SuccessResponse(c, "Aggregate retrieved", aggregate)
}

// Recompute queues an analytics refresh for the worker. Without a
// subject it refreshes every pair.
func (h *AnalyticsHandler) Recompute(c *fiber.Ctx) error {
	if h.asynqClient == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Queued recomputes unavailable", nil)
	}

	task, err := worker.NewAnalyticsComputeTask(worker.AnalyticsComputePayload{
		Subject:  c.Query("subject"),
		ExamDate: c.Query("exam_date"),
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build task", err)
	}
	if _, err := h.asynqClient.Enqueue(task, asynq.Queue("low")); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue recompute", err)
	}

	return utils.SuccessResponse(c, "Recompute queued", nil)
}
