package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"results-web/internal/config"
	"results-web/internal/models"
	"results-web/internal/repository"
	"results-web/internal/service"
	"results-web/internal/utils"
)

type ResultHandler struct {
	statusService *service.StatusService
	resultRepo    *repository.ResultRepository
	studentRepo   *repository.StudentRepository
	excel         *service.ExcelService
	cfg           *config.Config
}

func NewResultHandler(
	statusService *service.StatusService,
	resultRepo *repository.ResultRepository,
	studentRepo *repository.StudentRepository,
	excel *service.ExcelService,
	cfg *config.Config,
) *ResultHandler {
	return &ResultHandler{
		statusService: statusService,
		resultRepo:    resultRepo,
		studentRepo:   studentRepo,
		excel:         excel,
		cfg:           cfg,
	}
}

type transitionRequest struct {
	Status models.ResultStatus `json:"status"`
}

// Transition moves a result through the review workflow.
func (h *ResultHandler) Transition(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid result id", err)
	}

	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if req.Status == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Status is required", nil)
	}

	result, err := h.statusService.Transition(c.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Result not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Transition rejected", err)
	}

	return utils.SuccessResponse(c, "Status updated", result)
}

// Export writes the published results of one sitting to a workbook.
func (h *ResultHandler) Export(c *fiber.Ctx) error {
	subject := c.Query("subject")
	rawDate := c.Query("exam_date")
	if subject == "" || rawDate == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "subject and exam_date are required", nil)
	}
	examDate, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "exam_date must be YYYY-MM-DD", err)
	}

	results, err := h.resultRepo.ListPublishedBySubjectExam(c.Context(), subject, examDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load results", err)
	}

	ids := make([]int64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.StudentID)
	}
	students, err := h.studentRepo.FindByIDs(c.Context(), ids)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load students", err)
	}

	if err := os.MkdirAll(h.cfg.ExportPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare export directory", err)
	}
	filePath := filepath.Join(h.cfg.ExportPath,
		fmt.Sprintf("results_%s_%s.xlsx", strings.ReplaceAll(strings.ToLower(subject), " ", "_"), rawDate))
	if err := h.excel.ExportResults(results, students, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate export", err)
	}

	return c.Download(filePath)
}

// BackfillCandidates lists results whose status lags behind
// published_at.
func (h *ResultHandler) BackfillCandidates(c *fiber.Ctx) error {
	candidates, err := h.statusService.ListBackfillCandidates(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list candidates", err)
	}
	return utils.SuccessResponse(c, "Backfill candidates", candidates)
}

// RunBackfill aligns status with published_at for legacy rows.
func (h *ResultHandler) RunBackfill(c *fiber.Ctx) error {
	fixed, err := h.statusService.BackfillPublishedStatus(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Backfill failed", err)
	}
	return utils.SuccessResponse(c, "Backfill finished", fiber.Map{"fixed": fixed})
}
