package handler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"results-web/internal/config"
	"results-web/internal/importer"
	"results-web/internal/models"
	"results-web/internal/repository"
	"results-web/internal/service"
	"results-web/internal/utils"
	"results-web/internal/worker"
)

type ImportHandler struct {
	imports     *service.ImportService
	excel       *service.ExcelService
	batchRepo   *repository.BatchRepository
	asynqClient *asynq.Client
	redis       *redis.Client
	cfg         *config.Config
}

func NewImportHandler(
	imports *service.ImportService,
	excel *service.ExcelService,
	batchRepo *repository.BatchRepository,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	cfg *config.Config,
) *ImportHandler {
	return &ImportHandler{
		imports:     imports,
		excel:       excel,
		batchRepo:   batchRepo,
		asynqClient: asynqClient,
		redis:       redisClient,
		cfg:         cfg,
	}
}

// Preview runs a dry run over the uploaded feed and returns the full
// per-row report without touching any entity table.
func (h *ImportHandler) Preview(c *fiber.Ctx) error {
	kind, err := service.ParseImportKind(c.Params("kind"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown import kind", err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}
	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	src, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file", err)
	}
	defer src.Close()

	summary, err := h.imports.Preview(c.Context(), kind, src, importer.Metadata{
		StartedByID: currentUserID(c),
		Filename:    file.Filename,
		Notes:       c.FormValue("notes"),
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Preview failed", err)
	}

	return utils.SuccessResponse(c, "Preview completed", summary)
}

// Commit saves the uploaded feed and queues the commit for the worker.
// The response carries a job id the client can poll.
func (h *ImportHandler) Commit(c *fiber.Ctx) error {
	if h.asynqClient == nil || h.redis == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Queued imports unavailable", nil)
	}

	kind, err := service.ParseImportKind(c.Params("kind"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown import kind", err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}
	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	jobID := fmt.Sprintf("UPLOAD-%s", uuid.New().String()[:8])
	filePath := filepath.Join(h.cfg.UploadPath, jobID+".csv")
	if err := os.MkdirAll(h.cfg.UploadPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload directory", err)
	}
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	task, err := worker.NewImportCommitTask(worker.ImportCommitPayload{
		JobID:       jobID,
		Kind:        kind,
		FilePath:    filePath,
		Filename:    file.Filename,
		Notes:       c.FormValue("notes"),
		StartedByID: currentUserID(c),
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build task", err)
	}
	if _, err := h.asynqClient.Enqueue(task, asynq.Queue("critical")); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue import", err)
	}

	return utils.SuccessResponse(c, "Import queued", fiber.Map{
		"job_id": jobID,
		"kind":   kind,
	})
}

// JobStatus reports the state of a queued commit and, once finished,
// its summary.
func (h *ImportHandler) JobStatus(c *fiber.Ctx) error {
	if h.redis == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Queued imports unavailable", nil)
	}

	jobID := c.Params("id")

	status, err := h.redis.Get(c.Context(), worker.ImportJobStatusKey(jobID)).Result()
	if err == redis.Nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Unknown job", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read job status", err)
	}

	body := fiber.Map{"job_id": jobID, "status": status}
	if status == "completed" {
		if data, err := h.redis.Get(c.Context(), worker.ImportJobSummaryKey(jobID)).Bytes(); err == nil {
			var summary models.ImportSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				body["summary"] = summary
			}
		}
	}
	return utils.SuccessResponse(c, "Job status", body)
}

// ListBatches pages through the import ledger, optionally filtered by
// kind.
func (h *ImportHandler) ListBatches(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	kind := models.ImportKind(c.Query("kind", ""))
	batches, total, err := h.batchRepo.FindAll(c.Context(), params.Limit, offset, kind)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list batches", err)
	}

	return utils.SuccessResponse(c, "Batches retrieved", fiber.Map{
		"batches":    batches,
		"pagination": utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

func (h *ImportHandler) GetBatch(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid batch id", err)
	}

	batch, err := h.batchRepo.FindByID(c.Context(), id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load batch", err)
	}
	if batch == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Batch not found", nil)
	}

	return utils.SuccessResponse(c, "Batch retrieved", batch)
}

// ErrorReport renders a finished job's row errors as a workbook.
func (h *ImportHandler) ErrorReport(c *fiber.Ctx) error {
	if h.redis == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Queued imports unavailable", nil)
	}

	jobID := c.Params("id")

	data, err := h.redis.Get(c.Context(), worker.ImportJobSummaryKey(jobID)).Bytes()
	if err == redis.Nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No summary for this job", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read job summary", err)
	}

	var summary models.ImportSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decode job summary", err)
	}

	if err := os.MkdirAll(h.cfg.ExportPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare export directory", err)
	}
	filePath := filepath.Join(h.cfg.ExportPath, fmt.Sprintf("%s_errors.xlsx", jobID))
	if err := h.excel.GenerateImportErrorReport(&summary, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate error report", err)
	}

	return c.Download(filePath)
}

// DownloadTemplate generates the upload template workbook for a kind.
func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	kind, err := service.ParseImportKind(c.Params("kind"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown import kind", err)
	}

	if err := os.MkdirAll(h.cfg.ExportPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare export directory", err)
	}

	filePath := filepath.Join(h.cfg.ExportPath, fmt.Sprintf("%s_template.xlsx", kind))
	if kind == models.ImportKindResults {
		err = h.excel.GenerateResultTemplate(filePath)
	} else {
		err = h.excel.GenerateStudentTemplate(filePath)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}

	return c.Download(filePath)
}

func currentUserID(c *fiber.Ctx) *int {
	if id, ok := c.Locals("user_id").(int); ok {
		return &id
	}
	return nil
}
