package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"results-web/internal/config"
	"results-web/internal/importer"
	"results-web/internal/service"
	"results-web/internal/utils"
)

const importJobTTL = 24 * time.Hour

type ImportTaskHandler struct {
	redis   *redis.Client
	imports *service.ImportService
}

func NewImportTaskHandler(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) *ImportTaskHandler {
	return &ImportTaskHandler{
		redis:   redisClient,
		imports: service.NewImportService(db, cfg, utils.GetLogger()),
	}
}

func (h *ImportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ImportCommitPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log := utils.GetLogger()
	log.WithField("job_id", payload.JobID).WithField("kind", payload.Kind).Info("import commit started")
	h.setStatus(ctx, payload.JobID, "running")

	file, err := os.Open(payload.FilePath)
	if err != nil {
		h.setStatus(ctx, payload.JobID, "failed")
		return fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	summary, err := h.imports.Commit(ctx, payload.Kind, file, importer.Metadata{
		StartedByID: payload.StartedByID,
		Filename:    payload.Filename,
		Notes:       payload.Notes,
	})
	if err != nil {
		h.setStatus(ctx, payload.JobID, "failed")
		return fmt.Errorf("commit %s import: %w", payload.Kind, err)
	}

	if data, err := json.Marshal(summary); err == nil {
		h.redis.Set(ctx, ImportJobSummaryKey(payload.JobID), data, importJobTTL)
	}
	h.setStatus(ctx, payload.JobID, "completed")

	// The saved upload has served its purpose once committed.
	if err := os.Remove(payload.FilePath); err != nil {
		log.WithError(err).Warn("failed to remove processed upload")
	}

	log.WithField("job_id", payload.JobID).WithField("batch", summary.Batch.ID).Info("import commit finished")
	return nil
}

func (h *ImportTaskHandler) setStatus(ctx context.Context, jobID, status string) {
	h.redis.Set(ctx, ImportJobStatusKey(jobID), status, importJobTTL)
}
