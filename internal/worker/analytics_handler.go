package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"results-web/internal/repository"
	"results-web/internal/service"
	"results-web/internal/utils"
)

type AnalyticsTaskHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsTaskHandler(db *sqlx.DB, redisClient *redis.Client) *AnalyticsTaskHandler {
	return &AnalyticsTaskHandler{
		analytics: service.NewAnalyticsService(
			repository.NewResultRepository(db),
			repository.NewAnalyticsRepository(db),
			redisClient,
			utils.GetLogger(),
		),
	}
}

func (h *AnalyticsTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload AnalyticsComputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log := utils.GetLogger()

	if payload.Subject == "" {
		recomputed, err := h.analytics.RecomputeAll(ctx)
		if err != nil {
			return fmt.Errorf("recompute all aggregates: %w", err)
		}
		log.WithField("pairs", recomputed).Info("analytics recompute finished")
		return nil
	}

	examDate, err := time.Parse("2006-01-02", payload.ExamDate)
	if err != nil {
		return fmt.Errorf("invalid exam_date %q: %w", payload.ExamDate, err)
	}
	return h.analytics.RecomputeSubject(ctx, payload.Subject, examDate)
}
