package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"results-web/internal/models"
	"results-web/internal/repository"
)

var ErrResultNotFound = errors.New("result not found")

// StatusService moves results through the review workflow. Imports only
// ever produce draft rows; everything after draft goes through here.
type StatusService struct {
	results *repository.ResultRepository
	log     *logrus.Logger
}

func NewStatusService(results *repository.ResultRepository, log *logrus.Logger) *StatusService {
	return &StatusService{results: results, log: log}
}

// Transition moves a result to the next workflow state. Publishing
// stamps published_at; pulling a published result back to verified
// clears it.
func (s *StatusService) Transition(ctx context.Context, resultID int64, next models.ResultStatus) (*models.Result, error) {
	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrResultNotFound
	}

	if !result.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("cannot transition result from %s to %s", result.Status, next)
	}

	previous := result.Status
	result.Status = next
	switch {
	case next == models.ResultStatusPublished:
		now := time.Now()
		result.PublishedAt = &now
	case previous == models.ResultStatusPublished:
		result.PublishedAt = nil
	}

	if err := s.results.UpdateStatus(ctx, result); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"result_id": result.ID,
		"from":      previous,
		"to":        next,
	}).Info("result status changed")
	return result, nil
}

// ListBackfillCandidates returns results whose published_at is set but
// whose status never caught up, without changing them.
func (s *StatusService) ListBackfillCandidates(ctx context.Context) ([]models.Result, error) {
	return s.results.FindStatusBackfillCandidates(ctx)
}

// BackfillPublishedStatus aligns status with published_at for legacy
// rows and reports how many were fixed.
func (s *StatusService) BackfillPublishedStatus(ctx context.Context) (int64, error) {
	fixed, err := s.results.BackfillPublishedStatus(ctx)
	if err != nil {
		return 0, err
	}
	if fixed > 0 {
		s.log.WithField("fixed", fixed).Info("published status backfill finished")
	}
	return fixed, nil
}
