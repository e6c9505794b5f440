package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"results-web/internal/models"
	"results-web/internal/repository"
)

const (
	analyticsCacheTTL = 6 * time.Hour

	// Pass mark and anomaly cutoff used when aggregating a subject
	// sitting.
	passMark         = 50.0
	anomalyThreshold = 3.0
)

// AnalyticsService recomputes per-subject statistics over published
// results and flags totals that sit far outside their cohort.
type AnalyticsService struct {
	results   *repository.ResultRepository
	analytics *repository.AnalyticsRepository
	redis     *redis.Client
	log       *logrus.Logger
}

func NewAnalyticsService(results *repository.ResultRepository, analytics *repository.AnalyticsRepository, redisClient *redis.Client, log *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{
		results:   results,
		analytics: analytics,
		redis:     redisClient,
		log:       log,
	}
}

// RecomputeAll refreshes the aggregate for every (subject, exam_date)
// pair that has published results. Returns the number of pairs
// recomputed.
func (s *AnalyticsService) RecomputeAll(ctx context.Context) (int, error) {
	pairs, err := s.results.ListSubjectExamPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subject/exam pairs: %w", err)
	}

	recomputed := 0
	for _, pair := range pairs {
		if err := s.RecomputeSubject(ctx, pair.Subject, pair.ExamDate); err != nil {
			return recomputed, err
		}
		recomputed++
	}
	return recomputed, nil
}

// RecomputeSubject refreshes the aggregate and anomaly flags for one
// subject sitting and caches the aggregate snapshot in Redis.
func (s *AnalyticsService) RecomputeSubject(ctx context.Context, subject string, examDate time.Time) error {
	results, err := s.results.ListPublishedBySubjectExam(ctx, subject, examDate)
	if err != nil {
		return fmt.Errorf("load published results for %s: %w", subject, err)
	}

	aggregate, flags := ComputeSubjectAggregate(subject, examDate, results)

	if err := s.analytics.UpsertSubjectAggregate(ctx, &aggregate); err != nil {
		return fmt.Errorf("store aggregate for %s: %w", subject, err)
	}
	if err := s.analytics.ReplaceAnomalyFlags(ctx, subject, examDate, flags); err != nil {
		return fmt.Errorf("store anomaly flags for %s: %w", subject, err)
	}

	s.cacheAggregate(ctx, &aggregate)

	s.log.WithFields(logrus.Fields{
		"subject":   subject,
		"exam_date": examDate.Format("2006-01-02"),
		"students":  aggregate.TotalStudents,
		"anomalies": len(flags),
	}).Info("subject aggregate recomputed")
	return nil
}

func (s *AnalyticsService) ListAggregates(ctx context.Context, limit, offset int) ([]models.SubjectAggregate, int, error) {
	return s.analytics.ListAggregates(ctx, limit, offset)
}

// GetCachedAggregate returns the Redis snapshot for a subject sitting,
// or nil on a cache miss.
func (s *AnalyticsService) GetCachedAggregate(ctx context.Context, subject string, examDate time.Time) (*models.SubjectAggregate, error) {
	if s.redis == nil {
		return nil, nil
	}

	data, err := s.redis.Get(ctx, aggregateCacheKey(subject, examDate)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var aggregate models.SubjectAggregate
	if err := json.Unmarshal(data, &aggregate); err != nil {
		return nil, fmt.Errorf("decode cached aggregate: %w", err)
	}
	return &aggregate, nil
}

func (s *AnalyticsService) cacheAggregate(ctx context.Context, aggregate *models.SubjectAggregate) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(aggregate)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, aggregateCacheKey(aggregate.Subject, aggregate.ExamDate), data, analyticsCacheTTL).Err(); err != nil {
		s.log.WithError(err).Warn("failed to cache subject aggregate")
	}
}

func aggregateCacheKey(subject string, examDate time.Time) string {
	return fmt.Sprintf("analytics:subject:%s:%s", subject, examDate.Format("2006-01-02"))
}

// ComputeSubjectAggregate derives the statistics for one subject sitting
// from its published results. Flags carry every result whose total is
// more than three standard deviations from the cohort mean.
func ComputeSubjectAggregate(subject string, examDate time.Time, results []models.Result) (models.SubjectAggregate, []models.AnomalyFlag) {
	now := time.Now()
	aggregate := models.SubjectAggregate{
		Subject:       subject,
		ExamDate:      examDate,
		TotalStudents: len(results),
		ComputedAt:    now,
	}

	if len(results) == 0 {
		return aggregate, nil
	}

	totals := make([]float64, len(results))
	for i, result := range results {
		totals[i], _ = result.TotalMarks.Float64()
	}

	var sum float64
	minScore, maxScore := totals[0], totals[0]
	for _, total := range totals {
		sum += total
		if total < minScore {
			minScore = total
		}
		if total > maxScore {
			maxScore = total
		}
	}
	mean := sum / float64(len(totals))

	var variance float64
	for _, total := range totals {
		variance += (total - mean) * (total - mean)
	}
	variance /= float64(len(totals))
	stdDev := math.Sqrt(variance)

	sorted := make([]float64, len(totals))
	copy(sorted, totals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	for i, total := range totals {
		if total >= passMark {
			aggregate.PassCount++
		} else {
			aggregate.FailCount++
		}
		switch results[i].Grade {
		case "A":
			aggregate.GradeACount++
		case "B":
			aggregate.GradeBCount++
		case "C":
			aggregate.GradeCCount++
		case "D":
			aggregate.GradeDCount++
		case "F":
			aggregate.GradeFCount++
		}
	}

	aggregate.MeanScore = nullDecimal(mean)
	aggregate.MedianScore = nullDecimal(median)
	aggregate.StdDev = nullDecimal(stdDev)
	aggregate.MinScore = nullDecimal(minScore)
	aggregate.MaxScore = nullDecimal(maxScore)
	aggregate.PassRate = nullDecimal(float64(aggregate.PassCount) / float64(len(totals)) * 100)

	var flags []models.AnomalyFlag
	if stdDev > 0 {
		for i, total := range totals {
			z := (total - mean) / stdDev
			if math.Abs(z) > anomalyThreshold {
				flags = append(flags, models.AnomalyFlag{
					ResultID:  results[i].ID,
					Reason:    fmt.Sprintf("total marks deviate %.2f standard deviations from the subject mean", z),
					ZScore:    decimal.NewFromFloat(z).Round(4),
					CreatedAt: now,
				})
			}
		}
	}

	return aggregate, flags
}

func nullDecimal(value float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(value).Round(2), Valid: true}
}
