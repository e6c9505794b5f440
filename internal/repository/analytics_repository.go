package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"results-web/internal/models"
)

type AnalyticsRepository struct {
	db sqlx.ExtContext
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) WithTx(tx *sqlx.Tx) *AnalyticsRepository {
	return &AnalyticsRepository{db: tx}
}

// UpsertSubjectAggregate writes the aggregate for one (subject, exam_date)
// slice, replacing any previous computation.
func (r *AnalyticsRepository) UpsertSubjectAggregate(ctx context.Context, agg *models.SubjectAggregate) error {
	query := `INSERT INTO subject_aggregates
	          (subject, exam_date, total_students, mean_score, median_score, std_dev,
	           min_score, max_score, pass_count, fail_count, pass_rate,
	           grade_a_count, grade_b_count, grade_c_count, grade_d_count, grade_f_count, computed_at)
	          VALUES (:subject, :exam_date, :total_students, :mean_score, :median_score, :std_dev,
	                  :min_score, :max_score, :pass_count, :fail_count, :pass_rate,
	                  :grade_a_count, :grade_b_count, :grade_c_count, :grade_d_count, :grade_f_count, :computed_at)
	          ON DUPLICATE KEY UPDATE
	          total_students = VALUES(total_students),
	          mean_score = VALUES(mean_score),
	          median_score = VALUES(median_score),
	          std_dev = VALUES(std_dev),
	          min_score = VALUES(min_score),
	          max_score = VALUES(max_score),
	          pass_count = VALUES(pass_count),
	          fail_count = VALUES(fail_count),
	          pass_rate = VALUES(pass_rate),
	          grade_a_count = VALUES(grade_a_count),
	          grade_b_count = VALUES(grade_b_count),
	          grade_c_count = VALUES(grade_c_count),
	          grade_d_count = VALUES(grade_d_count),
	          grade_f_count = VALUES(grade_f_count),
	          computed_at = VALUES(computed_at)`
	_, err := sqlx.NamedExecContext(ctx, r.db, query, agg)
	return err
}

// ReplaceAnomalyFlags clears and rewrites the anomaly flags for one
// (subject, exam_date) slice.
func (r *AnalyticsRepository) ReplaceAnomalyFlags(ctx context.Context, subject string, examDate time.Time, flags []models.AnomalyFlag) error {
	deleteQuery := `DELETE f FROM anomaly_flags f
	                JOIN results res ON res.id = f.result_id
	                WHERE LOWER(res.subject) = LOWER(?) AND res.exam_date = ?`
	if _, err := r.db.ExecContext(ctx, deleteQuery, subject, examDate.Format("2006-01-02")); err != nil {
		return err
	}

	if len(flags) == 0 {
		return nil
	}

	insertQuery := `INSERT INTO anomaly_flags (result_id, reason, z_score, created_at)
	                VALUES (:result_id, :reason, :z_score, :created_at)`
	_, err := sqlx.NamedExecContext(ctx, r.db, insertQuery, flags)
	return err
}

func (r *AnalyticsRepository) ListAggregates(ctx context.Context, limit, offset int) ([]models.SubjectAggregate, int, error) {
	var aggregates []models.SubjectAggregate
	var total int

	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM subject_aggregates"); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM subject_aggregates ORDER BY exam_date DESC, subject LIMIT ? OFFSET ?`
	if err := sqlx.SelectContext(ctx, r.db, &aggregates, query, limit, offset); err != nil {
		return nil, 0, err
	}

	return aggregates, total, nil
}
