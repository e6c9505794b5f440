package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"results-web/internal/models"
)

type ResultRepository struct {
	db sqlx.ExtContext
}

func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) WithTx(tx *sqlx.Tx) *ResultRepository {
	return &ResultRepository{db: tx}
}

const resultColumns = `id, student_id, import_batch_id, COALESCE(respondent_id, '') AS respondent_id,
	roll_number, name, block, year, subject, theory_marks, practical_marks, total_marks,
	grade, exam_date, status, published_at, created_at, updated_at`

// FindByNaturalKey resolves a result by (student, subject, exam date).
// Subject matching is case-insensitive; dates compare exactly.
// Returns (nil, nil) when no row matches.
func (r *ResultRepository) FindByNaturalKey(ctx context.Context, studentID int64, subject string, examDate time.Time) (*models.Result, error) {
	var result models.Result
	query := fmt.Sprintf(`SELECT %s FROM results
	          WHERE student_id = ? AND LOWER(subject) = LOWER(?) AND exam_date = ?
	          LIMIT 1`, resultColumns)
	err := sqlx.GetContext(ctx, r.db, &result, query, studentID, subject, examDate.Format("2006-01-02"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	query := `INSERT INTO results
	          (student_id, import_batch_id, respondent_id, roll_number, name, block, year,
	           subject, theory_marks, practical_marks, total_marks, grade, exam_date, status)
	          VALUES (:student_id, :import_batch_id, :respondent_id, :roll_number, :name, :block, :year,
	                  :subject, :theory_marks, :practical_marks, :total_marks, :grade, :exam_date, :status)`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, result)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	result.ID = id
	return nil
}

func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	query := `UPDATE results SET import_batch_id = :import_batch_id, respondent_id = :respondent_id,
	          roll_number = :roll_number, name = :name, block = :block, year = :year,
	          subject = :subject, theory_marks = :theory_marks, practical_marks = :practical_marks,
	          total_marks = :total_marks, grade = :grade, exam_date = :exam_date
	          WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, r.db, query, result)
	return err
}

// UpdateStatus persists a workflow transition, stamping or clearing
// published_at as the status crosses the published boundary.
func (r *ResultRepository) UpdateStatus(ctx context.Context, result *models.Result) error {
	query := `UPDATE results SET status = ?, published_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, result.Status, result.PublishedAt, result.ID)
	return err
}

func (r *ResultRepository) FindByID(ctx context.Context, id int64) (*models.Result, error) {
	var result models.Result
	query := fmt.Sprintf("SELECT %s FROM results WHERE id = ? LIMIT 1", resultColumns)
	err := sqlx.GetContext(ctx, r.db, &result, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) FindByStudent(ctx context.Context, studentID int64) ([]models.Result, error) {
	var results []models.Result
	query := fmt.Sprintf(`SELECT %s FROM results WHERE student_id = ?
	          ORDER BY exam_date DESC, subject`, resultColumns)
	err := sqlx.SelectContext(ctx, r.db, &results, query, studentID)
	return results, err
}

// ListPublishedBySubjectExam returns the published results feeding the
// analytics job for one (subject, exam_date) slice.
func (r *ResultRepository) ListPublishedBySubjectExam(ctx context.Context, subject string, examDate time.Time) ([]models.Result, error) {
	var results []models.Result
	query := fmt.Sprintf(`SELECT %s FROM results
	          WHERE LOWER(subject) = LOWER(?) AND exam_date = ? AND status = ?
	          ORDER BY total_marks`, resultColumns)
	err := sqlx.SelectContext(ctx, r.db, &results, query, subject, examDate.Format("2006-01-02"), models.ResultStatusPublished)
	return results, err
}

// ListSubjectExamPairs returns the distinct (subject, exam_date) slices
// that currently have published results.
func (r *ResultRepository) ListSubjectExamPairs(ctx context.Context) ([]models.Result, error) {
	var pairs []models.Result
	query := `SELECT DISTINCT subject, exam_date FROM results WHERE status = ? ORDER BY exam_date DESC, subject`
	err := sqlx.SelectContext(ctx, r.db, &pairs, query, models.ResultStatusPublished)
	return pairs, err
}

// FindStatusBackfillCandidates returns results whose published_at is set
// but whose status never caught up to published.
func (r *ResultRepository) FindStatusBackfillCandidates(ctx context.Context) ([]models.Result, error) {
	var results []models.Result
	query := fmt.Sprintf(`SELECT %s FROM results
	          WHERE published_at IS NOT NULL AND status <> ?
	          ORDER BY id`, resultColumns)
	err := sqlx.SelectContext(ctx, r.db, &results, query, models.ResultStatusPublished)
	return results, err
}

// BackfillPublishedStatus flips every backfill candidate to published
// and reports how many rows changed.
func (r *ResultRepository) BackfillPublishedStatus(ctx context.Context) (int64, error) {
	query := `UPDATE results SET status = ? WHERE published_at IS NOT NULL AND status <> ?`
	res, err := r.db.ExecContext(ctx, query, models.ResultStatusPublished, models.ResultStatusPublished)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
