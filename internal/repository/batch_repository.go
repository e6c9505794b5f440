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

type BatchRepository struct {
	db sqlx.ExtContext
}

func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) WithTx(tx *sqlx.Tx) *BatchRepository {
	return &BatchRepository{db: tx}
}

func (r *BatchRepository) Create(ctx context.Context, batch *models.ImportBatch) error {
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	query := `INSERT INTO import_batches
	          (import_kind, started_by_id, source_filename, notes, is_dry_run,
	           row_count, created_rows, updated_rows, skipped_rows, created_at)
	          VALUES (:import_kind, :started_by_id, :source_filename, :notes, :is_dry_run,
	                  :row_count, :created_rows, :updated_rows, :skipped_rows, :created_at)`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, batch)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	batch.ID = id
	return nil
}

// FinalizeCounts writes the batch counters in one statement. Counters
// are set exactly once at the end of a pass, never incremented
// field-by-field while rows stream through.
func (r *BatchRepository) FinalizeCounts(ctx context.Context, batch *models.ImportBatch) error {
	query := `UPDATE import_batches
	          SET row_count = :row_count, created_rows = :created_rows,
	              updated_rows = :updated_rows, skipped_rows = :skipped_rows
	          WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, r.db, query, batch)
	return err
}

// MarkCompleted stamps the completion time and clears the dry-run flag.
// The WHERE guard keeps a second call from moving the timestamp.
func (r *BatchRepository) MarkCompleted(ctx context.Context, batch *models.ImportBatch) error {
	if !batch.MarkCompleted(time.Now()) {
		return nil
	}
	query := `UPDATE import_batches SET completed_at = ?, is_dry_run = FALSE
	          WHERE id = ? AND completed_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, batch.CompletedAt, batch.ID)
	return err
}

func (r *BatchRepository) FindByID(ctx context.Context, id int64) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	query := `SELECT id, import_kind, started_by_id, source_filename, COALESCE(notes, '') AS notes,
	                 is_dry_run, row_count, created_rows, updated_rows, skipped_rows,
	                 created_at, completed_at
	          FROM import_batches WHERE id = ? LIMIT 1`
	err := sqlx.GetContext(ctx, r.db, &batch, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *BatchRepository) FindAll(ctx context.Context, limit, offset int, kind models.ImportKind) ([]models.ImportBatch, int, error) {
	var batches []models.ImportBatch
	var total int

	whereClause := ""
	args := []interface{}{}
	if kind != "" {
		whereClause = "WHERE import_kind = ?"
		args = append(args, kind)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM import_batches %s", whereClause)
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, import_kind, started_by_id, source_filename,
	                 COALESCE(notes, '') AS notes, is_dry_run, row_count, created_rows,
	                 updated_rows, skipped_rows, created_at, completed_at
	          FROM import_batches %s
	          ORDER BY created_at DESC, id DESC
	          LIMIT ? OFFSET ?`, whereClause)
	args = append(args, limit, offset)
	if err := sqlx.SelectContext(ctx, r.db, &batches, query, args...); err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}
