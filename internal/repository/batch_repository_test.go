package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"results-web/internal/models"
)

func newMockRepo(t *testing.T) (*BatchRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "mysql")
	return NewBatchRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestBatchCreateAssignsID(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	batch := &models.ImportBatch{
		ImportKind:     models.ImportKindStudents,
		SourceFilename: "roster.csv",
		IsDryRun:       true,
	}

	mock.ExpectExec("INSERT INTO import_batches").
		WillReturnResult(sqlmock.NewResult(42, 1))

	err := repo.Create(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, int64(42), batch.ID)
	assert.False(t, batch.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchFinalizeCountsWritesAllCounters(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	batch := &models.ImportBatch{
		ID:          7,
		RowCount:    10,
		CreatedRows: 4,
		UpdatedRows: 3,
		SkippedRows: 3,
	}

	mock.ExpectExec("UPDATE import_batches").
		WithArgs(10, 4, 3, 3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.FinalizeCounts(context.Background(), batch)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchMarkCompletedGuardsAgainstReruns(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	batch := &models.ImportBatch{ID: 7, IsDryRun: false}

	mock.ExpectExec("UPDATE import_batches SET completed_at").
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkCompleted(context.Background(), batch)
	require.NoError(t, err)
	require.NotNil(t, batch.CompletedAt)
	first := *batch.CompletedAt

	// Already stamped: no statement is issued and the timestamp holds.
	err = repo.MarkCompleted(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, first, *batch.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchFindByIDMissingReturnsNil(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM import_batches WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	batch, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchFindByIDScansLedgerRow(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	completed := created.Add(2 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "import_kind", "started_by_id", "source_filename", "notes",
		"is_dry_run", "row_count", "created_rows", "updated_rows", "skipped_rows",
		"created_at", "completed_at",
	}).AddRow(7, "results", nil, "marks.csv", "march sitting",
		false, 12, 8, 2, 2, created, completed)

	mock.ExpectQuery("SELECT (.+) FROM import_batches WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	batch, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, models.ImportKindResults, batch.ImportKind)
	assert.Equal(t, "marks.csv", batch.SourceFilename)
	assert.False(t, batch.IsDryRun)
	assert.Equal(t, 12, batch.RowCount)
	require.NotNil(t, batch.CompletedAt)
	assert.True(t, batch.CompletedAt.Equal(completed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchFindAllFiltersByKind(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{
		"id", "import_kind", "started_by_id", "source_filename", "notes",
		"is_dry_run", "row_count", "created_rows", "updated_rows", "skipped_rows",
		"created_at", "completed_at",
	}).AddRow(3, "students", nil, "roster.csv", "",
		true, 5, 0, 0, 0, time.Now(), nil)

	mock.ExpectQuery("SELECT (.+) FROM import_batches WHERE import_kind").
		WithArgs("students", 20, 0).
		WillReturnRows(rows)

	batches, total, err := repo.FindAll(context.Background(), 20, 0, models.ImportKindStudents)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].IsDryRun)
	assert.Nil(t, batches[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
