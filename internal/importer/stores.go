package importer

import (
	"context"
	"time"

	"results-web/internal/models"
)

// BatchStore persists the audit ledger. In commit runs it stays bound to
// the base connection, not the row transaction, so a rolled-back commit
// still leaves its ledger row behind for forensics.
type BatchStore interface {
	Create(ctx context.Context, batch *models.ImportBatch) error
	FinalizeCounts(ctx context.Context, batch *models.ImportBatch) error
	MarkCompleted(ctx context.Context, batch *models.ImportBatch) error
}

// StudentStore is the roster lookup/mutation surface the engine needs.
// Find methods are case-insensitive on their key and return (nil, nil)
// when no record matches.
type StudentStore interface {
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	FindByOfficialEmail(ctx context.Context, email string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

// ResultStore is the result lookup/mutation surface the engine needs.
// FindByNaturalKey returns (nil, nil) when no record matches.
type ResultStore interface {
	FindByNaturalKey(ctx context.Context, studentID int64, subject string, examDate time.Time) (*models.Result, error)
	Create(ctx context.Context, result *models.Result) error
	Update(ctx context.Context, result *models.Result) error
}
