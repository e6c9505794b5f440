package service

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"results-web/internal/config"
	"results-web/internal/importer"
	"results-web/internal/models"
	"results-web/internal/repository"
)

// ImportService runs roster/results feeds through the reconciliation
// engine. Preview and commit share one pipeline; commit wraps the
// entity stores in a single transaction spanning the whole file, while
// the ledger always writes against the base connection so a rolled-back
// commit still leaves its audit row.
type ImportService struct {
	db  *sqlx.DB
	cfg *config.Config
	log *logrus.Logger
}

func NewImportService(db *sqlx.DB, cfg *config.Config, log *logrus.Logger) *ImportService {
	return &ImportService{db: db, cfg: cfg, log: log}
}

// Preview runs a read-only dry run and returns the summary.
func (s *ImportService) Preview(ctx context.Context, kind models.ImportKind, input io.Reader, meta importer.Metadata) (*models.ImportSummary, error) {
	engine := importer.New(s.strategyFor(kind, nil), repository.NewBatchRepository(s.db))
	summary, err := engine.Preview(ctx, input, meta)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"kind":    kind,
		"file":    meta.Filename,
		"dry_run": true,
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
	}).Info("import preview finished")
	return summary, nil
}

// Commit runs the pipeline and persists outcomes atomically. Any
// storage failure mid-pass rolls back every entity mutation.
func (s *ImportService) Commit(ctx context.Context, kind models.ImportKind, input io.Reader, meta importer.Metadata) (*models.ImportSummary, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}

	// The engine seals the entity transaction before touching the
	// ledger counters, so a failed commit leaves the batch row
	// unfinalized rather than stamped completed with rolled-back rows.
	engine := importer.New(s.strategyFor(kind, tx), repository.NewBatchRepository(s.db))
	summary, err := engine.Commit(ctx, input, meta, func(context.Context) error {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit import transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"kind":    kind,
		"file":    meta.Filename,
		"batch":   summary.Batch.ID,
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
	}).Info("import committed")
	return summary, nil
}

func (s *ImportService) strategyFor(kind models.ImportKind, tx *sqlx.Tx) importer.Strategy {
	studentRepo := repository.NewStudentRepository(s.db)
	resultRepo := repository.NewResultRepository(s.db)
	if tx != nil {
		studentRepo = studentRepo.WithTx(tx)
		resultRepo = resultRepo.WithTx(tx)
	}

	if kind == models.ImportKindResults {
		return importer.NewResultStrategy(studentRepo, resultRepo)
	}
	return importer.NewStudentStrategy(studentRepo, s.cfg.WorkspaceDomain)
}

// ParseImportKind maps user input to a known import kind.
func ParseImportKind(raw string) (models.ImportKind, error) {
	switch models.ImportKind(raw) {
	case models.ImportKindStudents:
		return models.ImportKindStudents, nil
	case models.ImportKindResults:
		return models.ImportKindResults, nil
	default:
		return "", fmt.Errorf("unknown import kind %q (expected students or results)", raw)
	}
}
