// Package importer implements the shared reconciliation pipeline for the
// roster and results feeds. One engine run reads a delimited stream,
// resolves every row against persisted state and produces a deterministic
// set of create/update/skip decisions; preview and commit share the exact
// same code path and differ only in whether mutations are persisted.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"results-web/internal/models"
)

// Metadata describes the provenance of one import run.
type Metadata struct {
	StartedByID *int
	Filename    string
	Notes       string
}

type Engine struct {
	strategy Strategy
	batches  BatchStore
}

func New(strategy Strategy, batches BatchStore) *Engine {
	return &Engine{strategy: strategy, batches: batches}
}

// Preview runs the full pipeline without persisting any entity rows.
// The ledger row is still written, flagged as a dry run.
func (e *Engine) Preview(ctx context.Context, input io.Reader, meta Metadata) (*models.ImportSummary, error) {
	summary, err := e.run(ctx, input, meta, true)
	if err != nil {
		return nil, err
	}
	if err := e.finalize(ctx, summary, true); err != nil {
		return nil, err
	}
	return summary, nil
}

// Commit runs the full pipeline and persists created/updated rows.
// Callers are expected to wrap the entity stores in one transaction
// spanning the whole pass and seal it through the hook; the ledger is
// finalized only after seal succeeds, so a failed transaction leaves
// the batch without counters or a completion stamp.
func (e *Engine) Commit(ctx context.Context, input io.Reader, meta Metadata, seal func(context.Context) error) (*models.ImportSummary, error) {
	summary, err := e.run(ctx, input, meta, false)
	if err != nil {
		return nil, err
	}
	if seal != nil {
		if err := seal(ctx); err != nil {
			return nil, err
		}
	}
	if err := e.finalize(ctx, summary, false); err != nil {
		return nil, err
	}
	return summary, nil
}

func (e *Engine) run(ctx context.Context, input io.Reader, meta Metadata, dryRun bool) (*models.ImportSummary, error) {
	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1

	// Header validation happens strictly before the ledger row exists,
	// so rejected files leave no audit trace.
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s feed must include a header row", e.strategy.Kind())
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	columns := normalizeHeader(header)
	if err := validateHeader(columns, e.strategy.RequiredColumns()); err != nil {
		return nil, err
	}

	batch := &models.ImportBatch{
		ImportKind:     e.strategy.Kind(),
		StartedByID:    meta.StartedByID,
		SourceFilename: meta.Filename,
		Notes:          meta.Notes,
		IsDryRun:       true,
		CreatedAt:      time.Now(),
	}
	if err := e.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create import batch: %w", err)
	}

	state := e.strategy.NewState()
	summary := &models.ImportSummary{Batch: batch}

	// Header is row 1, so the first data row is row 2. Rows are consumed
	// strictly in order: within a commit, later rows observe the
	// persisted effects of earlier ones through the resolver.
	rowNumber := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNumber+1, err)
		}
		rowNumber++

		row := normalizeRow(columns, record)
		rowResult, err := e.processRow(ctx, state, rowNumber, row, batch, dryRun)
		if err != nil {
			return nil, err
		}

		switch rowResult.Action {
		case models.ActionCreated:
			summary.Created++
		case models.ActionUpdated:
			summary.Updated++
		default:
			summary.Skipped++
		}
		summary.RowResults = append(summary.RowResults, rowResult)
	}

	return summary, nil
}

// finalize writes the batch counters and, for commits, the completion
// stamp. Counters are set exactly once, from the accumulated totals;
// until finalize runs the ledger row carries zero counters and stays
// flagged as a dry run, so an aborted commit never reads as completed.
func (e *Engine) finalize(ctx context.Context, summary *models.ImportSummary, dryRun bool) error {
	batch := summary.Batch
	batch.RowCount = len(summary.RowResults)
	batch.CreatedRows = summary.Created
	batch.UpdatedRows = summary.Updated
	batch.SkippedRows = summary.Skipped
	if err := e.batches.FinalizeCounts(ctx, batch); err != nil {
		return fmt.Errorf("finalize batch counters: %w", err)
	}

	if !dryRun {
		if err := e.batches.MarkCompleted(ctx, batch); err != nil {
			return fmt.Errorf("mark batch completed: %w", err)
		}
	}
	return nil
}

// processRow takes one normalized row through parse, duplicate check,
// resolve, validate, diff and (for commits) persist. The returned error
// is reserved for storage failures, which abort the whole run; row-level
// problems are recorded on the RowResult instead.
func (e *Engine) processRow(ctx context.Context, state any, rowNumber int, row map[string]string, batch *models.ImportBatch, dryRun bool) (*models.RowResult, error) {
	rowResult := &models.RowResult{
		RowNumber: rowNumber,
		Action:    models.ActionSkipped,
		Data:      row,
	}

	payload, rowErrors := e.strategy.ParseRow(state, row)
	if len(rowErrors) > 0 {
		rowResult.Errors = rowErrors
		return rowResult, nil
	}

	existing, rowErrors, err := e.strategy.ResolveExisting(ctx, payload)
	if err != nil {
		return nil, err
	}
	if len(rowErrors) > 0 {
		rowResult.Errors = rowErrors
		return rowResult, nil
	}

	violations, err := e.strategy.Validate(ctx, existing, payload)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		rowResult.Errors = violations
		return rowResult, nil
	}

	if existing == nil {
		rowResult.Action = models.ActionCreated
		if !dryRun {
			if err := e.strategy.Persist(ctx, batch, nil, payload, nil); err != nil {
				return nil, err
			}
		}
		return rowResult, nil
	}

	// The action stays "updated" even when nothing changed, so counters
	// stay comparable between re-imports; the message tells the
	// operator the record was already current.
	rowResult.Action = models.ActionUpdated
	changes := e.strategy.Diff(existing, payload)
	switch {
	case len(changes) == 0:
		rowResult.Messages = append(rowResult.Messages, "No changes detected; record already up to date.")
	case dryRun:
		rowResult.Messages = append(rowResult.Messages, fmt.Sprintf("Would apply %d field change(s).", len(changes)))
	default:
		if err := e.strategy.Persist(ctx, batch, existing, payload, changes); err != nil {
			return nil, err
		}
		rowResult.Messages = append(rowResult.Messages, fmt.Sprintf("Applied %d field change(s).", len(changes)))
	}

	return rowResult, nil
}

func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}
	return columns
}

func validateHeader(columns, required []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if name != "" {
			present[name] = struct{}{}
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// normalizeRow zips a record against the header columns, trimming every
// value. Missing cells become empty strings so downstream stages treat
// absence uniformly. Pure syntactic cleanup, no validation.
func normalizeRow(columns, record []string) map[string]string {
	row := make(map[string]string, len(columns))
	for i, name := range columns {
		if name == "" {
			continue
		}
		value := ""
		if i < len(record) {
			value = strings.TrimSpace(record[i])
		}
		row[name] = value
	}
	return row
}
