package models

import "time"

// ImportKind identifies which feed an import batch belongs to
type ImportKind string

const (
	ImportKindStudents ImportKind = "students"
	ImportKindResults  ImportKind = "results"
)

// ImportBatch is the audit ledger row for one import run (preview or commit)
type ImportBatch struct {
	ID             int64      `db:"id" json:"id"`
	ImportKind     ImportKind `db:"import_kind" json:"import_kind"`
	StartedByID    *int       `db:"started_by_id" json:"started_by_id,omitempty"`
	SourceFilename string     `db:"source_filename" json:"source_filename"`
	Notes          string     `db:"notes" json:"notes"`
	IsDryRun       bool       `db:"is_dry_run" json:"is_dry_run"`
	RowCount       int        `db:"row_count" json:"row_count"`
	CreatedRows    int        `db:"created_rows" json:"created_rows"`
	UpdatedRows    int        `db:"updated_rows" json:"updated_rows"`
	SkippedRows    int        `db:"skipped_rows" json:"skipped_rows"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// MarkCompleted stamps the completion time and clears the dry-run flag.
// Idempotent: returns false without changing anything if the batch is
// already completed.
func (b *ImportBatch) MarkCompleted(now time.Time) bool {
	if b.CompletedAt != nil {
		return false
	}
	b.CompletedAt = &now
	b.IsDryRun = false
	return true
}

// Row actions reported per processed row
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
)

// RowResult is the outcome of processing a single input row.
// Row numbers are 1-based with the header as row 1, so the first data
// row is row 2.
type RowResult struct {
	RowNumber int               `json:"row_number"`
	Action    string            `json:"action"`
	Errors    []string          `json:"errors,omitempty"`
	Messages  []string          `json:"messages,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

func (r *RowResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ImportSummary is returned to the caller of a preview or commit run
type ImportSummary struct {
	Batch      *ImportBatch `json:"batch"`
	Created    int          `json:"created"`
	Updated    int          `json:"updated"`
	Skipped    int          `json:"skipped"`
	RowResults []*RowResult `json:"row_results"`
}

func (s *ImportSummary) RowCount() int {
	return len(s.RowResults)
}

func (s *ImportSummary) HasErrors() bool {
	for _, row := range s.RowResults {
		if row.HasErrors() {
			return true
		}
	}
	return false
}
