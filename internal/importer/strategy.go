package importer

import (
	"context"

	"results-web/internal/models"
)

// FieldChange records one field-level difference between a candidate row
// and the persisted record, keyed by the feed column name.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// ChangeSet is an ordered, minimal list of field changes. Empty means
// the record is already up to date.
type ChangeSet []FieldChange

// Strategy supplies the entity-specific stages of the shared import
// pipeline. One strategy instance may serve many runs; all per-run
// bookkeeping lives in the state object returned by NewState.
type Strategy interface {
	Kind() models.ImportKind

	// RequiredColumns lists the header names that must be present.
	RequiredColumns() []string

	// NewState builds the per-run duplicate-tracking state. Called once
	// at the start of every preview or commit.
	NewState() any

	// ParseRow validates required fields and typed values on a
	// normalized row, records the row's natural key in the run state,
	// and converts the row into an entity payload. A non-empty error
	// list skips the row.
	ParseRow(state any, row map[string]string) (payload any, rowErrors []string)

	// ResolveExisting looks up the persisted record matching the
	// payload's natural key. Returns untyped nil when absent. A
	// non-empty error list skips the row (e.g. a result row whose
	// student does not exist); a non-nil error aborts the run.
	ResolveExisting(ctx context.Context, payload any) (existing any, rowErrors []string, err error)

	// Validate runs the domain invariants against a throwaway candidate
	// built from the payload, never mutating existing. A non-nil error
	// aborts the run.
	Validate(ctx context.Context, existing, payload any) ([]string, error)

	// Diff compares the payload against the existing record.
	Diff(existing, payload any) ChangeSet

	// Persist creates the record (existing nil) or applies the change
	// set to it. Only called in commit runs.
	Persist(ctx context.Context, batch *models.ImportBatch, existing, payload any, changes ChangeSet) error
}

// keySet tracks canonical natural keys seen within a single run.
type keySet map[string]struct{}

// seen reports whether key was already recorded, inserting it if not.
func (s keySet) seen(key string) bool {
	if _, ok := s[key]; ok {
		return true
	}
	s[key] = struct{}{}
	return false
}
