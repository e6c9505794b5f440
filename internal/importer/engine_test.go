package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"results-web/internal/models"
)

const testDomain = "pmc.edu.pk"

func newStudentEngine(students *fakeStudentStore, batches *fakeBatchStore) *Engine {
	return New(NewStudentStrategy(students, testDomain), batches)
}

func TestRunRejectsEmptyFile(t *testing.T) {
	engine := newStudentEngine(newFakeStudentStore(), newFakeBatchStore())

	_, err := engine.Preview(context.Background(), strings.NewReader(""), Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must include a header row")
}

func TestRunRejectsMissingColumns(t *testing.T) {
	batches := newFakeBatchStore()
	engine := newStudentEngine(newFakeStudentStore(), batches)

	input := "roll_no,first_name,last_name,display_name\nPMC-100,Ayesha,Khan,Ayesha Khan\n"
	_, err := engine.Preview(context.Background(), strings.NewReader(input), Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column(s): official_email")

	// Rejected files never reach the ledger.
	assert.Empty(t, batches.batches)
}

const rosterHeader = "roll_no,first_name,last_name,display_name,official_email,recovery_email,batch_code,status\n"

func rosterFeed(rows ...string) string {
	return rosterHeader + strings.Join(rows, "\n") + "\n"
}

func TestRosterPreviewReportsMixedRows(t *testing.T) {
	students := newFakeStudentStore()
	engine := newStudentEngine(students, newFakeBatchStore())

	input := rosterFeed(
		"PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active",
		"PMC-101,Bilal,Ahmed,Bilal Ahmed,bilal@gmail.com,,2024-A,",
		"pmc-100,Fatima,Raza,Fatima Raza,fatima.raza@pmc.edu.pk,,2024-A,",
	)
	summary, err := engine.Preview(context.Background(), strings.NewReader(input), Metadata{Filename: "roster.csv"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.RowResults, 3)

	// Header is row 1, first data row is row 2.
	assert.Equal(t, 2, summary.RowResults[0].RowNumber)
	assert.Equal(t, models.ActionCreated, summary.RowResults[0].Action)
	assert.Empty(t, summary.RowResults[0].Errors)

	require.NotEmpty(t, summary.RowResults[1].Errors)
	assert.Contains(t, summary.RowResults[1].Errors[0], testDomain)

	// roll_no duplicates collide case-insensitively.
	require.NotEmpty(t, summary.RowResults[2].Errors)
	assert.Contains(t, summary.RowResults[2].Errors, "Duplicate roll_no found within file.")

	// Previews never write entity rows.
	assert.Equal(t, 0, students.creates)
	assert.Equal(t, 0, students.updates)
}

func TestPreviewAndCommitDecideIdentically(t *testing.T) {
	input := rosterFeed(
		"PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active",
		"PMC-101,Bilal,Ahmed,Bilal Ahmed,bilal@gmail.com,,2024-A,",
		"PMC-102,Fatima,Raza,Fatima Raza,fatima.raza@pmc.edu.pk,,2024-B,graduated",
	)

	previewStudents := newFakeStudentStore()
	preview, err := newStudentEngine(previewStudents, newFakeBatchStore()).
		Preview(context.Background(), strings.NewReader(input), Metadata{})
	require.NoError(t, err)

	commitStudents := newFakeStudentStore()
	commit, err := newStudentEngine(commitStudents, newFakeBatchStore()).
		Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	require.Len(t, commit.RowResults, len(preview.RowResults))
	for i := range preview.RowResults {
		assert.Equal(t, preview.RowResults[i].Action, commit.RowResults[i].Action, "row %d", i)
		assert.Equal(t, preview.RowResults[i].Errors, commit.RowResults[i].Errors, "row %d", i)
	}
	assert.Equal(t, preview.Created, commit.Created)
	assert.Equal(t, preview.Skipped, commit.Skipped)

	// Only the commit run touched the store.
	assert.Equal(t, 0, previewStudents.creates)
	assert.Equal(t, 2, commitStudents.creates)
}

func TestCommitIsIdempotent(t *testing.T) {
	students := newFakeStudentStore()
	input := rosterFeed(
		"PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active",
		"PMC-101,Bilal,Ahmed,Bilal Ahmed,bilal.ahmed@pmc.edu.pk,,2024-A,active",
	)

	first, err := newStudentEngine(students, newFakeBatchStore()).
		Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := newStudentEngine(students, newFakeBatchStore()).
		Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 0, second.Skipped)
	for _, row := range second.RowResults {
		assert.Contains(t, row.Messages, "No changes detected; record already up to date.")
	}
	assert.Equal(t, 0, students.updates)
}

func TestDiffIsMinimal(t *testing.T) {
	students := newFakeStudentStore()
	base := rosterFeed("PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active")
	_, err := newStudentEngine(students, newFakeBatchStore()).
		Commit(context.Background(), strings.NewReader(base), Metadata{}, nil)
	require.NoError(t, err)

	existing, err := students.FindByRollNumber(context.Background(), "PMC-100")
	require.NoError(t, err)
	require.NotNil(t, existing)

	strategy := NewStudentStrategy(students, testDomain)
	payload, rowErrors := strategy.ParseRow(strategy.NewState(), map[string]string{
		"roll_no":        "PMC-100",
		"first_name":     "Ayesha",
		"last_name":      "Khan",
		"display_name":   "Ayesha Khan",
		"official_email": "ayesha.khan@pmc.edu.pk",
		"batch_code":     "2024-B",
		"status":         "active",
	})
	require.Empty(t, rowErrors)

	changes := strategy.Diff(existing, payload)
	require.Len(t, changes, 1)
	assert.Equal(t, "batch_code", changes[0].Field)
	assert.Equal(t, "2024-A", changes[0].Old)
	assert.Equal(t, "2024-B", changes[0].New)
}

func TestDuplicateTrackingResetsBetweenRuns(t *testing.T) {
	students := newFakeStudentStore()
	engine := newStudentEngine(students, newFakeBatchStore())
	input := rosterFeed("PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active")

	first, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	// The same roll number in a later run is an update, not an
	// intra-batch duplicate.
	second, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Skipped)
	assert.Equal(t, 1, second.Updated)
}

func TestCommitMixedRosterEndToEnd(t *testing.T) {
	students := newFakeStudentStore()
	require.NoError(t, students.Create(context.Background(), &models.Student{
		RollNumber:    "PMC-100",
		FirstName:     "Ayesha",
		LastName:      "Khan",
		DisplayName:   "Ayesha Khan",
		OfficialEmail: "ayesha.khan@pmc.edu.pk",
		BatchCode:     "2024-A",
		Status:        models.StudentStatusActive,
	}))
	students.creates = 0

	engine := newStudentEngine(students, newFakeBatchStore())
	input := rosterFeed(
		"PMC-100,Ayesha,Khan-Niazi,Ayesha Khan-Niazi,ayesha.khan@pmc.edu.pk,,2024-B,active",
		"PMC-101,Bilal,Ahmed,Bilal Ahmed,bilal.ahmed@pmc.edu.pk,,2024-B,",
		"PMC-102,Fatima,Raza,Fatima Raza,fatima.raza@gmail.com,,2024-B,active",
	)
	summary, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)

	rejected := summary.RowResults[2]
	assert.Equal(t, 4, rejected.RowNumber)
	require.NotEmpty(t, rejected.Errors)
	assert.Contains(t, rejected.Errors[0], testDomain)

	// Exactly two rows in storage: the updated original and the new one.
	require.Len(t, students.students, 2)

	updated, err := students.FindByRollNumber(context.Background(), "PMC-100")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Khan-Niazi", updated.LastName)
	assert.Equal(t, "Ayesha Khan-Niazi", updated.DisplayName)
	assert.Equal(t, "2024-B", updated.BatchCode)

	created, err := students.FindByRollNumber(context.Background(), "PMC-101")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.StudentStatusActive, created.Status)

	// The rejected row's email never lands in storage.
	ghost, err := students.FindByOfficialEmail(context.Background(), "fatima.raza@gmail.com")
	require.NoError(t, err)
	assert.Nil(t, ghost)
}

func TestFailedSealLeavesLedgerUnfinalized(t *testing.T) {
	students := newFakeStudentStore()
	batches := newFakeBatchStore()
	engine := newStudentEngine(students, batches)

	input := rosterFeed("PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active")
	sealErr := errors.New("commit import transaction: connection lost")
	_, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, func(context.Context) error {
		return sealErr
	})
	require.ErrorIs(t, err, sealErr)

	// The audit row survives, but with zero counters and no completion
	// stamp: the run must never read as completed when the entity
	// transaction failed.
	require.Len(t, batches.batches, 1)
	batch := batches.batches[0]
	assert.True(t, batch.IsDryRun)
	assert.Nil(t, batch.CompletedAt)
	assert.Equal(t, 0, batch.RowCount)
	assert.Equal(t, 0, batch.CreatedRows)
	assert.Equal(t, 0, batch.UpdatedRows)
	assert.Equal(t, 0, batch.SkippedRows)
}

func TestSealRunsBeforeLedgerFinalization(t *testing.T) {
	batches := newFakeBatchStore()
	engine := newStudentEngine(newFakeStudentStore(), batches)

	input := rosterFeed("PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active")
	var countersAtSeal int
	summary, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, func(context.Context) error {
		countersAtSeal = batches.batches[0].RowCount
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	assert.Equal(t, 0, countersAtSeal)
	batch := batches.batches[0]
	assert.Equal(t, 1, batch.RowCount)
	assert.False(t, batch.IsDryRun)
	require.NotNil(t, batch.CompletedAt)
}

func TestBatchLedgerLifecycle(t *testing.T) {
	input := rosterFeed(
		"PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,2024-A,active",
		"PMC-101,Bilal,Ahmed,Bilal Ahmed,bilal@gmail.com,,2024-A,",
	)

	dryBatches := newFakeBatchStore()
	preview, err := newStudentEngine(newFakeStudentStore(), dryBatches).
		Preview(context.Background(), strings.NewReader(input), Metadata{Filename: "roster.csv", Notes: "first pass"})
	require.NoError(t, err)

	require.Len(t, dryBatches.batches, 1)
	dryBatch := dryBatches.batches[0]
	assert.True(t, dryBatch.IsDryRun)
	assert.Nil(t, dryBatch.CompletedAt)
	assert.Equal(t, "roster.csv", dryBatch.SourceFilename)
	assert.Equal(t, 2, dryBatch.RowCount)
	assert.Equal(t, preview.Created, dryBatch.CreatedRows)
	assert.Equal(t, preview.Skipped, dryBatch.SkippedRows)

	commitBatches := newFakeBatchStore()
	_, err = newStudentEngine(newFakeStudentStore(), commitBatches).
		Commit(context.Background(), strings.NewReader(input), Metadata{Filename: "roster.csv"}, nil)
	require.NoError(t, err)

	require.Len(t, commitBatches.batches, 1)
	committed := commitBatches.batches[0]
	assert.False(t, committed.IsDryRun)
	require.NotNil(t, committed.CompletedAt)
}

func TestOfficialEmailUniquenessAcrossStudents(t *testing.T) {
	students := newFakeStudentStore()
	engine := newStudentEngine(students, newFakeBatchStore())

	seed := rosterFeed("PMC-100,Ayesha,Khan,Ayesha Khan,shared@pmc.edu.pk,,2024-A,active")
	_, err := engine.Commit(context.Background(), strings.NewReader(seed), Metadata{}, nil)
	require.NoError(t, err)

	conflicting := rosterFeed("PMC-200,Bilal,Ahmed,Bilal Ahmed,shared@pmc.edu.pk,,2024-A,active")
	summary, err := engine.Preview(context.Background(), strings.NewReader(conflicting), Metadata{})
	require.NoError(t, err)

	require.Len(t, summary.RowResults, 1)
	assert.Contains(t, summary.RowResults[0].Errors, "official_email: already assigned to another student.")

	// Reclaiming your own email is not a conflict.
	rename := rosterFeed("PMC-100,Ayesha,Khan,Ayesha A. Khan,shared@pmc.edu.pk,,2024-A,active")
	summary, err = engine.Preview(context.Background(), strings.NewReader(rename), Metadata{})
	require.NoError(t, err)
	assert.Empty(t, summary.RowResults[0].Errors)
	assert.Equal(t, 1, summary.Updated)
}

func TestBlankStatusDefaultsToActive(t *testing.T) {
	students := newFakeStudentStore()
	engine := newStudentEngine(students, newFakeBatchStore())

	input := rosterFeed("PMC-100,Ayesha,Khan,Ayesha Khan,ayesha.khan@pmc.edu.pk,,,")
	_, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	student, err := students.FindByRollNumber(context.Background(), "PMC-100")
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, models.StudentStatusActive, student.Status)
}
