package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"results-web/internal/models"
)

const resultsHeader = "roll_no,name,block,year,subject,written_marks,viva_marks,total_marks,grade,exam_date\n"

func resultsFeed(rows ...string) string {
	return resultsHeader + strings.Join(rows, "\n") + "\n"
}

func seedStudent(t *testing.T, students *fakeStudentStore, rollNumber string) *models.Student {
	t.Helper()
	student := &models.Student{
		RollNumber:    rollNumber,
		FirstName:     "Ayesha",
		LastName:      "Khan",
		DisplayName:   "Ayesha Khan",
		OfficialEmail: strings.ToLower(rollNumber) + "@pmc.edu.pk",
		Status:        models.StudentStatusActive,
	}
	require.NoError(t, students.Create(context.Background(), student))
	return student
}

func newResultEngine(students *fakeStudentStore, results *fakeResultStore, batches *fakeBatchStore) *Engine {
	return New(NewResultStrategy(students, results), batches)
}

func TestResultRowRequiresKnownStudent(t *testing.T) {
	students := newFakeStudentStore()
	results := newFakeResultStore()
	engine := newResultEngine(students, results, newFakeBatchStore())

	input := resultsFeed("PMC-999,Ghost Student,Block A,2026,Anatomy,50,20,70,B,2026-06-15")
	summary, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.RowResults, 1)
	assert.Contains(t, summary.RowResults[0].Errors, "Student with roll number PMC-999 not found.")
	assert.Equal(t, 0, results.creates)
}

func TestResultParseErrors(t *testing.T) {
	students := newFakeStudentStore()
	seedStudent(t, students, "PMC-100")
	engine := newResultEngine(students, newFakeResultStore(), newFakeBatchStore())

	input := resultsFeed(
		"PMC-100,Ayesha Khan,Block A,twenty,Anatomy,50,20,70,B,2026-06-15",
		"PMC-100,Ayesha Khan,Block A,2026,Anatomy,fifty,20,70,B,2026-06-15",
		"PMC-100,Ayesha Khan,Block A,2026,Anatomy,50,20,70,B,15/06/2026",
		"PMC-100,Ayesha Khan,Block A,2026,,50,20,70,B,2026-06-15",
	)
	summary, err := engine.Preview(context.Background(), strings.NewReader(input), Metadata{})
	require.NoError(t, err)

	require.Len(t, summary.RowResults, 4)
	assert.Contains(t, summary.RowResults[0].Errors, "year must be an integer.")
	assert.Contains(t, summary.RowResults[1].Errors, "written_marks must be a numeric value.")
	assert.Contains(t, summary.RowResults[2].Errors, "exam_date must be in YYYY-MM-DD format.")
	assert.Contains(t, summary.RowResults[3].Errors, "subject is required.")
	assert.Equal(t, 4, summary.Skipped)
}

func TestResultMarksMustAddUp(t *testing.T) {
	students := newFakeStudentStore()
	seedStudent(t, students, "PMC-100")
	engine := newResultEngine(students, newFakeResultStore(), newFakeBatchStore())

	input := resultsFeed("PMC-100,Ayesha Khan,Block A,2026,Anatomy,50,20,75,B,2026-06-15")
	summary, err := engine.Preview(context.Background(), strings.NewReader(input), Metadata{})
	require.NoError(t, err)

	require.Len(t, summary.RowResults, 1)
	assert.Contains(t, summary.RowResults[0].Errors,
		"total_marks: total marks must equal theory plus practical marks.")
}

func TestResultNegativeMarksRejected(t *testing.T) {
	students := newFakeStudentStore()
	seedStudent(t, students, "PMC-100")
	engine := newResultEngine(students, newFakeResultStore(), newFakeBatchStore())

	input := resultsFeed("PMC-100,Ayesha Khan,Block A,2026,Anatomy,-5,20,15,F,2026-06-15")
	summary, err := engine.Preview(context.Background(), strings.NewReader(input), Metadata{})
	require.NoError(t, err)

	require.Len(t, summary.RowResults, 1)
	assert.Contains(t, summary.RowResults[0].Errors, "theory_marks: marks cannot be negative.")
}

func TestResultDuplicateKeyWithinFile(t *testing.T) {
	students := newFakeStudentStore()
	seedStudent(t, students, "PMC-100")
	engine := newResultEngine(students, newFakeResultStore(), newFakeBatchStore())

	// Same student/subject/date, differing only in case.
	input := resultsFeed(
		"PMC-100,Ayesha Khan,Block A,2026,Anatomy,50,20,70,B,2026-06-15",
		"pmc-100,Ayesha Khan,Block A,2026,ANATOMY,55,20,75,B,2026-06-15",
	)
	summary, err := engine.Preview(context.Background(), strings.NewReader(input), Metadata{})
	require.NoError(t, err)

	require.Len(t, summary.RowResults, 2)
	assert.Empty(t, summary.RowResults[0].Errors)
	assert.Contains(t, summary.RowResults[1].Errors,
		"Duplicate roll_no/subject/exam_date combination within file.")
}

func TestResultCommitCreatesDraftRows(t *testing.T) {
	students := newFakeStudentStore()
	student := seedStudent(t, students, "PMC-100")
	results := newFakeResultStore()
	engine := newResultEngine(students, results, newFakeBatchStore())

	input := resultsFeed("PMC-100,Ayesha Khan,Block A,2026,Anatomy,50.5,19.5,70,B,2026-06-15")
	summary, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	examDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	stored, err := results.FindByNaturalKey(context.Background(), student.ID, "Anatomy", examDate)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, models.ResultStatusDraft, stored.Status)
	assert.Equal(t, summary.Batch.ID, stored.ImportBatchID)
	assert.True(t, stored.TheoryMarks.Equal(decimal.RequireFromString("50.5")))
	assert.True(t, stored.TotalMarks.Equal(decimal.RequireFromString("70")))
}

func TestResultUpdateNeverTouchesStatus(t *testing.T) {
	students := newFakeStudentStore()
	student := seedStudent(t, students, "PMC-100")
	results := newFakeResultStore()
	engine := newResultEngine(students, results, newFakeBatchStore())

	input := resultsFeed("PMC-100,Ayesha Khan,Block A,2026,Anatomy,50,20,70,B,2026-06-15")
	_, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	// Publish the stored row out of band.
	examDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	stored, err := results.FindByNaturalKey(context.Background(), student.ID, "Anatomy", examDate)
	require.NoError(t, err)
	now := time.Now()
	stored.Status = models.ResultStatusPublished
	stored.PublishedAt = &now
	require.NoError(t, results.Update(context.Background(), stored))

	// Re-import with corrected marks.
	corrected := resultsFeed("PMC-100,Ayesha Khan,Block A,2026,Anatomy,55,20,75,B,2026-06-15")
	summary, err := engine.Commit(context.Background(), strings.NewReader(corrected), Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	after, err := results.FindByNaturalKey(context.Background(), student.ID, "Anatomy", examDate)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusPublished, after.Status)
	require.NotNil(t, after.PublishedAt)
	assert.True(t, after.TheoryMarks.Equal(decimal.RequireFromString("55")))
}

func TestResultDiffUsesFeedColumnNames(t *testing.T) {
	students := newFakeStudentStore()
	seedStudent(t, students, "PMC-100")
	results := newFakeResultStore()
	engine := newResultEngine(students, results, newFakeBatchStore())

	input := resultsFeed("PMC-100,Ayesha Khan,Block A,2026,Anatomy,50,20,70,B,2026-06-15")
	_, err := engine.Commit(context.Background(), strings.NewReader(input), Metadata{}, nil)
	require.NoError(t, err)

	strategy := NewResultStrategy(students, results)
	payload, rowErrors := strategy.ParseRow(strategy.NewState(), map[string]string{
		"roll_no":       "PMC-100",
		"name":          "Ayesha Khan",
		"block":         "Block A",
		"year":          "2026",
		"subject":       "Anatomy",
		"written_marks": "55",
		"viva_marks":    "20",
		"total_marks":   "75",
		"grade":         "B",
		"exam_date":     "2026-06-15",
	})
	require.Empty(t, rowErrors)

	existing, rowErrors, err := strategy.ResolveExisting(context.Background(), payload)
	require.NoError(t, err)
	require.Empty(t, rowErrors)
	require.NotNil(t, existing)

	changes := strategy.Diff(existing, payload)
	fields := make([]string, len(changes))
	for i, change := range changes {
		fields[i] = change.Field
	}
	assert.ElementsMatch(t, []string{"written_marks", "total_marks"}, fields)
}

func TestResultRollMismatchRejected(t *testing.T) {
	students := newFakeStudentStore()
	student := seedStudent(t, students, "PMC-100")
	_ = student

	strategy := NewResultStrategy(students, newFakeResultStore())
	payload, rowErrors := strategy.ParseRow(strategy.NewState(), map[string]string{
		"roll_no":       "PMC-100",
		"name":          "Ayesha Khan",
		"block":         "Block A",
		"year":          "2026",
		"subject":       "Anatomy",
		"written_marks": "50",
		"viva_marks":    "20",
		"total_marks":   "70",
		"grade":         "B",
		"exam_date":     "2026-06-15",
	})
	require.Empty(t, rowErrors)

	existing, rowErrors, err := strategy.ResolveExisting(context.Background(), payload)
	require.NoError(t, err)
	require.Empty(t, rowErrors)
	require.Nil(t, existing)

	// Tamper with the linked student to force a mismatch.
	payload.(*resultPayload).student.RollNumber = "PMC-200"
	violations, err := strategy.Validate(context.Background(), existing, payload)
	require.NoError(t, err)
	assert.Contains(t, violations, "roll_number: roll number does not match the linked student record.")
}
