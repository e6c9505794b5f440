package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStatusTransitions(t *testing.T) {
	tests := []struct {
		from    ResultStatus
		to      ResultStatus
		allowed bool
	}{
		{ResultStatusDraft, ResultStatusSubmitted, true},
		{ResultStatusDraft, ResultStatusPublished, false},
		{ResultStatusSubmitted, ResultStatusVerified, true},
		{ResultStatusSubmitted, ResultStatusReturned, true},
		{ResultStatusSubmitted, ResultStatusDraft, false},
		{ResultStatusReturned, ResultStatusSubmitted, true},
		{ResultStatusVerified, ResultStatusPublished, true},
		{ResultStatusVerified, ResultStatusDraft, false},
		{ResultStatusPublished, ResultStatusVerified, true},
		{ResultStatusPublished, ResultStatusDraft, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func validResult() Result {
	return Result{
		RollNumber:     "PMC-100",
		Subject:        "Anatomy",
		TheoryMarks:    decimal.RequireFromString("50.5"),
		PracticalMarks: decimal.RequireFromString("19.5"),
		TotalMarks:     decimal.RequireFromString("70"),
		ExamDate:       time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Status:         ResultStatusDraft,
	}
}

func TestResultValidateAcceptsConsistentMarks(t *testing.T) {
	result := validResult()
	student := &Student{RollNumber: "pmc-100"}

	assert.Empty(t, result.Validate(student))
}

func TestResultValidateRejectsMismatchedTotal(t *testing.T) {
	result := validResult()
	result.TotalMarks = decimal.RequireFromString("71")

	violations := result.Validate(nil)
	require.Len(t, violations, 1)
	assert.Equal(t, "total_marks: total marks must equal theory plus practical marks.", violations[0])
}

func TestResultValidateRejectsNegativeMarks(t *testing.T) {
	result := validResult()
	result.PracticalMarks = decimal.RequireFromString("-1")
	result.TotalMarks = decimal.RequireFromString("49.5")

	violations := result.Validate(nil)
	assert.Contains(t, violations, "practical_marks: marks cannot be negative.")
}

func TestResultValidateRejectsRollMismatch(t *testing.T) {
	result := validResult()
	student := &Student{RollNumber: "PMC-200"}

	violations := result.Validate(student)
	assert.Contains(t, violations, "roll_number: roll number does not match the linked student record.")
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	batch := &ImportBatch{IsDryRun: true}
	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.True(t, batch.MarkCompleted(first))
	assert.False(t, batch.IsDryRun)
	require.NotNil(t, batch.CompletedAt)
	assert.Equal(t, first, *batch.CompletedAt)

	// A second completion never moves the timestamp.
	assert.False(t, batch.MarkCompleted(first.Add(time.Hour)))
	assert.Equal(t, first, *batch.CompletedAt)
}
