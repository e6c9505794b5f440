package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ResultStatus is the workflow state of a result record. Imports only
// ever write draft rows; transitions happen through the status service.
type ResultStatus string

const (
	ResultStatusDraft     ResultStatus = "draft"
	ResultStatusSubmitted ResultStatus = "submitted"
	ResultStatusReturned  ResultStatus = "returned"
	ResultStatusVerified  ResultStatus = "verified"
	ResultStatusPublished ResultStatus = "published"
)

// resultTransitions holds the allowed workflow edges. Published results
// may be pulled back to verified for corrections.
var resultTransitions = map[ResultStatus][]ResultStatus{
	ResultStatusDraft:     {ResultStatusSubmitted},
	ResultStatusSubmitted: {ResultStatusReturned, ResultStatusVerified},
	ResultStatusReturned:  {ResultStatusSubmitted},
	ResultStatusVerified:  {ResultStatusPublished},
	ResultStatusPublished: {ResultStatusVerified},
}

// CanTransitionTo reports whether the workflow permits moving to next.
func (s ResultStatus) CanTransitionTo(next ResultStatus) bool {
	for _, allowed := range resultTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Result stores a single subject result for a student.
//
// Marks use the canonical theory/practical/total schema; the legacy
// written/viva column names of the results feed are mapped at the CSV
// boundary in the importer.
type Result struct {
	ID            int64           `db:"id" json:"id"`
	StudentID     int64           `db:"student_id" json:"student_id"`
	ImportBatchID int64           `db:"import_batch_id" json:"import_batch_id"`
	RespondentID  string          `db:"respondent_id" json:"respondent_id"`
	RollNumber    string          `db:"roll_number" json:"roll_number"`
	Name          string          `db:"name" json:"name"`
	Block         string          `db:"block" json:"block"`
	Year          int             `db:"year" json:"year"`
	Subject       string          `db:"subject" json:"subject"`
	TheoryMarks   decimal.Decimal `db:"theory_marks" json:"theory_marks"`
	PracticalMarks decimal.Decimal `db:"practical_marks" json:"practical_marks"`
	TotalMarks    decimal.Decimal `db:"total_marks" json:"total_marks"`
	Grade         string          `db:"grade" json:"grade"`
	ExamDate      time.Time       `db:"exam_date" json:"exam_date"`
	Status        ResultStatus    `db:"status" json:"status"`
	PublishedAt   *time.Time      `db:"published_at" json:"published_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

func (r *Result) IsPublished() bool {
	return r.PublishedAt != nil
}

// Validate checks the result's domain invariants against the student it
// resolves to. Violations come back as "field: message".
func (r *Result) Validate(student *Student) []string {
	var violations []string

	marks := []struct {
		field string
		value decimal.Decimal
	}{
		{"theory_marks", r.TheoryMarks},
		{"practical_marks", r.PracticalMarks},
		{"total_marks", r.TotalMarks},
	}
	for _, m := range marks {
		if m.value.IsNegative() {
			violations = append(violations, m.field+": marks cannot be negative.")
		}
	}

	expected := r.TheoryMarks.Add(r.PracticalMarks).Round(2)
	if !expected.Equal(r.TotalMarks.Round(2)) {
		violations = append(violations,
			"total_marks: total marks must equal theory plus practical marks.")
	}

	if student != nil && student.RollNumber != "" && r.RollNumber != "" {
		if !strings.EqualFold(student.RollNumber, r.RollNumber) {
			violations = append(violations,
				"roll_number: roll number does not match the linked student record.")
		}
	}

	return violations
}
