package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"results-web/internal/models"
)

var resultRequiredColumns = []string{
	"roll_no",
	"name",
	"block",
	"year",
	"subject",
	"written_marks",
	"viva_marks",
	"total_marks",
	"grade",
	"exam_date",
}

// ResultStrategy imports the results feed. Natural key is
// (student, subject, exam date); a row whose student cannot be resolved
// is a hard per-row error, never a create.
//
// The feed still speaks the legacy written/viva column names; this is
// the one place they are mapped onto the canonical theory/practical
// schema.
type ResultStrategy struct {
	students StudentStore
	results  ResultStore
}

func NewResultStrategy(students StudentStore, results ResultStore) *ResultStrategy {
	return &ResultStrategy{students: students, results: results}
}

func (s *ResultStrategy) Kind() models.ImportKind {
	return models.ImportKindResults
}

func (s *ResultStrategy) RequiredColumns() []string {
	return resultRequiredColumns
}

type resultState struct {
	keys keySet
}

func (s *ResultStrategy) NewState() any {
	return &resultState{keys: keySet{}}
}

type resultPayload struct {
	result  models.Result
	student *models.Student
}

func (s *ResultStrategy) ParseRow(state any, row map[string]string) (any, []string) {
	st := state.(*resultState)

	var rowErrors []string
	for _, column := range resultRequiredColumns {
		if row[column] == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("%s is required.", column))
		}
	}
	if len(rowErrors) > 0 {
		return nil, rowErrors
	}

	year, err := strconv.Atoi(row["year"])
	if err != nil {
		rowErrors = append(rowErrors, "year must be an integer.")
	}

	examDate, err := time.Parse("2006-01-02", row["exam_date"])
	if err != nil {
		rowErrors = append(rowErrors, "exam_date must be in YYYY-MM-DD format.")
	}

	theory := parseMarks(row["written_marks"], "written_marks", &rowErrors)
	practical := parseMarks(row["viva_marks"], "viva_marks", &rowErrors)
	total := parseMarks(row["total_marks"], "total_marks", &rowErrors)

	if len(rowErrors) > 0 {
		return nil, rowErrors
	}

	key := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(row["roll_no"]),
		strings.ToLower(row["subject"]),
		examDate.Format("2006-01-02"))
	if st.keys.seen(key) {
		return nil, []string{"Duplicate roll_no/subject/exam_date combination within file."}
	}

	return &resultPayload{result: models.Result{
		RespondentID:   row["respondent_id"],
		RollNumber:     row["roll_no"],
		Name:           row["name"],
		Block:          row["block"],
		Year:           year,
		Subject:        row["subject"],
		TheoryMarks:    theory,
		PracticalMarks: practical,
		TotalMarks:     total,
		Grade:          row["grade"],
		ExamDate:       examDate,
		Status:         models.ResultStatusDraft,
	}}, nil
}

func parseMarks(value, field string, rowErrors *[]string) decimal.Decimal {
	marks, err := decimal.NewFromString(value)
	if err != nil {
		*rowErrors = append(*rowErrors, fmt.Sprintf("%s must be a numeric value.", field))
		return decimal.Zero
	}
	return marks
}

func (s *ResultStrategy) ResolveExisting(ctx context.Context, payload any) (any, []string, error) {
	p := payload.(*resultPayload)

	student, err := s.students.FindByRollNumber(ctx, p.result.RollNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve student %q: %w", p.result.RollNumber, err)
	}
	if student == nil {
		// A result cannot exist without a known student.
		return nil, []string{fmt.Sprintf("Student with roll number %s not found.", p.result.RollNumber)}, nil
	}
	p.student = student
	p.result.StudentID = student.ID

	result, err := s.results.FindByNaturalKey(ctx, student.ID, p.result.Subject, p.result.ExamDate)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve result for %q/%s: %w", p.result.RollNumber, p.result.Subject, err)
	}
	if result == nil {
		return nil, nil, nil
	}
	return result, nil, nil
}

func (s *ResultStrategy) Validate(ctx context.Context, existing, payload any) ([]string, error) {
	p := payload.(*resultPayload)
	candidate := p.result
	return candidate.Validate(p.student), nil
}

func (s *ResultStrategy) Diff(existing, payload any) ChangeSet {
	current := existing.(*models.Result)
	candidate := payload.(*resultPayload).result

	var changes ChangeSet
	appendChange := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, FieldChange{Field: field, Old: oldValue, New: newValue})
		}
	}

	appendChange("respondent_id", current.RespondentID, candidate.RespondentID)
	appendChange("roll_no", current.RollNumber, candidate.RollNumber)
	appendChange("name", current.Name, candidate.Name)
	appendChange("block", current.Block, candidate.Block)
	appendChange("year", strconv.Itoa(current.Year), strconv.Itoa(candidate.Year))
	appendChange("subject", current.Subject, candidate.Subject)
	appendMarksChange := func(field string, oldValue, newValue decimal.Decimal) {
		if !oldValue.Equal(newValue) {
			changes = append(changes, FieldChange{Field: field, Old: oldValue.StringFixed(2), New: newValue.StringFixed(2)})
		}
	}
	appendMarksChange("written_marks", current.TheoryMarks, candidate.TheoryMarks)
	appendMarksChange("viva_marks", current.PracticalMarks, candidate.PracticalMarks)
	appendMarksChange("total_marks", current.TotalMarks, candidate.TotalMarks)
	appendChange("grade", current.Grade, candidate.Grade)
	appendChange("exam_date", current.ExamDate.Format("2006-01-02"), candidate.ExamDate.Format("2006-01-02"))

	return changes
}

// Persist writes result rows in draft-equivalent state only; workflow
// status transitions belong to the status service, never the importer.
func (s *ResultStrategy) Persist(ctx context.Context, batch *models.ImportBatch, existing, payload any, changes ChangeSet) error {
	candidate := payload.(*resultPayload).result
	candidate.ImportBatchID = batch.ID

	if existing == nil {
		if err := s.results.Create(ctx, &candidate); err != nil {
			return fmt.Errorf("create result %s/%s: %w", candidate.RollNumber, candidate.Subject, err)
		}
		return nil
	}

	current := existing.(*models.Result)
	current.ImportBatchID = batch.ID
	current.RespondentID = candidate.RespondentID
	current.RollNumber = candidate.RollNumber
	current.Name = candidate.Name
	current.Block = candidate.Block
	current.Year = candidate.Year
	current.Subject = candidate.Subject
	current.TheoryMarks = candidate.TheoryMarks
	current.PracticalMarks = candidate.PracticalMarks
	current.TotalMarks = candidate.TotalMarks
	current.Grade = candidate.Grade
	current.ExamDate = candidate.ExamDate
	if err := s.results.Update(ctx, current); err != nil {
		return fmt.Errorf("update result %s/%s: %w", current.RollNumber, current.Subject, err)
	}
	return nil
}
