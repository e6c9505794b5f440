package importer

import (
	"context"
	"fmt"
	"strings"

	"results-web/internal/models"
)

var studentRequiredColumns = []string{
	"roll_no",
	"first_name",
	"last_name",
	"display_name",
	"official_email",
}

// StudentStrategy imports the roster feed. Natural key is the roll
// number; the official email doubles as a secondary unique key.
type StudentStrategy struct {
	students        StudentStore
	workspaceDomain string
}

func NewStudentStrategy(students StudentStore, workspaceDomain string) *StudentStrategy {
	return &StudentStrategy{students: students, workspaceDomain: workspaceDomain}
}

func (s *StudentStrategy) Kind() models.ImportKind {
	return models.ImportKindStudents
}

func (s *StudentStrategy) RequiredColumns() []string {
	return studentRequiredColumns
}

type studentState struct {
	rollNumbers keySet
	emails      keySet
}

func (s *StudentStrategy) NewState() any {
	return &studentState{rollNumbers: keySet{}, emails: keySet{}}
}

type studentPayload struct {
	student models.Student
}

func (s *StudentStrategy) ParseRow(state any, row map[string]string) (any, []string) {
	st := state.(*studentState)
	var rowErrors []string

	rollNumber := row["roll_no"]
	if rollNumber == "" {
		rowErrors = append(rowErrors, "roll_no is required.")
	} else if st.rollNumbers.seen(strings.ToLower(rollNumber)) {
		rowErrors = append(rowErrors, "Duplicate roll_no found within file.")
	}

	officialEmail := strings.ToLower(row["official_email"])
	if officialEmail == "" {
		rowErrors = append(rowErrors, "official_email is required.")
	} else if st.emails.seen(officialEmail) {
		rowErrors = append(rowErrors, "Duplicate official_email found within file.")
	}

	for _, column := range []string{"first_name", "last_name", "display_name"} {
		if row[column] == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("%s is required.", column))
		}
	}

	if len(rowErrors) > 0 {
		return nil, rowErrors
	}

	return &studentPayload{student: models.Student{
		RollNumber:    rollNumber,
		FirstName:     row["first_name"],
		LastName:      row["last_name"],
		DisplayName:   row["display_name"],
		OfficialEmail: officialEmail,
		RecoveryEmail: row["recovery_email"],
		BatchCode:     row["batch_code"],
		Status:        models.NormalizeStudentStatus(row["status"]),
	}}, nil
}

func (s *StudentStrategy) ResolveExisting(ctx context.Context, payload any) (any, []string, error) {
	p := payload.(*studentPayload)
	student, err := s.students.FindByRollNumber(ctx, p.student.RollNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve student %q: %w", p.student.RollNumber, err)
	}
	if student == nil {
		// Absence is a normal outcome for roster rows: the row creates.
		return nil, nil, nil
	}
	return student, nil, nil
}

func (s *StudentStrategy) Validate(ctx context.Context, existing, payload any) ([]string, error) {
	p := payload.(*studentPayload)

	// The candidate is a value copy; failed validation never taints the
	// resolved record or the payload.
	candidate := p.student
	violations := candidate.Validate(s.workspaceDomain)

	owner, err := s.students.FindByOfficialEmail(ctx, candidate.OfficialEmail)
	if err != nil {
		return nil, fmt.Errorf("check official_email uniqueness: %w", err)
	}
	if owner != nil {
		current, _ := existing.(*models.Student)
		if current == nil || owner.ID != current.ID {
			violations = append(violations, "official_email: already assigned to another student.")
		}
	}

	return violations, nil
}

var studentTrackedFields = []string{
	"first_name",
	"last_name",
	"display_name",
	"official_email",
	"recovery_email",
	"batch_code",
	"status",
}

func (s *StudentStrategy) Diff(existing, payload any) ChangeSet {
	current := existing.(*models.Student)
	candidate := payload.(*studentPayload).student

	oldValues := studentFieldValues(current)
	newValues := studentFieldValues(&candidate)

	var changes ChangeSet
	for _, field := range studentTrackedFields {
		if oldValues[field] != newValues[field] {
			changes = append(changes, FieldChange{Field: field, Old: oldValues[field], New: newValues[field]})
		}
	}
	return changes
}

func (s *StudentStrategy) Persist(ctx context.Context, batch *models.ImportBatch, existing, payload any, changes ChangeSet) error {
	candidate := payload.(*studentPayload).student

	if existing == nil {
		if err := s.students.Create(ctx, &candidate); err != nil {
			return fmt.Errorf("create student %q: %w", candidate.RollNumber, err)
		}
		return nil
	}

	current := existing.(*models.Student)
	current.FirstName = candidate.FirstName
	current.LastName = candidate.LastName
	current.DisplayName = candidate.DisplayName
	current.OfficialEmail = candidate.OfficialEmail
	current.RecoveryEmail = candidate.RecoveryEmail
	current.BatchCode = candidate.BatchCode
	current.Status = candidate.Status
	if err := s.students.Update(ctx, current); err != nil {
		return fmt.Errorf("update student %q: %w", current.RollNumber, err)
	}
	return nil
}

func studentFieldValues(student *models.Student) map[string]string {
	return map[string]string{
		"first_name":     student.FirstName,
		"last_name":      student.LastName,
		"display_name":   student.DisplayName,
		"official_email": student.OfficialEmail,
		"recovery_email": student.RecoveryEmail,
		"batch_code":     student.BatchCode,
		"status":         string(student.Status),
	}
}
