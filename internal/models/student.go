package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// StudentStatus is the roster lifecycle state of a student
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusGraduated StudentStatus = "graduated"
	StudentStatusSuspended StudentStatus = "suspended"
)

// NormalizeStudentStatus maps raw feed input to a known status value.
// Blank or unrecognized input defaults to active.
func NormalizeStudentStatus(raw string) StudentStatus {
	switch StudentStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StudentStatusActive:
		return StudentStatusActive
	case StudentStatusInactive:
		return StudentStatusInactive
	case StudentStatusGraduated:
		return StudentStatusGraduated
	case StudentStatusSuspended:
		return StudentStatusSuspended
	default:
		return StudentStatusActive
	}
}

type Student struct {
	ID            int64         `db:"id" json:"id"`
	RollNumber    string        `db:"roll_number" json:"roll_number"`
	FirstName     string        `db:"first_name" json:"first_name"`
	LastName      string        `db:"last_name" json:"last_name"`
	DisplayName   string        `db:"display_name" json:"display_name"`
	OfficialEmail string        `db:"official_email" json:"official_email"`
	RecoveryEmail string        `db:"recovery_email" json:"recovery_email"`
	BatchCode     string        `db:"batch_code" json:"batch_code"`
	Status        StudentStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

func (s *Student) IsActive() bool {
	return s.Status == StudentStatusActive
}

var (
	rollNumberPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Validate checks the student's field-level invariants against the
// configured workspace domain. It never touches storage; uniqueness is
// the resolver's concern. Violations come back as "field: message".
func (s *Student) Validate(workspaceDomain string) []string {
	var violations []string

	if s.RollNumber != "" && !rollNumberPattern.MatchString(s.RollNumber) {
		violations = append(violations,
			"roll_number: may only contain letters, numbers, dashes or underscores.")
	}

	if s.OfficialEmail == "" {
		violations = append(violations, "official_email: this field is required.")
	} else if !emailPattern.MatchString(s.OfficialEmail) {
		violations = append(violations, "official_email: enter a valid email address.")
	} else {
		domain := s.OfficialEmail[strings.LastIndex(s.OfficialEmail, "@")+1:]
		allowed := strings.ToLower(workspaceDomain)
		if strings.ToLower(domain) != allowed {
			violations = append(violations,
				fmt.Sprintf("official_email: must belong to %s.", allowed))
		}
	}

	if s.RecoveryEmail != "" && !emailPattern.MatchString(s.RecoveryEmail) {
		violations = append(violations, "recovery_email: enter a valid email address.")
	}

	return violations
}
