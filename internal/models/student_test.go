package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStudent() Student {
	return Student{
		RollNumber:    "PMC-100",
		FirstName:     "Ayesha",
		LastName:      "Khan",
		DisplayName:   "Ayesha Khan",
		OfficialEmail: "ayesha.khan@pmc.edu.pk",
		Status:        StudentStatusActive,
	}
}

func TestStudentValidatePasses(t *testing.T) {
	student := validStudent()
	assert.Empty(t, student.Validate("pmc.edu.pk"))
}

func TestStudentValidateRejectsForeignDomain(t *testing.T) {
	student := validStudent()
	student.OfficialEmail = "ayesha.khan@gmail.com"

	violations := student.Validate("pmc.edu.pk")
	require.Len(t, violations, 1)
	assert.Equal(t, "official_email: must belong to pmc.edu.pk.", violations[0])
}

func TestStudentValidateDomainIsCaseInsensitive(t *testing.T) {
	student := validStudent()
	student.OfficialEmail = "ayesha.khan@PMC.EDU.PK"

	assert.Empty(t, student.Validate("pmc.edu.pk"))
}

func TestStudentValidateRejectsBadRollNumber(t *testing.T) {
	student := validStudent()
	student.RollNumber = "PMC 100"

	violations := student.Validate("pmc.edu.pk")
	assert.Contains(t, violations,
		"roll_number: may only contain letters, numbers, dashes or underscores.")
}

func TestStudentValidateRejectsMalformedEmails(t *testing.T) {
	student := validStudent()
	student.OfficialEmail = "not-an-email"
	student.RecoveryEmail = "also bad"

	violations := student.Validate("pmc.edu.pk")
	assert.Contains(t, violations, "official_email: enter a valid email address.")
	assert.Contains(t, violations, "recovery_email: enter a valid email address.")
}

func TestNormalizeStudentStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want StudentStatus
	}{
		{"active", StudentStatusActive},
		{" GRADUATED ", StudentStatusGraduated},
		{"suspended", StudentStatusSuspended},
		{"", StudentStatusActive},
		{"on sabbatical", StudentStatusActive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStudentStatus(tt.raw), "raw %q", tt.raw)
	}
}
