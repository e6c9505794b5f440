package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubjectAggregate holds computed statistics for one (subject, exam_date)
// slice of published results.
type SubjectAggregate struct {
	ID            int64               `db:"id" json:"id"`
	Subject       string              `db:"subject" json:"subject"`
	ExamDate      time.Time           `db:"exam_date" json:"exam_date"`
	TotalStudents int                 `db:"total_students" json:"total_students"`
	MeanScore     decimal.NullDecimal `db:"mean_score" json:"mean_score"`
	MedianScore   decimal.NullDecimal `db:"median_score" json:"median_score"`
	StdDev        decimal.NullDecimal `db:"std_dev" json:"std_dev"`
	MinScore      decimal.NullDecimal `db:"min_score" json:"min_score"`
	MaxScore      decimal.NullDecimal `db:"max_score" json:"max_score"`
	PassCount     int                 `db:"pass_count" json:"pass_count"`
	FailCount     int                 `db:"fail_count" json:"fail_count"`
	PassRate      decimal.NullDecimal `db:"pass_rate" json:"pass_rate"`
	GradeACount   int                 `db:"grade_a_count" json:"grade_a_count"`
	GradeBCount   int                 `db:"grade_b_count" json:"grade_b_count"`
	GradeCCount   int                 `db:"grade_c_count" json:"grade_c_count"`
	GradeDCount   int                 `db:"grade_d_count" json:"grade_d_count"`
	GradeFCount   int                 `db:"grade_f_count" json:"grade_f_count"`
	ComputedAt    time.Time           `db:"computed_at" json:"computed_at"`
}

// AnomalyFlag marks a result whose total deviates suspiciously from its
// subject cohort.
type AnomalyFlag struct {
	ID        int64           `db:"id" json:"id"`
	ResultID  int64           `db:"result_id" json:"result_id"`
	Reason    string          `db:"reason" json:"reason"`
	ZScore    decimal.Decimal `db:"z_score" json:"z_score"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
