package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"results-web/internal/models"
)

const (
	TypeImportCommit     = "import:commit"
	TypeAnalyticsCompute = "analytics:compute"
)

// ImportCommitPayload describes a queued commit of an uploaded feed.
// The file has already been validated by a preview and saved under the
// upload directory; JobID keys the progress and summary entries in
// Redis.
type ImportCommitPayload struct {
	JobID       string            `json:"job_id"`
	Kind        models.ImportKind `json:"kind"`
	FilePath    string            `json:"file_path"`
	Filename    string            `json:"filename"`
	Notes       string            `json:"notes"`
	StartedByID *int              `json:"started_by_id,omitempty"`
}

type AnalyticsComputePayload struct {
	Subject  string `json:"subject"`
	ExamDate string `json:"exam_date"`
}

func NewImportCommitTask(payload ImportCommitPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal import commit payload: %w", err)
	}
	return asynq.NewTask(TypeImportCommit, data), nil
}

// NewAnalyticsComputeTask builds a recompute task. Leave subject empty
// to recompute every subject sitting.
func NewAnalyticsComputeTask(payload AnalyticsComputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal analytics payload: %w", err)
	}
	return asynq.NewTask(TypeAnalyticsCompute, data), nil
}

// ImportJobStatusKey is where the worker publishes progress for a
// queued commit ("running", "completed", "failed").
func ImportJobStatusKey(jobID string) string {
	return fmt.Sprintf("import:job:%s:status", jobID)
}

// ImportJobSummaryKey is where the worker publishes the JSON summary of
// a finished commit.
func ImportJobSummaryKey(jobID string) string {
	return fmt.Sprintf("import:job:%s:summary", jobID)
}
