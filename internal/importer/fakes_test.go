package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"results-web/internal/models"
)

// In-memory stores backing the engine tests. Lookups are
// case-insensitive like the SQL implementations and return (nil, nil)
// when absent.

type fakeBatchStore struct {
	batches []*models.ImportBatch
	nextID  int64
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{nextID: 1}
}

func (s *fakeBatchStore) Create(_ context.Context, batch *models.ImportBatch) error {
	batch.ID = s.nextID
	s.nextID++
	stored := *batch
	s.batches = append(s.batches, &stored)
	return nil
}

func (s *fakeBatchStore) FinalizeCounts(_ context.Context, batch *models.ImportBatch) error {
	for _, stored := range s.batches {
		if stored.ID == batch.ID {
			stored.RowCount = batch.RowCount
			stored.CreatedRows = batch.CreatedRows
			stored.UpdatedRows = batch.UpdatedRows
			stored.SkippedRows = batch.SkippedRows
		}
	}
	return nil
}

func (s *fakeBatchStore) MarkCompleted(_ context.Context, batch *models.ImportBatch) error {
	if !batch.MarkCompleted(time.Now()) {
		return nil
	}
	for _, stored := range s.batches {
		if stored.ID == batch.ID {
			stored.CompletedAt = batch.CompletedAt
			stored.IsDryRun = false
		}
	}
	return nil
}

type fakeStudentStore struct {
	students map[string]*models.Student
	nextID   int64
	creates  int
	updates  int
}

func newFakeStudentStore() *fakeStudentStore {
	return &fakeStudentStore{students: map[string]*models.Student{}, nextID: 1}
}

func (s *fakeStudentStore) FindByRollNumber(_ context.Context, rollNumber string) (*models.Student, error) {
	student, ok := s.students[strings.ToLower(rollNumber)]
	if !ok {
		return nil, nil
	}
	copied := *student
	return &copied, nil
}

func (s *fakeStudentStore) FindByOfficialEmail(_ context.Context, email string) (*models.Student, error) {
	for _, student := range s.students {
		if strings.EqualFold(student.OfficialEmail, email) {
			copied := *student
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStudentStore) Create(_ context.Context, student *models.Student) error {
	student.ID = s.nextID
	s.nextID++
	s.creates++
	stored := *student
	s.students[strings.ToLower(student.RollNumber)] = &stored
	return nil
}

func (s *fakeStudentStore) Update(_ context.Context, student *models.Student) error {
	s.updates++
	stored := *student
	s.students[strings.ToLower(student.RollNumber)] = &stored
	return nil
}

type fakeResultStore struct {
	results map[string]*models.Result
	nextID  int64
	creates int
	updates int
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: map[string]*models.Result{}, nextID: 1}
}

func resultKey(studentID int64, subject string, examDate time.Time) string {
	return fmt.Sprintf("%d|%s|%s", studentID, strings.ToLower(subject), examDate.Format("2006-01-02"))
}

func (s *fakeResultStore) FindByNaturalKey(_ context.Context, studentID int64, subject string, examDate time.Time) (*models.Result, error) {
	result, ok := s.results[resultKey(studentID, subject, examDate)]
	if !ok {
		return nil, nil
	}
	copied := *result
	return &copied, nil
}

func (s *fakeResultStore) Create(_ context.Context, result *models.Result) error {
	result.ID = s.nextID
	s.nextID++
	s.creates++
	stored := *result
	s.results[resultKey(result.StudentID, result.Subject, result.ExamDate)] = &stored
	return nil
}

func (s *fakeResultStore) Update(_ context.Context, result *models.Result) error {
	s.updates++
	stored := *result
	s.results[resultKey(result.StudentID, result.Subject, result.ExamDate)] = &stored
	return nil
}
