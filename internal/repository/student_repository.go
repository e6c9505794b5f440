package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"results-web/internal/models"
)

type StudentRepository struct {
	db sqlx.ExtContext
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
// Commit runs use this so the whole pass is atomic.
func (r *StudentRepository) WithTx(tx *sqlx.Tx) *StudentRepository {
	return &StudentRepository{db: tx}
}

const studentColumns = `id, roll_number, first_name, last_name, display_name,
	official_email, COALESCE(recovery_email, '') AS recovery_email,
	COALESCE(batch_code, '') AS batch_code, status, created_at, updated_at`

// FindByRollNumber resolves a student by roll number, case-insensitively.
// Absence is a normal outcome: returns (nil, nil) when no row matches.
func (r *StudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	var student models.Student
	query := fmt.Sprintf("SELECT %s FROM students WHERE LOWER(roll_number) = LOWER(?) LIMIT 1", studentColumns)
	err := sqlx.GetContext(ctx, r.db, &student, query, rollNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByOfficialEmail resolves a student by official email, case-insensitively.
// Returns (nil, nil) when no row matches.
func (r *StudentRepository) FindByOfficialEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	query := fmt.Sprintf("SELECT %s FROM students WHERE LOWER(official_email) = LOWER(?) LIMIT 1", studentColumns)
	err := sqlx.GetContext(ctx, r.db, &student, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs loads students keyed by id. Missing ids are simply absent
// from the map.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Student, error) {
	byID := make(map[int64]models.Student, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM students WHERE id IN (?)", studentColumns), ids)
	if err != nil {
		return nil, err
	}

	var students []models.Student
	if err := sqlx.SelectContext(ctx, r.db, &students, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, s := range students {
		byID[s.ID] = s
	}
	return byID, nil
}

func (r *StudentRepository) FindAll(ctx context.Context, limit, offset int, search string) ([]models.Student, int, error) {
	var students []models.Student
	var total int

	whereClause := ""
	args := []interface{}{}

	if search != "" {
		whereClause = "WHERE roll_number LIKE ? OR display_name LIKE ? OR official_email LIKE ?"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students %s", whereClause)
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM students %s ORDER BY roll_number LIMIT ? OFFSET ?`,
		studentColumns, whereClause)
	args = append(args, limit, offset)
	if err := sqlx.SelectContext(ctx, r.db, &students, query, args...); err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `INSERT INTO students
	          (roll_number, first_name, last_name, display_name, official_email, recovery_email, batch_code, status)
	          VALUES (:roll_number, :first_name, :last_name, :display_name, :official_email, :recovery_email, :batch_code, :status)`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, student)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	student.ID = id
	return nil
}

func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `UPDATE students SET roll_number = :roll_number, first_name = :first_name,
	          last_name = :last_name, display_name = :display_name, official_email = :official_email,
	          recovery_email = :recovery_email, batch_code = :batch_code, status = :status
	          WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, r.db, query, student)
	return err
}

func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM students")
	return total, err
}
