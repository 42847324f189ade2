package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/registry"
)

type StudentRepository struct {
	pool PgxPool
}

func NewStudentRepository(pool PgxPool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Register inserts student unless its reg_no is already known. The first
// registration wins; created reports whether this call inserted the row.
func (r *StudentRepository) Register(ctx context.Context, s domain.Student) (bool, error) {
	s, err := registry.Normalize(s)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO students (reg_no, name, class_name, parent_email, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err = r.pool.Exec(ctx, query, s.RegNo, s.Name, s.Class, s.ParentEmail)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, domain.ErrRegistryIO.WithError(fmt.Errorf("register student: %w", err))
	}

	return true, nil
}

func (r *StudentRepository) Get(ctx context.Context, regNo string) (domain.Student, error) {
	query := `
		SELECT reg_no, name, class_name, parent_email
		FROM students
		WHERE reg_no = $1
	`

	var s domain.Student
	err := r.pool.QueryRow(ctx, query, regNo).Scan(&s.RegNo, &s.Name, &s.Class, &s.ParentEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, domain.ErrRegistryIO.WithError(fmt.Errorf("get student: %w", err))
	}

	return s, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]domain.Student, error) {
	query := `
		SELECT reg_no, name, class_name, parent_email
		FROM students
		ORDER BY reg_no
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, domain.ErrRegistryIO.WithError(fmt.Errorf("list students: %w", err))
	}
	defer rows.Close()

	students := []domain.Student{}
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.RegNo, &s.Name, &s.Class, &s.ParentEmail); err != nil {
			return nil, domain.ErrRegistryIO.WithError(fmt.Errorf("scan student: %w", err))
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrRegistryIO.WithError(fmt.Errorf("list students: %w", err))
	}

	return students, nil
}
