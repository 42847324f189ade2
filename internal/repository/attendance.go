package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
)

// AttendanceRepository is the Postgres ledger. One row per
// (class_name, date, reg_no), enforced by a unique constraint.
type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) Mark(ctx context.Context, class, date string, identity domain.Identity, at time.Time) (domain.MarkResult, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return domain.MarkResult{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.MarkResult{}, ioError("begin mark", err)
	}
	defer tx.Rollback(ctx)

	// Serialises marks on one scope across connections until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ledger.ScopeKey(class, date)); err != nil {
		return domain.MarkResult{}, ioError("lock scope", err)
	}

	insert := `
		INSERT INTO attendance_records (class_name, date, reg_no, name, status, marked_at)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		ON CONFLICT (class_name, date, reg_no) DO NOTHING
		RETURNING reg_no, name, status, marked_at
	`

	result := domain.MarkResult{Outcome: domain.MarkCreated}
	err = scanRecord(tx.QueryRow(ctx, insert,
		class, date, identity.RegNo, identity.Name, string(domain.StatusPresent), at.UTC(),
	), &result.Record)

	if errors.Is(err, pgx.ErrNoRows) {
		existing := `
			SELECT reg_no, name, status, marked_at
			FROM attendance_records
			WHERE class_name = $1 AND date = $2::date AND reg_no = $3
		`
		result.Outcome = domain.MarkAlreadyPresent
		err = scanRecord(tx.QueryRow(ctx, existing, class, date, identity.RegNo), &result.Record)
	}
	if err != nil {
		return domain.MarkResult{}, ioError("mark attendance", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.MarkResult{}, ioError("commit mark", err)
	}

	return result, nil
}

func (r *AttendanceRepository) List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return nil, err
	}

	query := `
		SELECT reg_no, name, status, marked_at
		FROM attendance_records
		WHERE class_name = $1 AND date = $2::date
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, class, date)
	if err != nil {
		return nil, ioError("list attendance", err)
	}
	defer rows.Close()

	records := []domain.AttendanceRecord{}
	for rows.Next() {
		var rec domain.AttendanceRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, ioError("scan attendance", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("list attendance", err)
	}

	return records, nil
}

func (r *AttendanceRepository) SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return domain.AttendanceRecord{}, err
	}

	query := `
		UPDATE attendance_records
		SET status = $4
		WHERE class_name = $1 AND date = $2::date AND reg_no = $3
		RETURNING reg_no, name, status, marked_at
	`

	var rec domain.AttendanceRecord
	err := scanRecord(r.pool.QueryRow(ctx, query, class, date, regNo, string(status)), &rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttendanceRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.AttendanceRecord{}, ioError("set attendance status", err)
	}

	return rec, nil
}

func (r *AttendanceRepository) Dates(ctx context.Context, class string) ([]string, error) {
	if err := domain.ValidateClass(class); err != nil {
		return nil, err
	}

	query := `
		SELECT DISTINCT to_char(date, 'YYYY-MM-DD') AS day
		FROM attendance_records
		WHERE class_name = $1
		ORDER BY day
	`
	return r.column(ctx, "list attendance dates", query, class)
}

func (r *AttendanceRepository) Classes(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT class_name FROM attendance_records ORDER BY class_name`
	return r.column(ctx, "list attendance classes", query)
}

func (r *AttendanceRepository) column(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, ioError(op, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, ioError(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, rec *domain.AttendanceRecord) error {
	var status string
	if err := row.Scan(&rec.RegNo, &rec.Name, &status, &rec.Timestamp); err != nil {
		return err
	}
	rec.Status = domain.Status(status)
	rec.Timestamp = rec.Timestamp.UTC()
	return nil
}

func ioError(op string, err error) error {
	return domain.ErrLedgerIO.WithError(fmt.Errorf("%s: %w", op, err))
}
