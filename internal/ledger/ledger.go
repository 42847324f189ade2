// Package ledger defines the per-(class, date) attendance record store.
//
// A ledger holds at most one record per registration number. Mark is
// idempotent: a second call for the same student returns the existing record
// with MarkAlreadyPresent and writes nothing. Implementations serialise all
// mutations of one scope so concurrent marks never both observe "absent".
package ledger

import (
	"context"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type Store interface {
	// Mark records identity as present at the given instant unless a record
	// for its RegNo already exists.
	Mark(ctx context.Context, class, date string, identity domain.Identity, at time.Time) (domain.MarkResult, error)
	// List returns the records of one ledger in write order.
	List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error)
	// SetStatus overwrites the status of one record and nothing else.
	SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error)
	// Dates lists the dates that have a ledger for class, ascending.
	Dates(ctx context.Context, class string) ([]string, error)
	// Classes lists classes with at least one ledger, ascending.
	Classes(ctx context.Context) ([]string, error)
}

// ValidateScope checks the (class, date) pair naming one ledger.
func ValidateScope(class, date string) error {
	if err := domain.ValidateClass(class); err != nil {
		return err
	}
	_, err := domain.ParseDate(date)
	return err
}

// ScopeKey is the lock key of one ledger.
func ScopeKey(class, date string) string {
	return class + "/" + date
}
