// Package filestore keeps each (class, date) ledger as one CSV file at
// <root>/<class>/<date>.csv.
//
// Every mutation is a read-modify-write of the whole file under the scope's
// lock, and the new content replaces the old file atomically. Readers take no
// lock: they always see a complete file.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/fsutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger/lock"
)

const ledgerExt = ".csv"

type Store struct {
	root   string
	locker lock.Locker
	loc    *time.Location
	logger *slog.Logger
}

// New stores ledgers under root. locker serialises writers; use lock.NewLocal
// for a single process.
func New(root string, locker lock.Locker, logger *slog.Logger) *Store {
	return &Store{
		root:   root,
		locker: locker,
		loc:    time.Local,
		logger: logger.With("component", "ledger"),
	}
}

// WithLocation sets the zone of timestamps in legacy files, which carry no offset.
func (s *Store) WithLocation(loc *time.Location) *Store {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Store) path(class, date string) string {
	return filepath.Join(s.root, class, date+ledgerExt)
}

func (s *Store) read(path, date string) (decoded, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return decoded{records: []domain.AttendanceRecord{}, canonical: true}, nil
	}
	if err != nil {
		return decoded{}, domain.ErrLedgerIO.WithError(err)
	}
	d, err := decode(bytes.NewReader(data), date, s.loc)
	if err != nil {
		return decoded{}, domain.ErrLedgerIO.WithError(err)
	}
	return d, nil
}

func (s *Store) write(path string, records []domain.AttendanceRecord) error {
	err := fsutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return encode(w, records)
	})
	if err != nil {
		return domain.ErrLedgerIO.WithError(err)
	}
	return nil
}

// lockScope acquires the scope lock, mapping failure to a ledger error.
func (s *Store) lockScope(ctx context.Context, class, date string) (func(), error) {
	release, err := s.locker.Lock(ctx, ledger.ScopeKey(class, date))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.ErrLedgerIO.WithError(err)
	}
	return release, nil
}

func (s *Store) Mark(ctx context.Context, class, date string, identity domain.Identity, at time.Time) (domain.MarkResult, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return domain.MarkResult{}, err
	}

	release, err := s.lockScope(ctx, class, date)
	if err != nil {
		return domain.MarkResult{}, err
	}
	defer release()

	path := s.path(class, date)
	d, err := s.read(path, date)
	if err != nil {
		return domain.MarkResult{}, err
	}

	for _, r := range d.records {
		if r.RegNo == identity.RegNo {
			return domain.MarkResult{Outcome: domain.MarkAlreadyPresent, Record: r}, nil
		}
	}

	rec := domain.AttendanceRecord{
		RegNo:     identity.RegNo,
		Name:      identity.Name,
		Status:    domain.StatusPresent,
		Timestamp: at.UTC(),
	}
	if err := s.write(path, append(d.records, rec)); err != nil {
		return domain.MarkResult{}, err
	}
	if !d.canonical {
		s.logger.Info("ledger migrated to canonical layout", "class", class, "date", date)
	}

	return domain.MarkResult{Outcome: domain.MarkCreated, Record: rec}, nil
}

func (s *Store) List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := s.read(s.path(class, date), date)
	if err != nil {
		return nil, err
	}
	return d.records, nil
}

func (s *Store) SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return domain.AttendanceRecord{}, err
	}

	release, err := s.lockScope(ctx, class, date)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	defer release()

	path := s.path(class, date)
	d, err := s.read(path, date)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}

	for i := range d.records {
		if d.records[i].RegNo != regNo {
			continue
		}
		d.records[i].Status = status
		if err := s.write(path, d.records); err != nil {
			return domain.AttendanceRecord{}, err
		}
		return d.records[i], nil
	}

	return domain.AttendanceRecord{}, domain.ErrRecordNotFound
}

func (s *Store) Dates(ctx context.Context, class string) ([]string, error) {
	if err := domain.ValidateClass(class); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, class))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, domain.ErrLedgerIO.WithError(err)
	}

	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ledgerExt {
			continue
		}
		date := strings.TrimSuffix(name, ledgerExt)
		if _, err := domain.ParseDate(date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Store) Classes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, domain.ErrLedgerIO.WithError(err)
	}

	classes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && domain.ValidateClass(e.Name()) == nil {
			classes = append(classes, e.Name())
		}
	}
	sort.Strings(classes)
	return classes, nil
}

var _ ledger.Store = (*Store)(nil)
