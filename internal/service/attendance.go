package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type Notifier interface {
	Notify(ctx context.Context, identity domain.Identity, status domain.Status, date string) domain.DeliveryResult
}

type Broadcaster interface {
	BroadcastToClass(class string, eventType ws.EventType, data any)
}

type ClassLister interface {
	Classes(ctx context.Context) ([]string, error)
}

// MarkOutcome is the result of marking a student. Delivery is set only when
// the mark created the record and a notifier is configured.
type MarkOutcome struct {
	domain.MarkResult
	Delivery *domain.DeliveryResult `json:"notification,omitempty"`
}

// AttendanceService owns the attendance ledgers: it marks students, notifies
// parents of new records and publishes changes to live watchers.
type AttendanceService struct {
	store    ledger.Store
	notifier Notifier
	hub      Broadcaster
	gallery  ClassLister
	audit    audit.Logger
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

func NewAttendanceService(store ledger.Store, logger *slog.Logger) *AttendanceService {
	return &AttendanceService{
		store:  store,
		audit:  &audit.NoOpLogger{},
		logger: logger.With("component", "attendance"),
		now:    time.Now,
		loc:    time.Local,
	}
}

func (s *AttendanceService) WithNotifier(n Notifier) *AttendanceService {
	s.notifier = n
	return s
}

func (s *AttendanceService) WithBroadcaster(b Broadcaster) *AttendanceService {
	s.hub = b
	return s
}

// WithGallery adds the enrollment classes to Classes.
func (s *AttendanceService) WithGallery(g ClassLister) *AttendanceService {
	s.gallery = g
	return s
}

func (s *AttendanceService) WithAudit(logger audit.Logger) *AttendanceService {
	s.audit = logger
	return s
}

// WithLocation sets the zone that decides which date "today" is.
func (s *AttendanceService) WithLocation(loc *time.Location) *AttendanceService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Today is the current date in the service location.
func (s *AttendanceService) Today() string {
	return s.now().In(s.loc).Format(domain.DateLayout)
}

// Mark records identity as present in the (class, date) ledger. A student
// already on the ledger is reported as MarkAlreadyPresent and nothing is
// written or sent. A new record triggers exactly one parent notification;
// its failure is reported in the outcome and never undoes the record.
func (s *AttendanceService) Mark(ctx context.Context, class, date string, identity domain.Identity) (*MarkOutcome, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	identity = identity.Normalized()
	if err := domain.ValidateRegNo(identity.RegNo); err != nil {
		return nil, err
	}
	if err := ledger.ValidateScope(class, date); err != nil {
		return nil, err
	}

	result, err := s.store.Mark(ctx, class, date, identity, s.now())
	if err != nil {
		err = ledgerError(err)
		s.record(ctx, audit.EventAttendanceMarked, class, date, identity.RegNo, nil, err)
		return nil, err
	}

	outcome := &MarkOutcome{MarkResult: result}
	if !result.Created() {
		s.logger.Debug("already present", "class", class, "date", date, "reg_no", identity.RegNo)
		return outcome, nil
	}

	s.logger.Info("attendance marked", "class", class, "date", date, "reg_no", identity.RegNo)

	if s.notifier != nil {
		delivery := s.notifier.Notify(ctx, result.Record.Identity(), domain.StatusPresent, date)
		outcome.Delivery = &delivery
	}

	s.publish(class, ws.EventAttendanceMarked, date, result.Record)

	meta := map[string]string{"status": string(result.Record.Status)}
	if outcome.Delivery != nil {
		meta["notification"] = string(outcome.Delivery.Outcome)
	}
	s.record(ctx, audit.EventAttendanceMarked, class, date, identity.RegNo, meta, nil)

	return outcome, nil
}

// List returns the records of one ledger in write order.
func (s *AttendanceService) List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, class, date)
	if err != nil {
		return nil, ledgerError(err)
	}
	return records, nil
}

// SetStatus overwrites the status of an existing record. No notification is
// sent.
func (s *AttendanceService) SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error) {
	if err := ledger.ValidateScope(class, date); err != nil {
		return domain.AttendanceRecord{}, err
	}
	regNo = strings.TrimSpace(regNo)
	if err := domain.ValidateRegNo(regNo); err != nil {
		return domain.AttendanceRecord{}, err
	}
	if _, err := domain.ParseStatus(string(status)); err != nil {
		return domain.AttendanceRecord{}, err
	}

	record, err := s.store.SetStatus(ctx, class, date, regNo, status)
	if err != nil {
		err = ledgerError(err)
		s.record(ctx, audit.EventAttendanceUpdated, class, date, regNo, nil, err)
		return domain.AttendanceRecord{}, err
	}

	s.logger.Info("attendance updated", "class", class, "date", date, "reg_no", regNo, "status", status)
	s.publish(class, ws.EventAttendanceUpdated, date, record)
	s.record(ctx, audit.EventAttendanceUpdated, class, date, regNo, map[string]string{"status": string(status)}, nil)

	return record, nil
}

// Dates lists the dates with a ledger for class, ascending.
func (s *AttendanceService) Dates(ctx context.Context, class string) ([]string, error) {
	if err := domain.ValidateClass(class); err != nil {
		return nil, err
	}
	dates, err := s.store.Dates(ctx, class)
	if err != nil {
		return nil, ledgerError(err)
	}
	return dates, nil
}

// Classes lists every class that has enrollments or a ledger, ascending.
func (s *AttendanceService) Classes(ctx context.Context) ([]string, error) {
	classes, err := s.store.Classes(ctx)
	if err != nil {
		return nil, ledgerError(err)
	}

	seen := make(map[string]bool, len(classes))
	for _, c := range classes {
		seen[c] = true
	}

	if s.gallery != nil {
		enrolled, err := s.gallery.Classes(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range enrolled {
			if !seen[c] {
				seen[c] = true
				classes = append(classes, c)
			}
		}
	}

	sort.Strings(classes)
	return classes, nil
}

type recordEvent struct {
	Date string `json:"date"`
	domain.AttendanceRecord
}

func (s *AttendanceService) publish(class string, eventType ws.EventType, date string, record domain.AttendanceRecord) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToClass(class, eventType, recordEvent{Date: date, AttendanceRecord: record})
}

func (s *AttendanceService) record(ctx context.Context, eventType audit.EventType, class, date, regNo string, meta map[string]string, err error) {
	event := audit.Event{
		EventType: eventType,
		Class:     class,
		Date:      date,
		RegNo:     regNo,
		Success:   err == nil,
		Metadata:  meta,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.audit.Log(ctx, event)
}

// ledgerError keeps domain errors and context errors as they are and turns
// anything else into domain.ErrLedgerIO.
func ledgerError(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ErrLedgerIO.WithError(err)
}
