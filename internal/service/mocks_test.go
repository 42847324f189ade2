package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte) (domain.FaceEncoding, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.FaceEncoding), args.Error(1)
}

func (m *MockExtractor) ModelID() string { return "mock" }

type MockGallery struct {
	mock.Mock
}

func (m *MockGallery) Load(ctx context.Context, class string) (domain.Gallery, error) {
	args := m.Called(ctx, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Gallery), args.Error(1)
}

func (m *MockGallery) Enroll(ctx context.Context, class string, identity domain.Identity, data []byte) (*domain.Enrollment, error) {
	args := m.Called(ctx, class, identity, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enrollment), args.Error(1)
}

func (m *MockGallery) Students(ctx context.Context, class string) ([]domain.Enrollment, error) {
	args := m.Called(ctx, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Enrollment), args.Error(1)
}

func (m *MockGallery) Classes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Mark(ctx context.Context, class, date string, identity domain.Identity, at time.Time) (domain.MarkResult, error) {
	args := m.Called(ctx, class, date, identity, at)
	return args.Get(0).(domain.MarkResult), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, class, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

func (m *MockStore) SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error) {
	args := m.Called(ctx, class, date, regNo, status)
	return args.Get(0).(domain.AttendanceRecord), args.Error(1)
}

func (m *MockStore) Dates(ctx context.Context, class string) ([]string, error) {
	args := m.Called(ctx, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Classes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Register(ctx context.Context, s domain.Student) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) Get(ctx context.Context, regNo string) (domain.Student, error) {
	args := m.Called(ctx, regNo)
	return args.Get(0).(domain.Student), args.Error(1)
}

func (m *MockRegistry) List(ctx context.Context) ([]domain.Student, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Student), args.Error(1)
}

// countingNotifier records every notification it is asked to send.
type countingNotifier struct {
	mu    sync.Mutex
	calls []domain.Identity
	res   domain.DeliveryResult
}

func (n *countingNotifier) Notify(_ context.Context, identity domain.Identity, _ domain.Status, _ string) domain.DeliveryResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, identity)
	return n.res
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type published struct {
	class     string
	eventType ws.EventType
	data      any
}

type recordingHub struct {
	mu     sync.Mutex
	events []published
}

func (h *recordingHub) BroadcastToClass(class string, eventType ws.EventType, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, published{class: class, eventType: eventType, data: data})
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAudit) Log(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}
