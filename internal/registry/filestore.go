package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/fsutil"
)

// FileStore keeps the registry in one CSV file sorted by reg_no. Files with
// the older "Reg No,Name,Class,Parent Email" header are read as well and
// rewritten in canonical form on the next registration.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With("component", "registry"),
	}
}

func (f *FileStore) Register(ctx context.Context, s domain.Student) (bool, error) {
	s, err := Normalize(s)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	students, err := f.read()
	if err != nil {
		return false, err
	}
	for _, existing := range students {
		if existing.RegNo == s.RegNo {
			return false, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	students = append(students, s)
	sort.SliceStable(students, func(i, j int) bool { return students[i].RegNo < students[j].RegNo })

	if err := fsutil.WriteAtomic(f.path, 0o644, func(w io.Writer) error {
		return writeCSV(w, students)
	}); err != nil {
		return false, domain.ErrRegistryIO.WithError(err)
	}

	f.logger.Info("student registered", "reg_no", s.RegNo, "class", s.Class)
	return true, nil
}

func (f *FileStore) Get(ctx context.Context, regNo string) (domain.Student, error) {
	students, err := f.List(ctx)
	if err != nil {
		return domain.Student{}, err
	}
	for _, s := range students {
		if s.RegNo == regNo {
			return s, nil
		}
	}
	return domain.Student{}, domain.ErrStudentNotFound
}

func (f *FileStore) List(ctx context.Context) ([]domain.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.read()
}

func (f *FileStore) read() ([]domain.Student, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Student{}, nil
	}
	if err != nil {
		return nil, domain.ErrRegistryIO.WithError(err)
	}

	students, err := readCSV(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrRegistryIO.WithError(fmt.Errorf("%s: %w", f.path, err))
	}
	return students, nil
}

// readCSV decodes a registry file. Rows without a reg_no are skipped and
// later duplicates of a reg_no are ignored.
func readCSV(r io.Reader) ([]domain.Student, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Student{}, nil
	}
	if err != nil {
		return nil, err
	}
	index, err := columns(head)
	if err != nil {
		return nil, err
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	students := make([]domain.Student, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		s := fromRow(index, row)
		if s.RegNo == "" || seen[s.RegNo] {
			continue
		}
		seen[s.RegNo] = true
		students = append(students, s)
	}
	return students, nil
}

func writeCSV(w io.Writer, students []domain.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range students {
		if err := cw.Write([]string{s.RegNo, s.Name, s.Class, s.ParentEmail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var _ Registry = (*FileStore)(nil)
