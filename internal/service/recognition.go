package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"golang.org/x/sync/semaphore"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ratelimit"
)

type ExtractorInterface interface {
	Extract(ctx context.Context, data []byte) (domain.FaceEncoding, error)
	ModelID() string
}

type GalleryLoader interface {
	Load(ctx context.Context, class string) (domain.Gallery, error)
}

// RecognitionService identifies the student in a captured image against the
// gallery of one class.
type RecognitionService struct {
	extractor ExtractorInterface
	gallery   GalleryLoader
	limiter   ratelimit.Limiter
	scanLimit int
	workers   *semaphore.Weighted
	threshold float64
	audit     audit.Logger
	logger    *slog.Logger
}

func NewRecognitionService(extractor ExtractorInterface, gallery GalleryLoader, logger *slog.Logger) *RecognitionService {
	return &RecognitionService{
		extractor: extractor,
		gallery:   gallery,
		limiter:   ratelimit.Nop{},
		workers:   semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		threshold: matcher.DefaultThreshold,
		audit:     &audit.NoOpLogger{},
		logger:    logger.With("component", "recognition"),
	}
}

func (s *RecognitionService) WithThreshold(threshold float64) *RecognitionService {
	s.threshold = threshold
	return s
}

// WithWorkers bounds how many recognitions run at once.
func (s *RecognitionService) WithWorkers(n int) *RecognitionService {
	if n > 0 {
		s.workers = semaphore.NewWeighted(int64(n))
	}
	return s
}

// WithLimiter caps scans per class. limit <= 0 disables the cap.
func (s *RecognitionService) WithLimiter(limiter ratelimit.Limiter, limit int) *RecognitionService {
	s.limiter = limiter
	s.scanLimit = limit
	return s
}

func (s *RecognitionService) WithAudit(logger audit.Logger) *RecognitionService {
	s.audit = logger
	return s
}

// Recognize returns the matched identity and its distance. A face that
// matches nobody, including any face against an empty gallery, is
// domain.ErrUnknownIdentity.
func (s *RecognitionService) Recognize(ctx context.Context, class string, image []byte) (domain.MatchResult, error) {
	if err := domain.ValidateClass(class); err != nil {
		return domain.MatchResult{}, err
	}

	if err := s.limiter.Allow(ctx, "scan:"+class, s.scanLimit); err != nil {
		return domain.MatchResult{}, err
	}

	if err := s.workers.Acquire(ctx, 1); err != nil {
		return domain.MatchResult{}, err
	}
	defer s.workers.Release(1)

	query, err := s.extractor.Extract(ctx, image)
	if err != nil {
		s.record(ctx, class, domain.MatchResult{}, err)
		return domain.MatchResult{}, err
	}

	gallery, err := s.gallery.Load(ctx, class)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("class %s: load gallery: %w", class, err)
	}

	result := matcher.Match(query, gallery, s.threshold)
	if len(gallery) == 0 {
		err := domain.ErrUnknownIdentity.WithError(domain.ErrGalleryEmpty)
		s.record(ctx, class, result, err)
		return result, err
	}
	if !result.Known {
		err := domain.ErrUnknownIdentity.WithError(fmt.Errorf("class %s: nearest distance %.4f", class, result.Distance))
		s.record(ctx, class, result, err)
		return result, err
	}

	s.record(ctx, class, result, nil)
	return result, nil
}

func (s *RecognitionService) record(ctx context.Context, class string, result domain.MatchResult, err error) {
	event := audit.Event{
		EventType: audit.EventFaceRecognized,
		Class:     class,
		RegNo:     result.Identity.RegNo,
		Model:     s.extractor.ModelID(),
		Success:   err == nil,
		Metadata: map[string]string{
			"distance": strconv.FormatFloat(result.Distance, 'f', 4, 64),
		},
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.audit.Log(ctx, event)
}
