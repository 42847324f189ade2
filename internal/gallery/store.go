// Package gallery manages enrollment images and turns them into the
// per-class search space used by the matcher.
//
// Layout: <root>/<class>/<reg_no>.jpg (or .png) with a <reg_no>.json sidecar holding
// the identity. Older "Name_RegNo.jpg" files without a sidecar are still
// read through ParseLegacyFilename until Migrate rewrites them.
package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/chamada/internal/cache"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/fsutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

// Extractor produces face encodings from image bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (domain.FaceEncoding, error)
	ModelID() string
}

type Store struct {
	root      string
	extractor Extractor
	cache     cache.EncodingCache
	workers   int
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore serves enrollments under root.
func NewStore(root string, extractor Extractor, logger *slog.Logger) *Store {
	return &Store{
		root:      root,
		extractor: extractor,
		cache:     cache.Nop{},
		workers:   4,
		logger:    logger.With("component", "gallery"),
		now:       time.Now,
	}
}

// WithCache memoises encodings by image content.
func (s *Store) WithCache(c cache.EncodingCache) *Store {
	s.cache = c
	return s
}

// WithWorkers bounds concurrent extraction during Load.
func (s *Store) WithWorkers(n int) *Store {
	if n > 0 {
		s.workers = n
	}
	return s
}

type candidate struct {
	path     string
	identity domain.Identity
}

// Load builds the gallery for class from what is on disk right now.
// Images whose identity cannot be read or whose face cannot be extracted are
// skipped with a warning. A missing class directory is an empty gallery.
func (s *Store) Load(ctx context.Context, class string) (domain.Gallery, error) {
	cands, err := s.scan(class)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return domain.Gallery{}, nil
	}

	encodings := make([]domain.FaceEncoding, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, c := range cands {
		g.Go(func() error {
			enc, err := s.encode(gctx, c.path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("skipping enrollment image",
					"class", class,
					"file", filepath.Base(c.path),
					"error", err,
				)
				return nil
			}
			encodings[i] = enc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	gallery := make(domain.Gallery, 0, len(cands))
	for i, c := range cands {
		if encodings[i] == nil {
			continue
		}
		gallery = append(gallery, domain.GalleryEntry{Encoding: encodings[i], Identity: c.identity})
	}

	s.logger.Debug("gallery loaded", "class", class, "images", len(cands), "entries", len(gallery))
	return gallery, nil
}

// encode reads one image and extracts its encoding through the cache.
func (s *Store) encode(ctx context.Context, path string) (domain.FaceEncoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	model := s.extractor.ModelID()
	digest := cache.Digest(data)
	if enc, err := s.cache.Get(ctx, model, digest); err == nil {
		return enc, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("encoding cache read failed", "error", err)
	}

	enc, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, model, digest, enc); err != nil {
		s.logger.Warn("encoding cache write failed", "error", err)
	}
	return enc, nil
}

// scan lists enrollment images of class in lexical file order together with
// their identities.
func (s *Store) scan(class string) ([]candidate, error) {
	if err := domain.ValidateClass(class); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, class)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrGalleryIO.WithError(err)
	}

	var cands []candidate
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())

		id, err := s.identityOf(path)
		if err != nil {
			s.logger.Warn("skipping enrollment image", "class", class, "file", e.Name(), "error", err)
			continue
		}
		cands = append(cands, candidate{path: path, identity: id})
	}
	return cands, nil
}

// identityOf prefers the sidecar record and falls back to the legacy name.
func (s *Store) identityOf(path string) (domain.Identity, error) {
	meta, err := ReadMetadata(path)
	if err == nil {
		return meta.Identity, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return domain.Identity{}, err
	}
	return ParseLegacyFilename(path)
}

// Enroll stores the enrollment image for identity in class, replacing any
// earlier image of the same student. The image must contain a detectable face.
func (s *Store) Enroll(ctx context.Context, class string, identity domain.Identity, data []byte) (*domain.Enrollment, error) {
	if err := domain.ValidateClass(class); err != nil {
		return nil, err
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	identity = identity.Normalized()
	if err := domain.ValidateRegNo(identity.RegNo); err != nil {
		return nil, err
	}

	img, format, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	// JPEG and PNG are kept byte for byte; other formats are stored as PNG.
	ext := ".jpg"
	switch format {
	case "jpeg":
	case "png":
		ext = ".png"
	default:
		ext = ".png"
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, domain.ErrInternal.WithError(err)
		}
		data = buf.Bytes()
	}

	enc, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	meta := &domain.Enrollment{
		Identity:   identity,
		Class:      class,
		SHA256:     cache.Digest(data),
		EnrolledAt: s.now().UTC(),
	}

	dir := filepath.Join(s.root, class)
	path := filepath.Join(dir, identity.RegNo+ext)
	if err := s.write(path, data, meta); err != nil {
		return nil, domain.ErrGalleryIO.WithError(err)
	}
	s.removeStale(dir, identity.RegNo, path)

	if err := s.cache.Set(ctx, s.extractor.ModelID(), meta.SHA256, enc); err != nil {
		s.logger.Warn("encoding cache write failed", "error", err)
	}

	s.logger.Info("student enrolled", "class", class, "reg_no", identity.RegNo)
	return meta, nil
}

// write stores the image first so a crash never leaves a sidecar pointing at
// nothing.
func (s *Store) write(path string, data []byte, meta *domain.Enrollment) error {
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return fsutil.WriteFileAtomic(metadataPath(path), raw, 0o644)
}

// removeStale deletes other images of regNo (a different extension or an
// old-style file name) that would otherwise load as a second gallery entry.
func (s *Store) removeStale(dir, regNo, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if path == keep {
			continue
		}
		id, err := s.identityOf(path)
		if err != nil || id.RegNo != regNo {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("remove stale enrollment failed", "file", e.Name(), "error", err)
			continue
		}
		if metadataPath(path) != metadataPath(keep) {
			_ = os.Remove(metadataPath(path))
		}
	}
}

// Students lists the identities enrolled in class without extracting faces.
func (s *Store) Students(ctx context.Context, class string) ([]domain.Enrollment, error) {
	cands, err := s.scan(class)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Enrollment, 0, len(cands))
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if meta, err := ReadMetadata(c.path); err == nil {
			out = append(out, *meta)
			continue
		}
		out = append(out, domain.Enrollment{Identity: c.identity, Class: class})
	}
	return out, nil
}

// Classes lists class directories under the enrollment root.
func (s *Store) Classes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, domain.ErrGalleryIO.WithError(err)
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

// Migrate rewrites legacy "Name_RegNo" images of class into the sidecar
// layout and returns how many were converted. Files that cannot be parsed
// are left untouched.
func (s *Store) Migrate(ctx context.Context, class string) (int, error) {
	if err := domain.ValidateClass(class); err != nil {
		return 0, err
	}

	dir := filepath.Join(s.root, class)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.ErrGalleryIO.WithError(err)
	}

	migrated := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return migrated, err
		}
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		old := filepath.Join(dir, e.Name())
		if _, err := os.Stat(metadataPath(old)); err == nil {
			continue
		}

		id, err := ParseLegacyFilename(e.Name())
		if err != nil || domain.ValidateRegNo(id.RegNo) != nil {
			s.logger.Warn("cannot migrate enrollment image", "class", class, "file", e.Name(), "error", err)
			continue
		}

		data, err := os.ReadFile(old)
		if err != nil {
			return migrated, domain.ErrGalleryIO.WithError(err)
		}
		info, err := e.Info()
		if err != nil {
			return migrated, domain.ErrGalleryIO.WithError(err)
		}

		meta := &domain.Enrollment{
			Identity:   id,
			Class:      class,
			SHA256:     cache.Digest(data),
			EnrolledAt: info.ModTime().UTC(),
		}
		path := filepath.Join(dir, id.RegNo+filepath.Ext(e.Name()))
		if err := s.write(path, data, meta); err != nil {
			return migrated, domain.ErrGalleryIO.WithError(err)
		}
		if path != old {
			if err := os.Remove(old); err != nil {
				return migrated, domain.ErrGalleryIO.WithError(err)
			}
		}
		migrated++
	}

	if migrated > 0 {
		s.logger.Info("legacy enrollments migrated", "class", class, "count", migrated)
	}
	return migrated, nil
}
