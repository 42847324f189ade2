// Package cache memoises face encodings by image content.
//
// Keys are (model ID, sha256 of the enrollment image bytes). A changed image
// has a different digest, so entries never go stale and need no invalidation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// EncodingCache stores encodings keyed by model and image digest.
type EncodingCache interface {
	Get(ctx context.Context, modelID, digest string) (domain.FaceEncoding, error)
	Set(ctx context.Context, modelID, digest string, enc domain.FaceEncoding) error
}

// Digest returns the hex sha256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type memKey struct {
	model  string
	digest string
}

// Memory is a process-local EncodingCache bounded to max entries. When
// full, an arbitrary entry is evicted.
type Memory struct {
	mu      sync.RWMutex
	max     int
	entries map[memKey]domain.FaceEncoding
}

// NewMemory creates a cache holding at most max encodings; max <= 0 means unbounded.
func NewMemory(max int) *Memory {
	return &Memory{
		max:     max,
		entries: make(map[memKey]domain.FaceEncoding),
	}
}

func (m *Memory) Get(_ context.Context, modelID, digest string) (domain.FaceEncoding, error) {
	m.mu.RLock()
	enc, ok := m.entries[memKey{modelID, digest}]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	return append(domain.FaceEncoding(nil), enc...), nil
}

func (m *Memory) Set(_ context.Context, modelID, digest string, enc domain.FaceEncoding) error {
	k := memKey{modelID, digest}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[k]; !exists && m.max > 0 && len(m.entries) >= m.max {
		for victim := range m.entries {
			delete(m.entries, victim)
			break
		}
	}
	m.entries[k] = append(domain.FaceEncoding(nil), enc...)
	return nil
}

// Len reports the number of cached encodings.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, string) (domain.FaceEncoding, error) {
	return nil, ErrCacheMiss
}

func (Nop) Set(context.Context, string, string, domain.FaceEncoding) error { return nil }
