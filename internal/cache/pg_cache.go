package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGCache keeps encodings in the face_encodings table as pgvector columns.
// Values round-trip through float32.
type PGCache struct {
	db DB
}

// NewPGCache creates a new PostgreSQL encoding cache
func NewPGCache(db DB) *PGCache {
	return &PGCache{db: db}
}

// Get retrieves an encoding by model and image digest
func (c *PGCache) Get(ctx context.Context, modelID, digest string) (domain.FaceEncoding, error) {
	query := `
		SELECT embedding
		FROM face_encodings
		WHERE model_id = $1 AND sha256 = $2
	`

	var embedding *pgvector.Vector
	err := c.db.QueryRow(ctx, query, modelID, digest).Scan(&embedding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get cached encoding: %w", err)
	}
	if embedding == nil || len(embedding.Slice()) == 0 {
		return nil, ErrCacheMiss
	}

	floats := embedding.Slice()
	enc := make(domain.FaceEncoding, len(floats))
	for i, v := range floats {
		enc[i] = float64(v)
	}
	return enc, nil
}

// Set stores an encoding, replacing any previous value for the key
func (c *PGCache) Set(ctx context.Context, modelID, digest string, enc domain.FaceEncoding) error {
	query := `
		INSERT INTO face_encodings (model_id, sha256, embedding, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (model_id, sha256) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    created_at = NOW()
	`

	floats := make([]float32, len(enc))
	for i, v := range enc {
		floats[i] = float32(v)
	}

	if _, err := c.db.Exec(ctx, query, modelID, digest, pgvector.NewVector(floats)); err != nil {
		return fmt.Errorf("set cached encoding: %w", err)
	}
	return nil
}

// DeleteModel removes every encoding produced by modelID, after a model upgrade.
func (c *PGCache) DeleteModel(ctx context.Context, modelID string) (int64, error) {
	result, err := c.db.Exec(ctx, `DELETE FROM face_encodings WHERE model_id = $1`, modelID)
	if err != nil {
		return 0, fmt.Errorf("delete model encodings: %w", err)
	}
	return result.RowsAffected(), nil
}

// CleanupOlderThan removes entries not refreshed within age. Enrollment images
// that were replaced leave orphaned digests behind; this reclaims them.
func (c *PGCache) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	result, err := c.db.Exec(ctx, `DELETE FROM face_encodings WHERE created_at < $1`, time.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("cleanup encodings: %w", err)
	}
	return result.RowsAffected(), nil
}
