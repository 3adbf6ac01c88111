package similarity

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"
)

// VectorCache persists embedding vectors between runs, keyed by model and a
// digest of the embedded text. Enrichment runs are batch jobs; without a
// cache every run re-embeds the whole collection.
type VectorCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Put(ctx context.Context, model, text string, vec []float32) error
	Close() error
}

// PgVectorCache is a Postgres-backed VectorCache using the pgvector
// extension for the vector column.
type PgVectorCache struct {
	db *sql.DB
}

// NewPgVectorCache opens the Postgres cache and ensures its schema. The
// pgvector extension must already be installed in the target database.
func NewPgVectorCache(dsn string) (*PgVectorCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS entity_vectors (
			digest     TEXT NOT NULL,
			model      TEXT NOT NULL,
			vec        vector,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (digest, model)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entity_vectors table: %w", err)
	}
	return &PgVectorCache{db: db}, nil
}

// Get implements VectorCache.
func (c *PgVectorCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := c.db.QueryRowContext(ctx,
		`SELECT vec FROM entity_vectors WHERE digest = $1 AND model = $2`,
		digest(text), model).Scan(&vec)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read vector: %w", err)
	}
	return vec.Slice(), true, nil
}

// Put implements VectorCache with upsert semantics.
func (c *PgVectorCache) Put(ctx context.Context, model, text string, vec []float32) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO entity_vectors (digest, model, vec, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (digest, model) DO UPDATE SET
			vec = excluded.vec,
			updated_at = now()
	`, digest(text), model, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (c *PgVectorCache) Close() error {
	return c.db.Close()
}

func digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
