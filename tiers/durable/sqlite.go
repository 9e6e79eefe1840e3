// Package durable provides a SQLite-backed tier that survives process
// restarts. Vectors are stored as little-endian float32 blobs.
package durable

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/botirk38/embedcache/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	key        TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	dimension  INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER
);
`

// SQLiteConfig configures a SQLite tier backend.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:" for tests.
	Path string

	// TTL is applied to every write; zero means entries never expire.
	TTL time.Duration
}

// SQLiteBackend implements TierBackend on a local SQLite database.
type SQLiteBackend struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteBackend opens (creating if necessary) the database at path and
// ensures the embeddings table exists.
func NewSQLiteBackend(config SQLiteConfig) (*SQLiteBackend, error) {
	if config.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create embeddings table: %w", err)
	}

	return &SQLiteBackend{db: db, ttl: config.TTL}, nil
}

// encodeVector packs a float32 slice into a little-endian blob.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 slice.
func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vector, nil
}

// Set upserts an entry.
func (b *SQLiteBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	var expiresAt any
	if b.ttl > 0 {
		expiresAt = time.Now().Add(b.ttl).Unix()
	}

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO embeddings (key, model, dimension, vector, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			model = excluded.model,
			dimension = excluded.dimension,
			vector = excluded.vector,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, entry.Model, entry.Dimension, encodeVector(entry.Vector),
		entry.CreatedAt.Unix(), expiresAt)
	return err
}

// Get retrieves an entry. Expired rows are deleted and reported as misses;
// undecodable rows are likewise dropped rather than failing the probe.
func (b *SQLiteBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	var (
		model     string
		dimension int
		blob      []byte
		createdAt int64
		expiresAt sql.NullInt64
	)
	err := b.db.QueryRowContext(ctx, `
		SELECT model, dimension, vector, created_at, expires_at
		FROM embeddings WHERE key = ?`, key).
		Scan(&model, &dimension, &blob, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return types.Entry{}, false, nil
	}
	if err != nil {
		return types.Entry{}, false, err
	}

	if expiresAt.Valid && time.Now().Unix() > expiresAt.Int64 {
		_ = b.deleteKey(ctx, key)
		return types.Entry{}, false, nil
	}

	vector, err := decodeVector(blob)
	if err != nil || len(vector) != dimension {
		_ = b.deleteKey(ctx, key)
		return types.Entry{}, false, nil
	}

	return types.Entry{
		Key:       key,
		Vector:    vector,
		Dimension: dimension,
		Model:     model,
		CreatedAt: time.Unix(createdAt, 0),
	}, true, nil
}

func (b *SQLiteBackend) deleteKey(ctx context.Context, key types.CacheKey) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM embeddings WHERE key = ?`, key)
	return err
}

// Delete removes an entry.
func (b *SQLiteBackend) Delete(ctx context.Context, key types.CacheKey) error {
	return b.deleteKey(ctx, key)
}

// Contains checks for key presence, honoring expiry.
func (b *SQLiteBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	var expiresAt sql.NullInt64
	err := b.db.QueryRowContext(ctx,
		`SELECT expires_at FROM embeddings WHERE key = ?`, key).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if expiresAt.Valid && time.Now().Unix() > expiresAt.Int64 {
		_ = b.deleteKey(ctx, key)
		return false, nil
	}
	return true, nil
}

// Flush clears all entries.
func (b *SQLiteBackend) Flush(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM embeddings`)
	return err
}

// Len returns the number of entries, including not-yet-reaped expired rows.
func (b *SQLiteBackend) Len(ctx context.Context) (int, error) {
	var count int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count)
	return count, err
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
