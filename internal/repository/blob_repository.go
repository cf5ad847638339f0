package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BlobStore is a key-value text store. Load reports found=false for a key
// that was never saved.
type BlobStore interface {
	Load(ctx context.Context, key string) (value string, found bool, err error)
	Save(ctx context.Context, key, value string) error
}

type BlobRepository struct {
	db *sql.DB
}

func NewBlobRepository(db *sql.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Scoped returns a BlobStore whose keys live under ownerID.
func (r *BlobRepository) Scoped(ownerID string) *ScopedBlobs {
	return &ScopedBlobs{db: r.db, ownerID: ownerID}
}

type ScopedBlobs struct {
	db      *sql.DB
	ownerID string
}

func (s *ScopedBlobs) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT value FROM blobs WHERE owner_id = ? AND key = ?`,
		s.ownerID,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load blob %s: %w", key, err)
	}
	return value, true, nil
}

func (s *ScopedBlobs) Save(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO blobs (owner_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (owner_id, key) DO UPDATE
		 SET value = excluded.value,
		     updated_at = excluded.updated_at`,
		s.ownerID,
		key,
		value,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save blob %s: %w", key, err)
	}
	return nil
}

var _ BlobStore = (*ScopedBlobs)(nil)
