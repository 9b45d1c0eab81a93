// Package bbolt provides a BoltDB-backed TTL cache.
package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/seddaluca/racing-analytics/internal/cache"
)

const cacheBucket = "cache"

// envelope wraps a cached payload with its absolute expiry. BoltDB has no
// native TTL, so expiry is checked on read and swept by PurgeExpired.
type envelope struct {
	ExpiresAt int64           `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

func (e envelope) expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.UnixMilli() >= e.ExpiresAt
}

// Store provides a BoltDB-backed TTL cache.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens a BoltDB-backed cache at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ cache.Cache = (*Store)(nil)

// Set stores a payload under key with the given TTL. A non-positive TTL
// stores the entry without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("cache is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}

	entry := envelope{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl).UnixMilli()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		return bucket.Put([]byte(key), payload)
	})
}

// Get fetches a payload by key. Expired entries report cache.ErrNotFound and
// are left for PurgeExpired to reclaim.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("cache is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("cache key is required")
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return cache.ErrNotFound
		}
		var entry envelope
		if err := json.Unmarshal(payload, &entry); err != nil {
			return fmt.Errorf("unmarshal cache entry: %w", err)
		}
		if entry.expired(s.now()) {
			return cache.ErrNotFound
		}
		value = append([]byte(nil), entry.Value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("cache is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		return bucket.Delete([]byte(key))
	})
}

// DeletePrefix removes every key with the given prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("cache is not configured")
	}
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("cache prefix is required")
	}

	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		cursor := bucket.Cursor()
		search := []byte(prefix)
		for key, _ := cursor.Seek(search); key != nil && bytes.HasPrefix(key, search); key, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return fmt.Errorf("delete cache key: %w", err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// PurgeExpired removes entries whose TTL has lapsed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("cache is not configured")
	}

	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		cursor := bucket.Cursor()
		for key, payload := cursor.First(); key != nil; key, payload = cursor.Next() {
			var entry envelope
			if err := json.Unmarshal(payload, &entry); err != nil {
				// A corrupt entry can never be read back; drop it.
				if err := cursor.Delete(); err != nil {
					return fmt.Errorf("delete corrupt cache key: %w", err)
				}
				removed++
				continue
			}
			if entry.expired(now) {
				if err := cursor.Delete(); err != nil {
					return fmt.Errorf("delete expired cache key: %w", err)
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		if err != nil {
			return fmt.Errorf("create cache bucket: %w", err)
		}
		return nil
	})
}
