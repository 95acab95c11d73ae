// Package bolt persists enriched events and the ingestion bookmark in a
// single bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// BookmarkKey is the key of the newest processed event date.
const BookmarkKey = "last_earthquake_date"

var (
	bucketEvents    = []byte("events")
	bucketBookmarks = []byte("bookmarks")
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("event not found")

// Store implements pipeline.EventStore and pipeline.BookmarkStore.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketBookmarks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertBatch writes every event under its ID in one transaction and
// returns how many IDs were not already present.
func (s *Store) UpsertBatch(ctx context.Context, events []domain.SeismicEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	created := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		for i := range events {
			data, err := json.Marshal(events[i])
			if err != nil {
				return fmt.Errorf("marshal event %s: %w", events[i].ID, err)
			}
			key := []byte(events[i].ID)
			if b.Get(key) == nil {
				created++
			}
			if err := b.Put(key, data); err != nil {
				return fmt.Errorf("put event %s: %w", events[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert events: %w", err)
	}
	return created, nil
}

// Get returns the stored event with the given ID.
func (s *Store) Get(_ context.Context, id string) (domain.SeismicEvent, error) {
	var ev domain.SeismicEvent
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEvents).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &ev)
	})
	if err != nil {
		return domain.SeismicEvent{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return ev, nil
}

// Count returns the number of stored events.
func (s *Store) Count(_ context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEvents).Stats().KeyN
		return nil
	})
	return n, err
}

// LastDate returns the bookmark. ok is false when none has been written.
func (s *Store) LastDate(_ context.Context) (time.Time, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketBookmarks).Get([]byte(BookmarkKey)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read bookmark: %w", err)
	}
	if raw == nil {
		return time.Time{}, false, nil
	}

	day, err := time.ParseInLocation(domain.DateLayout, string(raw), domain.Turkey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode bookmark %q: %w", raw, err)
	}
	return day, true, nil
}

// SetLastDate stores the calendar date of day, in observatory time.
func (s *Store) SetLastDate(_ context.Context, day time.Time) error {
	v := []byte(day.In(domain.Turkey).Format(domain.DateLayout))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBookmarks).Put([]byte(BookmarkKey), v)
	})
	if err != nil {
		return fmt.Errorf("write bookmark: %w", err)
	}
	return nil
}
