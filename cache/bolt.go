package cache

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketQueries = "queries"

// BoltStore keeps the cache on disk so a restarted gateway can serve the
// last known data while it refetches.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketQueries))
		return err
	}); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Get(key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(boltBucketQueries)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		val = append([]byte(nil), data...)
		return nil
	})
	return val, err
}

func (b *BoltStore) Set(key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketQueries)).Put([]byte(key), value)
	})
}

func (b *BoltStore) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketQueries)).Delete([]byte(key))
	})
}

func (b *BoltStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(boltBucketQueries)).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			if matchesPrefix(string(k), prefix) {
				keys = append(keys, string(k))
			}
		}
		return nil
	})
	return keys, err
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
