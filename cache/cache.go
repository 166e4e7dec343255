// Package cache tracks which URLs the spider has already processed, so
// repeated crawls never re-scrape or duplicate rows in the scraped CSV.
package cache

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const BUCKET_NAME = "seen"

// SeenCache is a persistent seen-URL set backed by BoltDB.
type SeenCache struct {
	db *bolt.DB
}

// NewSeenCache opens (or creates) the cache at the given path.
// It is up to the caller to close the cache when it is no longer needed.
func NewSeenCache(path string) (*SeenCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BUCKET_NAME))
		return err
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to create seen bucket")
	}

	return &SeenCache{
		db: db,
	}, nil
}

// Seen reports whether the URL was marked before. When it was, the archive
// file name recorded for it is returned.
func (c *SeenCache) Seen(url string) (name string, seen bool) {
	c.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket([]byte(BUCKET_NAME)).Get([]byte(url))
		if val != nil {
			name = string(val)
			seen = true
		}

		return nil
	})

	return
}

// Mark records that the URL was scraped into the given archive file.
func (c *SeenCache) Mark(url, name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BUCKET_NAME)).Put([]byte(url), []byte(name))
	})
}

// Len returns the number of marked URLs.
func (c *SeenCache) Len() int {
	var count int
	c.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(BUCKET_NAME)).Stats().KeyN
		return nil
	})

	return count
}

// Close closes the database.
func (c *SeenCache) Close() error {
	return c.db.Close()
}
