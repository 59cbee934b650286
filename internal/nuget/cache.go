// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	bolt "go.etcd.io/bbolt"
)

// DiskCacheFile is the bbolt database file name inside the cache directory.
const DiskCacheFile = "http-cache.db"

var responsesBucket = []byte("responses")

type (
	// Cache stores feed responses keyed by URL.
	Cache interface {
		Get(key string) ([]byte, bool)
		Put(key string, value []byte) error
	}

	// MemoryCache is a size-bounded in-process cache with per-entry expiry.
	MemoryCache struct {
		lru *expirable.LRU[string, []byte]
	}

	// DiskCache persists responses in a bbolt database so repeated runs can
	// skip the network. Entries older than the TTL are ignored.
	DiskCache struct {
		db  *bolt.DB
		ttl time.Duration
		now func() time.Time
	}

	// TieredCache consults its layers in order and back-fills faster layers on a hit.
	TieredCache []Cache
)

// NewMemoryCache creates a MemoryCache holding at most size entries for ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) ([]byte, bool) { return c.lru.Get(key) }

// Put implements Cache.
func (c *MemoryCache) Put(key string, value []byte) error {
	c.lru.Add(key, value)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int { return c.lru.Len() }

// OpenDiskCache opens (creating if needed) the cache database in dir.
func OpenDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, DiskCacheFile), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(responsesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache database: %w", err)
	}
	return &DiskCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get implements Cache.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	var out []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(responsesBucket).Get([]byte(key))
		if len(raw) < 8 {
			return nil
		}
		stored := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
		if c.ttl > 0 && c.now().Sub(stored) > c.ttl {
			return nil
		}
		out = append([]byte(nil), raw[8:]...)
		return nil
	})
	return out, out != nil
}

// Put implements Cache.
func (c *DiskCache) Put(key string, value []byte) error {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(c.now().UnixNano()))
	copy(buf[8:], value)
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(responsesBucket).Put([]byte(key), buf)
	})
}

// Prune deletes expired entries and returns how many were removed.
func (c *DiskCache) Prune() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(responsesBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) < 8 || c.now().Sub(time.Unix(0, int64(binary.BigEndian.Uint64(v[:8])))) > c.ttl {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Close releases the database file lock.
func (c *DiskCache) Close() error { return c.db.Close() }

// Get implements Cache.
func (t TieredCache) Get(key string) ([]byte, bool) {
	for i, layer := range t {
		if data, ok := layer.Get(key); ok {
			for _, faster := range t[:i] {
				_ = faster.Put(key, data)
			}
			return data, true
		}
	}
	return nil, false
}

// Put implements Cache.
func (t TieredCache) Put(key string, value []byte) error {
	var errs []error
	for _, layer := range t {
		if err := layer.Put(key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
