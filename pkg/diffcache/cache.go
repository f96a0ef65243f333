package diffcache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrTombstoned is returned for a key whose earlier computation was too
// large to cache. The loader is not re-run.
var ErrTombstoned = errors.New("cached result exceeded size limit")

// TooLargeError is implemented by loader errors that should be remembered
// as a tombstone instead of retried.
type TooLargeError interface {
	error
	TooLarge() bool
}

// DefaultMaxEntries bounds the memory tier when Options.MaxEntries is unset.
const DefaultMaxEntries = 4096

// Options configures a Cache.
type Options struct {
	MaxEntries int
	// Dir enables the disk tier. Each cache keeps its entries in a
	// subdirectory named after the cache.
	Dir    string
	Logger *slog.Logger
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Loads      int64 `json:"loads"`
	Tombstones int64 `json:"tombstones"`
	Entries    int   `json:"entries"`
}

// Cache memoizes values of type V by Key. At most one loader runs per key
// at a time; concurrent callers for the same key share its result.
type Cache[V any] struct {
	name   string
	mem    *lru.Cache[Key, Entry[V]]
	disk   *diskTier
	group  singleflight.Group
	logger *slog.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	loads      atomic.Int64
	tombstones atomic.Int64
}

// New creates a cache. name labels log lines and the disk-tier directory.
func New[V any](name string, opts Options) (*Cache[V], error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = DefaultMaxEntries
	}
	mem, err := lru.New[Key, Entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Cache[V]{name: name, mem: mem, logger: logger}
	if opts.Dir != "" {
		disk, err := newDiskTier(filepath.Join(opts.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("cache %s: %w", name, err)
		}
		c.disk = disk
	}
	return c, nil
}

// Get returns the value for key, calling load on a miss. A load error that
// is a TooLargeError is returned to the callers of that load and a
// tombstone is stored; later calls fail with ErrTombstoned. Other load
// errors are returned and nothing is stored.
func (c *Cache[V]) Get(key Key, load func() (V, error)) (V, error) {
	var zero V
	if e, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return c.unwrap(key, e)
	}
	c.misses.Add(1)

	res, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A flight that finished between lookup and Do already stored it.
		if e, ok := c.lookup(key); ok {
			return e, nil
		}

		c.loads.Add(1)
		start := time.Now()
		v, err := load()
		if err != nil {
			var tooLarge TooLargeError
			if errors.As(err, &tooLarge) && tooLarge.TooLarge() {
				c.store(key, TombstoneEntry[V]())
				c.tombstones.Add(1)
				c.logger.Info("cache tombstone stored", "cache", c.name, "key", key.String(), "error", err)
			}
			return nil, err
		}
		e := ValueEntry(v)
		c.store(key, e)
		c.logger.Debug("cache loaded", "cache", c.name, "key", key.String(), "duration", time.Since(start))
		return e, nil
	})
	if err != nil {
		return zero, err
	}
	return c.unwrap(key, res.(Entry[V]))
}

// Peek returns the cached entry for key without loading.
func (c *Cache[V]) Peek(key Key) (Entry[V], bool) {
	return c.lookup(key)
}

// Flush drops every entry from memory and disk.
func (c *Cache[V]) Flush() error {
	c.mem.Purge()
	if c.disk != nil {
		if err := c.disk.flush(); err != nil {
			return fmt.Errorf("cache %s: %w", c.name, err)
		}
	}
	c.logger.Info("cache flushed", "cache", c.name)
	return nil
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Loads:      c.loads.Load(),
		Tombstones: c.tombstones.Load(),
		Entries:    c.mem.Len(),
	}
}

// Close releases the disk-tier codec.
func (c *Cache[V]) Close() {
	if c.disk != nil {
		c.disk.close()
	}
}

func (c *Cache[V]) unwrap(key Key, e Entry[V]) (V, error) {
	if e.IsTombstone() {
		var zero V
		return zero, fmt.Errorf("%s: %w", key.String(), ErrTombstoned)
	}
	return e.Value, nil
}

func (c *Cache[V]) lookup(key Key) (Entry[V], bool) {
	if e, ok := c.mem.Get(key); ok {
		return e, true
	}
	if c.disk == nil {
		return Entry[V]{}, false
	}

	ks := key.String()
	data, ok, err := c.disk.load(ks)
	if err != nil {
		c.logger.Warn("disk cache read failed", "cache", c.name, "key", ks, "error", err)
		return Entry[V]{}, false
	}
	if !ok {
		return Entry[V]{}, false
	}
	e, storedKey, err := unmarshalEnvelope[V](data)
	if err != nil {
		c.logger.Warn("disk cache entry unreadable", "cache", c.name, "key", ks, "error", err)
		return Entry[V]{}, false
	}
	if storedKey != ks {
		return Entry[V]{}, false
	}
	c.mem.Add(key, e)
	return e, true
}

func (c *Cache[V]) store(key Key, e Entry[V]) {
	c.mem.Add(key, e)
	if c.disk == nil {
		return
	}
	ks := key.String()
	data, err := marshalEnvelope(e, ks)
	if err == nil {
		err = c.disk.store(ks, data)
	}
	if err != nil {
		c.logger.Warn("disk cache write failed", "cache", c.name, "key", ks, "error", err)
	}
}
