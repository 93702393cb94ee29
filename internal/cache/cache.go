// Package cache is the optional read-through blob cache (C8b): a
// size-bounded, LZ4-compressed store for rendered HTML and wikitext
// payloads keyed by the wiki client's normalized API query string.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
)

// DefaultMaxSize is the default maximum memory footprint of compressed
// payloads held by the cache (256 MiB).
const DefaultMaxSize = 256 * 1024 * 1024

// Cache is a cross-request LRU cache for compressed page payloads. It
// tracks compressed memory usage and evicts least-recently-used entries
// once the size budget is exceeded.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used

	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key        string
	compressed []byte
	size       int64
	prev, next *entry
}

// New creates a cache bounded to maxSize bytes of compressed payload. A
// non-positive maxSize falls back to DefaultMaxSize.
func New(maxSize int64) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Cache{entries: make(map[string]*entry), maxSize: maxSize}
}

// Get returns the decompressed payload stored under key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	c.moveToFront(e)

	decompressed, err := decompress(e.compressed)
	if err != nil {
		return nil, false
	}

	return decompressed, true
}

// Put stores value (compressed with LZ4) under key, evicting
// least-recently-used entries until the cache fits within its size
// budget. A value larger than the entire budget is not cached.
func (c *Cache) Put(key string, value []byte) {
	compressed := compress(value)

	size := int64(len(compressed))
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.currentSize -= existing.size
		c.removeFromList(existing)
		delete(c.entries, key)
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLRU()
	}

	e := &entry{key: key, compressed: compressed, size: size}
	c.entries[key] = e
	c.currentSize += size
	c.addToFront(e)
}

// Stats reports cache hit/miss counters and current memory footprint.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// Stats returns a snapshot of the cache's performance counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// HitRate returns the fraction of lookups that were hits, in [0,1].
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// String renders the cache's memory footprint in human-readable form,
// current size over budget in SI units, e.g. "12 MB / 268 MB" for the
// default budget, for startup and periodic logs. The hit rate is not
// included; see HitRate.
func (s Stats) String() string {
	return humanize.Bytes(uint64(s.CurrentSize)) + " / " + humanize.Bytes(uint64(s.MaxSize))
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}

	c.removeFromList(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.prev = nil
	e.next = c.head

	if c.head != nil {
		c.head.prev = e
	}

	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) removeFromList(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictLRU() {
	victim := c.tail
	if victim == nil {
		return
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}

func compress(data []byte) []byte {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))

	var compressor lz4.Compressor

	n, err := compressor.CompressBlock(data, buf)
	if err != nil || n == 0 {
		// Incompressible or empty input: lz4 leaves buf unusable, so
		// fall back to storing the raw bytes behind a 0 tag byte.
		return append([]byte{0}, data...)
	}

	return append([]byte{1}, buf[:n]...)
}

// maxDecompressGrowthSteps bounds how many times decompress doubles its
// scratch buffer before giving up on a payload it can't size up front.
const maxDecompressGrowthSteps = 10

func decompress(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, nil
	}

	tag, payload := stored[0], stored[1:]
	if tag == 0 {
		return payload, nil
	}

	// The decompressed size is unknown to the reader; grow the
	// destination buffer until lz4 stops reporting a short buffer.
	dst := make([]byte, len(payload)*4+64)

	var lastErr error

	for range maxDecompressGrowthSteps {
		n, err := lz4.UncompressBlock(payload, dst)
		if err == nil {
			return dst[:n], nil
		}

		lastErr = err
		dst = make([]byte, len(dst)*2)
	}

	return nil, lastErr
}
