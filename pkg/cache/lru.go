// Package cache provides a bounded, size-aware LRU cache of compiled module
// outputs. Payloads are stored LZ4-compressed.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
)

// DefaultMaxSize is the default memory budget of the cache (64 MB).
const DefaultMaxSize = 64 * 1024 * 1024

// bytesPerKB is the number of bytes in a kilobyte.
const bytesPerKB = 1024.0

// Key addresses one cached output.
type Key [sha256.Size]byte

// NewKey hashes parts into a key. Each part is length-prefixed, so distinct
// part lists never collide by concatenation.
func NewKey(parts ...[]byte) Key {
	h := sha256.New()

	var prefix [8]byte

	for _, p := range parts {
		binary.LittleEndian.PutUint64(prefix[:], uint64(len(p)))
		h.Write(prefix[:])
		h.Write(p)
	}

	var k Key

	h.Sum(k[:0])

	return k
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// LRU caches byte payloads. It tracks the compressed size of its entries and
// evicts large, rarely used entries first once the budget is exceeded.
type LRU struct {
	mu          sync.RWMutex
	entries     map[Key]*lruEntry
	head        *lruEntry // Most recently used.
	tail        *lruEntry // Least recently used.
	maxSize     int64
	currentSize int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type lruEntry struct {
	key         Key
	data        []byte // LZ4 block, or the raw payload when compressed is false.
	rawLen      int
	compressed  bool
	size        int64
	accessCount int64
	prev        *lruEntry
	next        *lruEntry
}

// evictionCost is AccessCount / Size in KB; lower is evicted first.
func (e *lruEntry) evictionCost() float64 {
	if e.size == 0 {
		return float64(e.accessCount)
	}

	sizeKB := float64(e.size) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// New creates a cache holding at most maxSize bytes of stored data.
func New(maxSize int64) *LRU {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &LRU{
		entries: make(map[Key]*lruEntry),
		maxSize: maxSize,
	}
}

// Get returns a copy of the payload stored under key.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return nil, false
	}

	payload, ok := entry.payload()
	if !ok {
		// Corrupt block: drop it and report a miss.
		c.remove(entry)
		c.misses.Add(1)

		return nil, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return payload, true
}

// Put stores payload under key. Payloads larger than the whole budget are
// not cached.
func (c *LRU) Put(key Key, payload []byte) {
	entry := newEntry(key, payload)
	if entry.size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.accessCount++
		c.moveToFront(existing)

		return
	}

	for c.currentSize+entry.size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	c.entries[key] = entry
	c.currentSize += entry.size
	c.addToFront(entry)
}

func newEntry(key Key, payload []byte) *lruEntry {
	entry := &lruEntry{key: key, rawLen: len(payload), accessCount: 1}

	block := make([]byte, lz4.CompressBlockBound(len(payload)))

	written, err := lz4.CompressBlock(payload, block, nil)
	if err == nil && written > 0 && written < len(payload) {
		entry.data = block[:written:written]
		entry.compressed = true
	} else {
		// Incompressible input: keep a private copy.
		entry.data = append([]byte(nil), payload...)
	}

	entry.size = int64(len(entry.data))

	return entry
}

func (e *lruEntry) payload() ([]byte, bool) {
	if !e.compressed {
		return append([]byte(nil), e.data...), true
	}

	out := make([]byte, e.rawLen)

	n, err := lz4.UncompressBlock(e.data, out)
	if err != nil || n != e.rawLen {
		return nil, false
	}

	return out, true
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache metrics.
func (c *LRU) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Clear removes all entries. Counters are kept.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*lruEntry)
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

func (c *LRU) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU) removeFromList(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

func (c *LRU) remove(entry *lruEntry) {
	c.removeFromList(entry)
	delete(c.entries, entry.key)
	c.currentSize -= entry.size
}

// evictionSampleSize is the number of tail entries considered per eviction.
const evictionSampleSize = 5

// evictLowestCost removes the cheapest of the least recently used entries.
func (c *LRU) evictLowestCost() {
	var candidates [evictionSampleSize]*lruEntry

	count := 0

	for entry := c.tail; entry != nil && count < evictionSampleSize; entry = entry.prev {
		candidates[count] = entry
		count++
	}

	if count == 0 {
		return
	}

	victim := candidates[0]
	lowestCost := victim.evictionCost()

	for _, candidate := range candidates[1:count] {
		if cost := candidate.evictionCost(); cost < lowestCost {
			lowestCost = cost
			victim = candidate
		}
	}

	c.remove(victim)
	c.evictions.Add(1)
}
