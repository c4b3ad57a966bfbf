// Package cache provides an LRU cache of per-function analysis
// summaries with msgpack disk persistence. Repeated runs over an
// unchanged function reuse the cached summary instead of re-running
// the per-function analyses.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrKeyNotFound is returned when a key is not found in the cache.
var ErrKeyNotFound = errors.New("key not found")

// Summary is the cacheable result of analyzing one function.
type Summary struct {
	FunctionName         string `msgpack:"function_name"`
	Fingerprint          uint64 `msgpack:"fingerprint"`
	StatementCount       int    `msgpack:"statement_count"`
	CyclomaticComplexity int    `msgpack:"cyclomatic_complexity"`
	UnreachableCount     int    `msgpack:"unreachable_count"`
	UnusedVariableCount  int    `msgpack:"unused_variable_count"`
	RedundantExprCount   int    `msgpack:"redundant_expr_count"`
	DiagnosticCount      int    `msgpack:"diagnostic_count"`
	ZeroPageCandidates   int    `msgpack:"zeropage_candidates"`
	Recursive            bool   `msgpack:"recursive"`
	InlineCandidate      bool   `msgpack:"inline_candidate"`
}

// Entry is a cache entry with access metadata.
type Entry struct {
	Key        string    `msgpack:"key"`
	Summary    Summary   `msgpack:"summary"`
	AccessedAt time.Time `msgpack:"accessed_at"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

// Key builds the cache key for a function at a given fingerprint. The
// fingerprint covers the function body, so a changed body misses.
func Key(functionName string, fingerprint uint64) string {
	return fmt.Sprintf("%s@%016x", functionName, fingerprint)
}

// listItem is an item in the doubly-linked list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// lruList is a doubly-linked list with the most recently used item at
// the front.
type lruList struct {
	head *listItem
	tail *listItem
	len  int
}

func (l *lruList) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	if item.prev != nil {
		item.prev.next = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	}
	if item == l.tail {
		l.tail = item.prev
	}
	item.prev = nil
	item.next = l.head
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
}

func (l *lruList) removeBack() *listItem {
	if l.tail == nil {
		return nil
	}
	item := l.tail
	l.tail = item.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.len--
	return item
}

func (l *lruList) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

// Options configures the summary cache.
type Options struct {
	// MaxSize is the maximum number of entries. 0 means unlimited.
	MaxSize int

	// OnEvict is called when an entry is evicted.
	OnEvict func(key string, summary Summary)
}

// SummaryCache is an in-memory LRU cache of analysis summaries.
type SummaryCache struct {
	mu      sync.RWMutex
	items   map[string]*listItem
	lru     *lruList
	maxSize int
	onEvict func(key string, summary Summary)

	hitCount  int64
	missCount int64
}

// New creates a summary cache with the given options.
func New(opts Options) *SummaryCache {
	return &SummaryCache{
		items:   make(map[string]*listItem),
		lru:     &lruList{},
		maxSize: opts.MaxSize,
		onEvict: opts.OnEvict,
	}
}

// Get retrieves a summary by key.
func (c *SummaryCache) Get(key string) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		c.missCount++
		return Summary{}, false
	}
	c.hitCount++
	item.AccessedAt = time.Now()
	c.lru.moveToFront(item)
	return item.Summary, true
}

// Set stores a summary, evicting the least recently used entries when
// the cache is over its size limit.
func (c *SummaryCache) Set(key string, summary Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.Summary = summary
		item.AccessedAt = time.Now()
		c.lru.moveToFront(item)
		return
	}

	item := &listItem{
		Entry: Entry{
			Key:        key,
			Summary:    summary,
			AccessedAt: time.Now(),
			CreatedAt:  time.Now(),
		},
	}
	c.items[key] = item
	c.lru.pushFront(item)
	c.evictIfNeeded()
}

// Delete removes a key from the cache.
func (c *SummaryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return
	}

	if item.prev != nil {
		item.prev.next = item.next
	} else {
		c.lru.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		c.lru.tail = item.prev
	}
	c.lru.len--
	delete(c.items, key)

	if c.onEvict != nil {
		c.onEvict(key, item.Summary)
	}
}

// Clear removes all entries from the cache.
func (c *SummaryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*listItem)
	c.lru = &lruList{}
}

// Len returns the number of entries in the cache.
func (c *SummaryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *SummaryCache) evictIfNeeded() {
	for c.maxSize > 0 && c.lru.len > c.maxSize {
		item := c.lru.removeBack()
		if item == nil {
			break
		}
		delete(c.items, item.Key)
		if c.onEvict != nil {
			c.onEvict(item.Key, item.Summary)
		}
	}
}

// Stats reports hit and miss counts since creation or the last reset.
type Stats struct {
	Length    int   `json:"length"`
	HitCount  int64 `json:"hit_count"`
	MissCount int64 `json:"miss_count"`
}

// Stats returns the current cache statistics.
func (c *SummaryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Length:    len(c.items),
		HitCount:  c.hitCount,
		MissCount: c.missCount,
	}
}

// HitRate returns the fraction of lookups served from the cache.
func (c *SummaryCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hitCount + c.missCount
	if total == 0 {
		return 0
	}
	return float64(c.hitCount) / float64(total)
}

// ResetStats resets the hit and miss counters.
func (c *SummaryCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hitCount = 0
	c.missCount = 0
}

// Save persists the cache to a writer using msgpack. Entries are
// written in LRU order so Load restores the same recency ordering.
func (c *SummaryCache) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.items))
	for item := c.lru.head; item != nil; item = item.next {
		entries = append(entries, item.Entry)
	}

	enc := msgpack.NewEncoder(w)
	return enc.Encode(entries)
}

// Load restores the cache from a reader using msgpack, replacing any
// existing entries.
func (c *SummaryCache) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entries []Entry
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode summary cache: %w", err)
	}

	c.items = make(map[string]*listItem)
	c.lru = &lruList{}

	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		item := &listItem{Entry: entry}
		c.items[entry.Key] = item
		c.lru.pushFront(item)
	}
	return nil
}

// PersistToFile saves the cache to a file.
func PersistToFile(c *SummaryCache, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()
	return c.Save(f)
}

// LoadFromFile loads the cache from a file. A missing file is not an
// error; the cache starts empty.
func LoadFromFile(c *SummaryCache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}
