package pagestore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Felmond13/orderedview/viewcore"
)

// Cache is the write-through front for Store: a bounded LRU of decoded
// pages keyed by PageId, and a bounded LRU of RowId → PageId lookups, each
// with its own capacity and its own doubly-linked eviction list — the same
// split, capacity-bounded, map-plus-list shape as
// Felmond13-novusdb/storage/lru.go's lruCache, generalized from one fixed
// [PageSize]byte payload to two differently-shaped entries.
//
// A zero limit means unbounded, matching newLRUCache's "capacity <= 0"
// fallback in the teacher, except here unbounded really means unbounded
// (no cap), since view pages are already small (≤ 50 RowIds).
type Cache struct {
	mu sync.Mutex

	pageLimit int
	pages     map[viewcore.PageId]*pageNode
	pageHead  *pageNode
	pageTail  *pageNode

	keyLimit int
	keys     map[viewcore.RowId]*keyNode
	keyHead  *keyNode
	keyTail  *keyNode

	metrics *cacheMetrics
}

type pageNode struct {
	id         viewcore.PageId
	rows       []viewcore.RowId
	prev, next *pageNode
}

// keyNode caches a RowId → PageId lookup. absent=true with pageID=="" is
// the sentinel recording "this row is known not to be in the view", so a
// repeated miss doesn't re-hit the mapping table.
type keyNode struct {
	row        viewcore.RowId
	pageID     viewcore.PageId
	absent     bool
	prev, next *keyNode
}

// NewCache builds a cache with the given per-connection limits (0 = unbounded).
// If reg is non-nil, hit/miss/eviction counters are registered against it;
// a nil registerer means metrics are simply not collected.
func NewCache(pageLimit, keyLimit int, reg prometheus.Registerer) *Cache {
	return &Cache{
		pageLimit: pageLimit,
		pages:     make(map[viewcore.PageId]*pageNode),
		keyLimit:  keyLimit,
		keys:      make(map[viewcore.RowId]*keyNode),
		metrics:   newCacheMetrics(reg),
	}
}

// --- page cache ---

func (c *Cache) GetPage(id viewcore.PageId) ([]viewcore.RowId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.pages[id]
	if !ok {
		c.metrics.observe(metricPageMiss)
		return nil, false
	}
	c.metrics.observe(metricPageHit)
	c.moveToFrontPage(n)
	return n.rows, true
}

// PutPage inserts/updates unconditionally, evicting the LRU entry if the
// cache is over its limit.
func (c *Cache) PutPage(id viewcore.PageId, rows []viewcore.RowId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putPageLocked(id, rows)
}

// PutPageIfNotFull inserts only when the cache has spare capacity. Used
// during enumerations so a long scan doesn't evict hot pages out from
// under a concurrent reader, per spec.md §4.2.
func (c *Cache) PutPageIfNotFull(id viewcore.PageId, rows []viewcore.RowId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pages[id]; ok {
		c.moveToFrontPage(c.pages[id])
		return
	}
	if c.pageLimit > 0 && len(c.pages) >= c.pageLimit {
		return
	}
	c.putPageLocked(id, rows)
}

func (c *Cache) putPageLocked(id viewcore.PageId, rows []viewcore.RowId) {
	if n, ok := c.pages[id]; ok {
		n.rows = rows
		c.moveToFrontPage(n)
		return
	}
	n := &pageNode{id: id, rows: rows}
	c.pages[id] = n
	c.pushFrontPage(n)
	if c.pageLimit > 0 && len(c.pages) > c.pageLimit {
		c.evictPageTail()
	}
}

func (c *Cache) InvalidatePage(id viewcore.PageId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.pages[id]; ok {
		c.unlinkPage(n)
		delete(c.pages, id)
	}
}

func (c *Cache) moveToFrontPage(n *pageNode) {
	if c.pageHead == n {
		return
	}
	c.unlinkPage(n)
	c.pushFrontPage(n)
}

func (c *Cache) pushFrontPage(n *pageNode) {
	n.prev = nil
	n.next = c.pageHead
	if c.pageHead != nil {
		c.pageHead.prev = n
	}
	c.pageHead = n
	if c.pageTail == nil {
		c.pageTail = n
	}
}

func (c *Cache) unlinkPage(n *pageNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if c.pageHead == n {
		c.pageHead = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if c.pageTail == n {
		c.pageTail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *Cache) evictPageTail() {
	tail := c.pageTail
	if tail == nil {
		return
	}
	c.unlinkPage(tail)
	delete(c.pages, tail.id)
	c.metrics.observe(metricPageEvict)
}

// --- key-lookup cache ---

// GetKey returns the cached page for a row. The second return distinguishes
// "unknown, go ask the store" (false) from "known", in which case pageID is
// either a real page or "" when the row is known-absent.
func (c *Cache) GetKey(row viewcore.RowId) (pageID viewcore.PageId, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.keys[row]
	if !ok {
		c.metrics.observe(metricKeyMiss)
		return "", false
	}
	c.metrics.observe(metricKeyHit)
	c.moveToFrontKey(n)
	if n.absent {
		return "", true
	}
	return n.pageID, true
}

func (c *Cache) PutKey(row viewcore.RowId, pageID viewcore.PageId) {
	c.putKey(row, pageID, false)
}

// PutKeyAbsent records that row is known not to be in the view.
func (c *Cache) PutKeyAbsent(row viewcore.RowId) {
	c.putKey(row, "", true)
}

func (c *Cache) putKey(row viewcore.RowId, pageID viewcore.PageId, absent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.keys[row]; ok {
		n.pageID, n.absent = pageID, absent
		c.moveToFrontKey(n)
		return
	}
	n := &keyNode{row: row, pageID: pageID, absent: absent}
	c.keys[row] = n
	c.pushFrontKey(n)
	if c.keyLimit > 0 && len(c.keys) > c.keyLimit {
		c.evictKeyTail()
	}
}

func (c *Cache) InvalidateKey(row viewcore.RowId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.keys[row]; ok {
		c.unlinkKey(n)
		delete(c.keys, row)
	}
}

func (c *Cache) moveToFrontKey(n *keyNode) {
	if c.keyHead == n {
		return
	}
	c.unlinkKey(n)
	c.pushFrontKey(n)
}

func (c *Cache) pushFrontKey(n *keyNode) {
	n.prev = nil
	n.next = c.keyHead
	if c.keyHead != nil {
		c.keyHead.prev = n
	}
	c.keyHead = n
	if c.keyTail == nil {
		c.keyTail = n
	}
}

func (c *Cache) unlinkKey(n *keyNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if c.keyHead == n {
		c.keyHead = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if c.keyTail == n {
		c.keyTail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *Cache) evictKeyTail() {
	tail := c.keyTail
	if tail == nil {
		return
	}
	c.unlinkKey(tail)
	delete(c.keys, tail.row)
	c.metrics.observe(metricKeyEvict)
}

// Reset clears both caches, used by clear() / Populator rebuilds.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[viewcore.PageId]*pageNode)
	c.pageHead, c.pageTail = nil, nil
	c.keys = make(map[viewcore.RowId]*keyNode)
	c.keyHead, c.keyTail = nil, nil
}
