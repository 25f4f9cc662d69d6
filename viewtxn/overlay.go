package viewtxn

import "github.com/Felmond13/orderedview/viewcore"

// Overlay is the per-transaction dirty state every write path (Mutator,
// Rebalancer, Populator) accumulates into instead of touching the shared
// GroupIndex/PageCache directly. On commit, PageStore flushes the dirty
// sets and the caller merges them into shared state under CommitLock; on
// abort, the Overlay is simply dropped.
type Overlay struct {
	DirtyPages    map[viewcore.PageId][]viewcore.RowId
	DirtyMetas    map[viewcore.PageId]viewcore.PageMeta
	DeletedPages  map[viewcore.PageId]bool
	DirtyKeyMap   map[viewcore.RowId]viewcore.PageId
	DeletedKeyMap map[viewcore.RowId]bool

	Log *ChangeLog

	// Cleared records that clear() ran during this transaction: at commit
	// the caller truncates the underlying tables directly instead of
	// replaying the (now irrelevant) per-page dirty sets below.
	Cleared bool

	// mutatedGroups is cleared before each enumeration and populated by
	// every write path that touches a group, so enumerate() can detect
	// concurrent mutation within the same transaction (spec.md §5).
	mutatedGroups map[viewcore.Group]bool

	// Head/tail insertion fast-path hint slots, cleared by
	// ResetInsertHints. Pure perf hints with no observable effect on the
	// committed result.
	LastInsertAtFirst bool
	LastInsertAtLast  bool
}

// NewOverlay returns an empty overlay for a fresh transaction.
func NewOverlay() *Overlay {
	return &Overlay{
		DirtyPages:    make(map[viewcore.PageId][]viewcore.RowId),
		DirtyMetas:    make(map[viewcore.PageId]viewcore.PageMeta),
		DeletedPages:  make(map[viewcore.PageId]bool),
		DirtyKeyMap:   make(map[viewcore.RowId]viewcore.PageId),
		DeletedKeyMap: make(map[viewcore.RowId]bool),
		Log:           NewChangeLog(),
		mutatedGroups: make(map[viewcore.Group]bool),
	}
}

// SetPage marks a page's body dirty (pending write at commit).
func (o *Overlay) SetPage(id viewcore.PageId, rows []viewcore.RowId) {
	o.DirtyPages[id] = rows
	delete(o.DeletedPages, id)
}

// SetMeta marks a page's meta dirty.
func (o *Overlay) SetMeta(m viewcore.PageMeta) {
	o.DirtyMetas[m.PageID] = m
}

// DeletePage marks a page (body + meta) for deletion at commit.
func (o *Overlay) DeletePage(id viewcore.PageId) {
	o.DeletedPages[id] = true
	delete(o.DirtyPages, id)
	delete(o.DirtyMetas, id)
}

// SetKeyMap marks a row's page assignment dirty.
func (o *Overlay) SetKeyMap(row viewcore.RowId, pageID viewcore.PageId) {
	o.DirtyKeyMap[row] = pageID
	delete(o.DeletedKeyMap, row)
}

// DeleteKeyMap tombstones a row's key-map entry.
func (o *Overlay) DeleteKeyMap(row viewcore.RowId) {
	o.DeletedKeyMap[row] = true
	delete(o.DirtyKeyMap, row)
}

// MarkGroupMutated records that group g was touched by a write path during
// the current enumeration epoch.
func (o *Overlay) MarkGroupMutated(g viewcore.Group) {
	o.mutatedGroups[g] = true
}

// GroupMutated reports whether g was touched since the last ResetMutationTracking.
func (o *Overlay) GroupMutated(g viewcore.Group) bool {
	return o.mutatedGroups[g]
}

// MutatedGroups returns a copy of every group touched since the last
// ResetMutationTracking, for callers that need the whole set rather than a
// single membership check.
func (o *Overlay) MutatedGroups() map[viewcore.Group]bool {
	out := make(map[viewcore.Group]bool, len(o.mutatedGroups))
	for g := range o.mutatedGroups {
		out[g] = true
	}
	return out
}

// ResetMutationTracking clears the mutated-groups set; called before each
// enumeration begins.
func (o *Overlay) ResetMutationTracking() {
	o.mutatedGroups = make(map[viewcore.Group]bool)
}

// MarkCleared records that clear() truncated the view during this
// transaction, discarding any dirty page/meta/keymap state accumulated so
// far (it is now moot: the tables are about to be dropped wholesale).
func (o *Overlay) MarkCleared() {
	o.Cleared = true
	o.DirtyPages = make(map[viewcore.PageId][]viewcore.RowId)
	o.DirtyMetas = make(map[viewcore.PageId]viewcore.PageMeta)
	o.DeletedPages = make(map[viewcore.PageId]bool)
	o.DirtyKeyMap = make(map[viewcore.RowId]viewcore.PageId)
	o.DeletedKeyMap = make(map[viewcore.RowId]bool)
}

// ResetInsertHints clears the head/tail fast-path hints.
func (o *Overlay) ResetInsertHints() {
	o.LastInsertAtFirst = false
	o.LastInsertAtLast = false
}
