// Package ordering implements the in-memory structures that keep a user
// grouping+sort order over the base store's rows: the per-group page
// chains (GroupIndex), the row-id ↔ position resolution (Locator), the
// comparator dispatch (Comparator), the insert/delete/bulk-delete engine
// (Mutator), the commit-time split/drop pass (Rebalancer), and the
// first-registration rebuild path (Populator).
package ordering

import (
	"github.com/Felmond13/orderedview/viewcore"
)

// GroupIndex is the in-memory mirror of every group's page chain: an
// ordered sequence of PageMeta per group (index 0 is the head/first page),
// plus the reverse map from PageId to the Group it belongs to. It stores
// only PageMeta, never page bodies — those live in PageCache/PageStore.
//
// A GroupIndex value is a point-in-time snapshot. Readers hold a pointer to
// one and never see it mutate out from under them; a writer works against
// a private Clone() and the result replaces the shared pointer at commit
// (spec.md §5's "frozen snapshot" / "dirty overlay merged at commit" rule),
// mirroring the snapshot-cloning MVCC-light approach
// Felmond13-novusdb/storage/document.go's sibling package documents for its
// own table snapshots.
type GroupIndex struct {
	pages        map[viewcore.Group][]viewcore.PageMeta
	pageGroup    map[viewcore.PageId]viewcore.Group
	groupsOrder  []viewcore.Group // insertion order, for deterministic groups()
}

// NewGroupIndex returns an empty index (e.g. right after ClearAll).
func NewGroupIndex() *GroupIndex {
	return &GroupIndex{
		pages:     make(map[viewcore.Group][]viewcore.PageMeta),
		pageGroup: make(map[viewcore.PageId]viewcore.Group),
	}
}

// Clone returns a private, independently mutable copy. Writers mutate the
// clone; the shared index is only ever replaced wholesale, never mutated
// in place, so concurrent readers of the original are unaffected.
func (gi *GroupIndex) Clone() *GroupIndex {
	out := NewGroupIndex()
	for g, list := range gi.pages {
		cp := make([]viewcore.PageMeta, len(list))
		copy(cp, list)
		out.pages[g] = cp
	}
	for p, g := range gi.pageGroup {
		out.pageGroup[p] = g
	}
	out.groupsOrder = append(out.groupsOrder[:0:0], gi.groupsOrder...)
	return out
}

// Groups returns every non-empty group, in the order each was first
// created — not map-iteration order — so UI-style consumers see a stable
// section ordering across reads (SPEC_FULL.md §4.12).
func (gi *GroupIndex) Groups() []viewcore.Group {
	out := make([]viewcore.Group, 0, len(gi.groupsOrder))
	seen := make(map[viewcore.Group]bool, len(gi.groupsOrder))
	for _, g := range gi.groupsOrder {
		if _, ok := gi.pages[g]; ok && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// GroupCount reports how many non-empty groups currently exist.
func (gi *GroupIndex) GroupCount() int {
	return len(gi.pages)
}

// PagesInGroup returns the ordered page-chain for a group, head first. The
// returned slice must not be mutated by the caller.
func (gi *GroupIndex) PagesInGroup(g viewcore.Group) []viewcore.PageMeta {
	return gi.pages[g]
}

// GroupOf resolves which group a page belongs to.
func (gi *GroupIndex) GroupOf(pageID viewcore.PageId) (viewcore.Group, bool) {
	g, ok := gi.pageGroup[pageID]
	return g, ok
}

// RowCount sums PageMeta.Count across every page in a group.
func (gi *GroupIndex) RowCount(g viewcore.Group) int {
	total := 0
	for _, m := range gi.pages[g] {
		total += m.Count
	}
	return total
}

// TotalRowCount sums RowCount across every group.
func (gi *GroupIndex) TotalRowCount() int {
	total := 0
	for g := range gi.pages {
		total += gi.RowCount(g)
	}
	return total
}

// relink fixes up Prev/Next pointers for every page in a group to match
// slice order, restoring invariant 1 after any structural edit.
func (gi *GroupIndex) relink(g viewcore.Group) {
	list := gi.pages[g]
	for i := range list {
		if i == 0 {
			list[i].PrevPageID = ""
		} else {
			list[i].PrevPageID = list[i-1].PageID
		}
		if i == len(list)-1 {
			list[i].NextPageID = ""
		} else {
			list[i].NextPageID = list[i+1].PageID
		}
		list[i].Group = g
		gi.pageGroup[list[i].PageID] = g
	}
}

// CreateGroup creates a brand-new group containing exactly one page.
func (gi *GroupIndex) CreateGroup(g viewcore.Group, meta viewcore.PageMeta) {
	gi.pages[g] = []viewcore.PageMeta{meta}
	gi.groupsOrder = append(gi.groupsOrder, g)
	gi.relink(g)
}

// InsertPageAt splices a new page into a group's chain at position pos
// (0 = head). The group must already exist.
func (gi *GroupIndex) InsertPageAt(g viewcore.Group, pos int, meta viewcore.PageMeta) {
	list := gi.pages[g]
	list = append(list, viewcore.PageMeta{})
	copy(list[pos+1:], list[pos:])
	list[pos] = meta
	gi.pages[g] = list
	gi.relink(g)
}

// UpdatePageMeta copies meta.Count onto the existing page with the same
// PageID, preserving its chain position; the page's other fields are left
// as they are.
func (gi *GroupIndex) UpdatePageMeta(g viewcore.Group, meta viewcore.PageMeta) {
	list := gi.pages[g]
	for i := range list {
		if list[i].PageID == meta.PageID {
			list[i].Count = meta.Count
			break
		}
	}
	gi.relink(g)
}

// RemovePage unlinks a page from its group's chain and forgets it. If the
// group becomes empty, it is dropped from the index entirely (its position
// in groupsOrder is left as a tombstone; Groups() filters it out).
func (gi *GroupIndex) RemovePage(g viewcore.Group, pageID viewcore.PageId) {
	list := gi.pages[g]
	for i, m := range list {
		if m.PageID == pageID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(gi.pageGroup, pageID)
	if len(list) == 0 {
		delete(gi.pages, g)
		return
	}
	gi.pages[g] = list
	gi.relink(g)
}

// PageAt returns the PageMeta at position pos within group g's chain.
func (gi *GroupIndex) PageAt(g viewcore.Group, pos int) (viewcore.PageMeta, bool) {
	list := gi.pages[g]
	if pos < 0 || pos >= len(list) {
		return viewcore.PageMeta{}, false
	}
	return list[pos], true
}

// PagePosition returns the index of a page within its group's chain.
func (gi *GroupIndex) PagePosition(g viewcore.Group, pageID viewcore.PageId) (int, bool) {
	for i, m := range gi.pages[g] {
		if m.PageID == pageID {
			return i, true
		}
	}
	return 0, false
}

// Neighbours returns the previous and next PageMeta around pos, if present.
func (gi *GroupIndex) Neighbours(g viewcore.Group, pos int) (prev, next *viewcore.PageMeta) {
	list := gi.pages[g]
	if pos-1 >= 0 && pos-1 < len(list) {
		v := list[pos-1]
		prev = &v
	}
	if pos+1 < len(list) {
		v := list[pos+1]
		next = &v
	}
	return prev, next
}
