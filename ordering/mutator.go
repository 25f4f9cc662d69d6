package ordering

import (
	"sort"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/viewcore"
)

// MaxPageSize is the capacity of a page before it becomes a rebalance
// candidate. The source only inspects this bound at commit time (spec.md
// §9's first open question) — a page may temporarily hold more rows
// mid-transaction without triggering a split.
const MaxPageSize = 50

// Mutator implements insert / reposition / delete / bulk-delete / clear
// against a writer's private GroupIndex clone and Pages/KeyMap
// capabilities, appending ChangeRecords to the transaction's ChangeLog and
// marking touched groups in the mutation-tracking set as it goes.
type Mutator struct {
	gi      *GroupIndex
	pages   Pages
	keymap  KeyMap
	cmp     *Comparator
	txn     baserow.Txn
	log     changeLogger
	markMut func(viewcore.Group)

	// Head/tail fast-path hints, updated by every Insert and carried over
	// to the next Insert on this Mutator; Hints() reads them.
	hintFirst bool
	hintLast  bool
}

// changeLogger is the minimal slice of viewtxn.ChangeLog the Mutator needs,
// kept as an interface so this package never imports viewtxn directly.
type changeLogger interface {
	Append(viewcore.ChangeRecord)
}

// NewMutator builds a Mutator for one outer transaction. hintFirst/hintLast
// seed the head/tail fast-path hints; each Insert then updates them in
// place, and Hints() reports their current values.
func NewMutator(gi *GroupIndex, pages Pages, keymap KeyMap, cmp *Comparator, txn baserow.Txn, log changeLogger, markMutated func(viewcore.Group), hintFirst, hintLast bool) *Mutator {
	return &Mutator{
		gi: gi, pages: pages, keymap: keymap, cmp: cmp, txn: txn, log: log, markMut: markMutated,
		hintFirst: hintFirst, hintLast: hintLast,
	}
}

// Hints returns the fast-path flags after the most recent Insert, for the
// caller to persist back onto its Overlay.
func (m *Mutator) Hints() (first, last bool) {
	return m.hintFirst, m.hintLast
}

func (m *Mutator) emit(rec viewcore.ChangeRecord) {
	m.log.Append(rec)
	if rec.Group != "" {
		m.markMut(rec.Group)
	}
}

// Insert implements spec.md §4.4. group must already be the result of
// evaluating the registered grouping function for this row; isNew=true
// skips the keymap lookup for rows known to be fresh (Populator's path).
func (m *Mutator) Insert(row viewcore.RowId, object, metadata any, group viewcore.Group, flags viewcore.ColumnFlags, isNew bool) error {
	var existingPageID viewcore.PageId
	found := false
	if !isNew {
		pid, ok, err := m.keymap.Lookup(row)
		if err != nil {
			return err
		}
		existingPageID, found = pid, ok
	}

	tryExistingPosition := false
	existingIndex := 0

	if found {
		existingGroup, _ := m.gi.GroupOf(existingPageID)
		if existingGroup == group {
			if m.cmp.Shape() == viewcore.ShapeKey {
				idx, err := NewLocator(m.gi, m.pages).PageOffset(group, existingPageID, row)
				if err != nil {
					return err
				}
				m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeUpdateRow, RowID: row, Group: group, Index: idx, Columns: flags})
				return nil
			}
			idx, err := NewLocator(m.gi, m.pages).PageOffset(group, existingPageID, row)
			if err != nil {
				return err
			}
			tryExistingPosition = true
			existingIndex = idx
		} else {
			if err := m.removeFromPage(row, existingGroup, existingPageID); err != nil {
				return err
			}
		}
	}

	if len(m.gi.PagesInGroup(group)) == 0 {
		pid := m.pages.NewPageID()
		m.pages.SetRows(pid, []viewcore.RowId{row})
		meta := viewcore.PageMeta{PageID: pid, Group: group, Count: 1}
		m.gi.CreateGroup(group, meta)
		m.pages.SetMeta(meta)
		m.keymap.Set(row, pid)
		m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeInsertGroup, Group: group})
		m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeInsertRow, RowID: row, Group: group, Index: 0})
		m.hintFirst, m.hintLast = true, true
		return nil
	}

	locator := NewLocator(m.gi, m.pages)

	if tryExistingPosition {
		stable, err := m.isStablePosition(locator, group, row, object, metadata, existingIndex)
		if err != nil {
			return err
		}
		if stable {
			m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeUpdateRow, RowID: row, Group: group, Index: existingIndex, Columns: flags})
			return nil
		}
		if err := m.removeFromPage(row, group, existingPageID); err != nil {
			return err
		}
	}

	count := m.gi.RowCount(group)
	index, err := m.resolveInsertIndex(locator, group, row, object, metadata, count)
	if err != nil {
		return err
	}

	pageID, offset, pagePos := m.resolveInsertionPage(group, index)
	rows, err := m.pages.Rows(pageID)
	if err != nil {
		return err
	}
	rows = append(rows, viewcore.RowId{})
	copy(rows[offset+1:], rows[offset:])
	rows[offset] = row
	m.pages.SetRows(pageID, rows)

	meta, _ := m.gi.PageAt(group, pagePos)
	meta.Count = len(rows)
	m.gi.UpdatePageMeta(group, meta)
	m.pages.SetMeta(meta)

	m.keymap.Set(row, pageID)
	m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeInsertRow, RowID: row, Group: group, Index: index})

	m.hintFirst = index == 0
	m.hintLast = index == count
	return nil
}

// isStablePosition implements step 5a: the row stays where it is if its
// neighbours already bracket it in comparator order.
func (m *Mutator) isStablePosition(l *Locator, group viewcore.Group, row viewcore.RowId, object, metadata any, index int) (bool, error) {
	if prevRow, ok, err := l.Get(group, index-1); err != nil {
		return false, err
	} else if ok {
		ord, err := m.cmp.Compare(m.txn, row, object, metadata, prevRow)
		if err != nil {
			return false, err
		}
		if ord == viewcore.OrderedAscending {
			return false, nil
		}
	}
	if nextRow, ok, err := l.Get(group, index+1); err != nil {
		return false, err
	} else if ok {
		ord, err := m.cmp.Compare(m.txn, row, object, metadata, nextRow)
		if err != nil {
			return false, err
		}
		if ord == viewcore.OrderedDescending {
			return false, nil
		}
	}
	return true, nil
}

// resolveInsertIndex implements step 5b/5c: head/tail fast paths, then
// binary search with upper-bound tie resolution.
func (m *Mutator) resolveInsertIndex(l *Locator, group viewcore.Group, row viewcore.RowId, object, metadata any, count int) (int, error) {
	if m.hintFirst {
		if first, ok, err := l.Get(group, 0); err != nil {
			return 0, err
		} else if ok {
			ord, err := m.cmp.Compare(m.txn, row, object, metadata, first)
			if err != nil {
				return 0, err
			}
			if ord == viewcore.OrderedAscending {
				return 0, nil
			}
		}
	}
	if m.hintLast {
		if last, ok, err := l.Get(group, count-1); err != nil {
			return 0, err
		} else if ok {
			ord, err := m.cmp.Compare(m.txn, row, object, metadata, last)
			if err != nil {
				return 0, err
			}
			if ord != viewcore.OrderedAscending {
				return count, nil
			}
		}
	}

	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		midRow, ok, err := l.Get(group, mid)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		ord, err := m.cmp.Compare(m.txn, row, object, metadata, midRow)
		if err != nil {
			return 0, err
		}
		if ord == viewcore.OrderedAscending {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// resolveInsertionPage implements step 6's page-fill rule: the first page
// whose running total exceeds idx holds the slot, except at an exact
// page-start boundary, where the slot goes to the next page unless that
// page is full, in which case it stays at the tail of the current one.
func (m *Mutator) resolveInsertionPage(group viewcore.Group, idx int) (pageID viewcore.PageId, offset int, pagePos int) {
	pages := m.gi.PagesInGroup(group)
	total := 0
	for i, p := range pages {
		if idx < total+p.Count {
			off := idx - total
			if off == 0 && i > 0 && p.Count >= MaxPageSize {
				prev := pages[i-1]
				return prev.PageID, prev.Count, i - 1
			}
			return p.PageID, off, i
		}
		total += p.Count
	}
	last := pages[len(pages)-1]
	return last.PageID, last.Count, len(pages) - 1
}

// removeFromPage is the shared body of Remove and the "unstable, delete
// then reinsert" path: it removes rowId from a known page and emits
// DeleteRow at its current absolute index.
func (m *Mutator) removeFromPage(row viewcore.RowId, group viewcore.Group, pageID viewcore.PageId) error {
	locator := NewLocator(m.gi, m.pages)
	idx, err := locator.PageOffset(group, pageID, row)
	if err != nil {
		return err
	}
	rows, err := m.pages.Rows(pageID)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r == row {
			rows = append(rows[:i], rows[i+1:]...)
			break
		}
	}
	m.pages.SetRows(pageID, rows)
	meta, _ := m.gi.PageAt(group, mustPos(m.gi, group, pageID))
	meta.Count = len(rows)
	m.gi.UpdatePageMeta(group, meta)
	m.pages.SetMeta(meta)
	m.keymap.Delete(row)
	m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeDeleteRow, RowID: row, Group: group, Index: idx})
	return nil
}

func mustPos(gi *GroupIndex, group viewcore.Group, pageID viewcore.PageId) int {
	pos, _ := gi.PagePosition(group, pageID)
	return pos
}

// Remove implements spec.md §4.5: a missing lookup is a successful no-op.
func (m *Mutator) Remove(row viewcore.RowId) error {
	pageID, found, err := m.keymap.Lookup(row)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	group, ok := m.gi.GroupOf(pageID)
	if !ok {
		return nil
	}
	return m.removeFromPage(row, group, pageID)
}

type victim struct {
	row    viewcore.RowId
	group  viewcore.Group
	pageID viewcore.PageId
	absIdx int
}

// RemoveMany implements spec.md §4.5's bulk-delete path: rows are resolved
// to pages in one scan, victim absolute indices are computed against the
// pre-removal snapshot, and DeleteRow records are emitted in strictly
// decreasing index order per group so that indices remain valid as if the
// rows had been deleted one at a time.
func (m *Mutator) RemoveMany(rows []viewcore.RowId) error {
	pageOf, err := m.keymap.LookupMany(rows)
	if err != nil {
		return err
	}
	if len(pageOf) == 0 {
		return nil
	}

	byPage := make(map[viewcore.PageId][]viewcore.RowId)
	for _, r := range rows {
		if p, ok := pageOf[r]; ok {
			byPage[p] = append(byPage[p], r)
		}
	}

	var victims []victim
	pageRowsSnapshot := make(map[viewcore.PageId][]viewcore.RowId, len(byPage))
	for pageID, keys := range byPage {
		group, ok := m.gi.GroupOf(pageID)
		if !ok {
			continue
		}
		rowsInPage, err := m.pages.Rows(pageID)
		if err != nil {
			return err
		}
		pageRowsSnapshot[pageID] = rowsInPage

		pos, _ := m.gi.PagePosition(group, pageID)
		base := 0
		for _, p := range m.gi.PagesInGroup(group)[:pos] {
			base += p.Count
		}

		victimSet := make(map[viewcore.RowId]bool, len(keys))
		for _, k := range keys {
			victimSet[k] = true
		}
		for i, r := range rowsInPage {
			if victimSet[r] {
				victims = append(victims, victim{row: r, group: group, pageID: pageID, absIdx: base + i})
			}
		}
	}

	sort.Slice(victims, func(i, j int) bool {
		if victims[i].group != victims[j].group {
			return victims[i].group < victims[j].group
		}
		return victims[i].absIdx > victims[j].absIdx
	})
	for _, v := range victims {
		m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeDeleteRow, RowID: v.row, Group: v.group, Index: v.absIdx})
		m.keymap.Delete(v.row)
	}

	for pageID, keys := range byPage {
		group, ok := m.gi.GroupOf(pageID)
		if !ok {
			continue
		}
		victimSet := make(map[viewcore.RowId]bool, len(keys))
		for _, k := range keys {
			victimSet[k] = true
		}
		var newRows []viewcore.RowId
		for _, r := range pageRowsSnapshot[pageID] {
			if !victimSet[r] {
				newRows = append(newRows, r)
			}
		}
		m.pages.SetRows(pageID, newRows)
		meta, _ := m.gi.PageAt(group, mustPos(m.gi, group, pageID))
		meta.Count = len(newRows)
		m.gi.UpdatePageMeta(group, meta)
		m.pages.SetMeta(meta)
	}
	return nil
}

// Clear implements spec.md §4.5's clear(): a ResetGroup record is emitted
// for every existing group and the GroupIndex is emptied. It returns
// nothing and touches no storage; truncating the tables at commit is left
// to the caller (orderedview.Txn.AfterRemoveAll marks the overlay cleared).
func (m *Mutator) Clear() {
	for _, g := range m.gi.Groups() {
		m.emit(viewcore.ChangeRecord{Kind: viewcore.ChangeResetGroup, Group: g})
	}
	*m.gi = *NewGroupIndex()
}
