package ordering

import "github.com/Felmond13/orderedview/viewcore"

// Rebalancer runs at commit time, after every Mutator call in a
// transaction has been applied, to restore the two structural invariants
// Insert/Remove are allowed to violate transiently (spec.md §9's first
// open question): no page may exceed MaxPageSize, and no page may be
// empty. It operates on the same GroupIndex/Pages pair a Mutator used, so
// its splits and drops land in the same Overlay.
type Rebalancer struct {
	gi     *GroupIndex
	pages  Pages
	keymap KeyMap
	log    changeLogger
}

// NewRebalancer binds a Rebalancer to a transaction's working GroupIndex.
func NewRebalancer(gi *GroupIndex, pages Pages, keymap KeyMap, log changeLogger) *Rebalancer {
	return &Rebalancer{gi: gi, pages: pages, keymap: keymap, log: log}
}

// Run executes pass A (split oversize pages) then pass B (drop empty
// pages) over every group the caller marked mutated this transaction.
func (r *Rebalancer) Run(mutatedGroups map[viewcore.Group]bool) error {
	for g := range mutatedGroups {
		if err := r.splitOversizePages(g); err != nil {
			return err
		}
	}
	for g := range mutatedGroups {
		r.dropEmptyPages(g)
	}
	return nil
}

// splitOversizePages implements pass A (spec.md §4.6): a page over
// MaxPageSize first tries to unload its overflow onto a neighbour with
// spare room; failing that, up to MaxPageSize rows from its tail move into
// a new page spliced into the chain directly after it.
func (r *Rebalancer) splitOversizePages(g viewcore.Group) error {
	for {
		pages := r.gi.PagesInGroup(g)
		splitAt := -1
		for i, p := range pages {
			if p.Count > MaxPageSize {
				splitAt = i
				break
			}
		}
		if splitAt < 0 {
			return nil
		}

		pos := splitAt
		meta := pages[pos]
		rows, err := r.pages.Rows(meta.PageID)
		if err != nil {
			return err
		}

		if prev, next := r.gi.Neighbours(g, pos); prev != nil && prev.Count < MaxPageSize {
			room := MaxPageSize - prev.Count
			move := len(rows) - MaxPageSize
			if move > room {
				move = room
			}
			prevRows, err := r.pages.Rows(prev.PageID)
			if err != nil {
				return err
			}
			prevRows = append(prevRows, rows[:move]...)
			rows = rows[move:]
			moved := append([]viewcore.RowId{}, prevRows[len(prevRows)-move:]...)
			r.pages.SetRows(prev.PageID, prevRows)
			r.pages.SetRows(meta.PageID, rows)
			r.commitCounts(g, prev.PageID, len(prevRows))
			r.commitCounts(g, meta.PageID, len(rows))
			r.reassignKeyMap(moved, prev.PageID)
			continue
		} else if next != nil && next.Count < MaxPageSize {
			room := MaxPageSize - next.Count
			move := len(rows) - MaxPageSize
			if move > room {
				move = room
			}
			tailStart := len(rows) - move
			nextRows, err := r.pages.Rows(next.PageID)
			if err != nil {
				return err
			}
			moved := append([]viewcore.RowId{}, rows[tailStart:]...)
			nextRows = append(append([]viewcore.RowId{}, rows[tailStart:]...), nextRows...)
			rows = rows[:tailStart]
			r.pages.SetRows(next.PageID, nextRows)
			r.pages.SetRows(meta.PageID, rows)
			r.commitCounts(g, next.PageID, len(nextRows))
			r.commitCounts(g, meta.PageID, len(rows))
			r.reassignKeyMap(moved, next.PageID)
			continue
		}

		move := len(rows) - MaxPageSize
		if move > MaxPageSize {
			move = MaxPageSize
		}
		cut := len(rows) - move
		left := rows[:cut]
		right := append([]viewcore.RowId{}, rows[cut:]...)

		newID := r.pages.NewPageID()
		r.pages.SetRows(meta.PageID, left)
		r.pages.SetRows(newID, right)

		newMeta := viewcore.PageMeta{PageID: newID, Group: g, Count: len(right)}
		r.gi.InsertPageAt(g, pos+1, newMeta)
		r.commitCounts(g, meta.PageID, len(left))
		r.pages.SetMeta(newMeta)
		r.reassignKeyMap(right, newID)
	}
}

func (r *Rebalancer) commitCounts(g viewcore.Group, pageID viewcore.PageId, count int) {
	pos, ok := r.gi.PagePosition(g, pageID)
	if !ok {
		return
	}
	meta, _ := r.gi.PageAt(g, pos)
	meta.Count = count
	r.gi.UpdatePageMeta(g, meta)
	r.pages.SetMeta(meta)
}

// reassignKeyMap updates the key-map entries of rows that just moved onto
// pageID, so lookups resolve to the row's new page immediately.
func (r *Rebalancer) reassignKeyMap(rows []viewcore.RowId, pageID viewcore.PageId) {
	for _, row := range rows {
		r.keymap.Set(row, pageID)
	}
}

// dropEmptyPages implements pass B (spec.md §4.6): a page whose count has
// fallen to zero is unlinked from its chain; if the group itself becomes
// empty, a DeleteGroup record is emitted.
func (r *Rebalancer) dropEmptyPages(g viewcore.Group) {
	for {
		pages := r.gi.PagesInGroup(g)
		victim := viewcore.PageId("")
		for _, p := range pages {
			if p.Count == 0 {
				victim = p.PageID
				break
			}
		}
		if victim == "" {
			return
		}
		r.pages.DeleteRows(victim)
		r.gi.RemovePage(g, victim)
		if len(r.gi.PagesInGroup(g)) == 0 {
			r.log.Append(viewcore.ChangeRecord{Kind: viewcore.ChangeDeleteGroup, Group: g})
			return
		}
	}
}
