package ordering

import (
	"fmt"

	"github.com/Felmond13/orderedview/viewcore"
)

// Locator converts between a page-relative position and a group's absolute
// index space, and back. Both directions cost O(pages_in_group) plus one
// page fetch, since pages hold at most MaxPageSize rows.
type Locator struct {
	gi    *GroupIndex
	pages Pages
}

// NewLocator builds a Locator bound to the given GroupIndex/Pages pair. The
// GroupIndex is typically a writer's private Clone() or a reader's frozen
// snapshot.
func NewLocator(gi *GroupIndex, pages Pages) *Locator {
	return &Locator{gi: gi, pages: pages}
}

// PageOffset locates rowID's absolute index, given the page it lives on.
func (l *Locator) PageOffset(group viewcore.Group, pageID viewcore.PageId, rowID viewcore.RowId) (int, error) {
	pos, ok := l.gi.PagePosition(group, pageID)
	if !ok {
		return 0, fmt.Errorf("ordering: page %s not found in group %q", pageID, group)
	}
	rows, err := l.pages.Rows(pageID)
	if err != nil {
		return 0, err
	}
	offset := -1
	for i, r := range rows {
		if r == rowID {
			offset = i
			break
		}
	}
	if offset < 0 {
		return 0, fmt.Errorf("ordering: row %s not found in page %s", rowID, pageID)
	}
	base := 0
	for _, m := range l.gi.PagesInGroup(group)[:pos] {
		base += m.Count
	}
	return base + offset, nil
}

// resolvePage walks a group's chain summing counts to find which page
// contains absolute index idx, returning the page's chain position and the
// running total of rows in every preceding page (idx - runningTotal is the
// offset within that page).
func (l *Locator) resolvePage(group viewcore.Group, idx int) (pos int, runningTotal int, ok bool) {
	total := 0
	for i, m := range l.gi.PagesInGroup(group) {
		if idx < total+m.Count {
			return i, total, true
		}
		total += m.Count
	}
	return 0, total, false
}

// Get resolves (group, index) to a RowId.
func (l *Locator) Get(group viewcore.Group, index int) (viewcore.RowId, bool, error) {
	if index < 0 {
		return viewcore.RowId{}, false, nil
	}
	pos, base, ok := l.resolvePage(group, index)
	if !ok {
		return viewcore.RowId{}, false, nil
	}
	meta, _ := l.gi.PageAt(group, pos)
	rows, err := l.pages.Rows(meta.PageID)
	if err != nil {
		return viewcore.RowId{}, false, err
	}
	off := index - base
	if off < 0 || off >= len(rows) {
		return viewcore.RowId{}, false, nil
	}
	return rows[off], true, nil
}
