package ordering

import (
	"github.com/Felmond13/orderedview/viewcore"
)

// LoadGroupIndex rebuilds a GroupIndex from every persisted PageMeta,
// following spec.md §4.3's prepare-from-disk algorithm: build per-group
// pageId→meta and prevPageId→pageId maps (the "" key holding each group's
// head), then walk each chain from its head. A cycle or a missing link is
// *StructuralCorruption (spec.md §7 taxonomy item 2): on that error the
// caller must treat the whole view as unusable until Populator rebuilds
// it, so this function returns an empty GroupIndex alongside the error
// rather than a partially-built one.
func LoadGroupIndex(metas []viewcore.PageMeta) (*GroupIndex, error) {
	byGroup := make(map[viewcore.Group][]viewcore.PageMeta)
	for _, m := range metas {
		byGroup[m.Group] = append(byGroup[m.Group], m)
	}

	gi := NewGroupIndex()
	// Stable, deterministic group discovery order: first occurrence in the
	// raw meta slice, which for a freshly-loaded table is insertion order
	// as SQLite returns it without an ORDER BY.
	seen := make(map[viewcore.Group]bool)
	var order []viewcore.Group
	for _, m := range metas {
		if !seen[m.Group] {
			seen[m.Group] = true
			order = append(order, m.Group)
		}
	}

	for _, g := range order {
		chain, err := walkChain(g, byGroup[g])
		if err != nil {
			return NewGroupIndex(), err
		}
		gi.pages[g] = chain
		gi.groupsOrder = append(gi.groupsOrder, g)
		gi.relink(g)
	}
	return gi, nil
}

func walkChain(g viewcore.Group, metas []viewcore.PageMeta) ([]viewcore.PageMeta, error) {
	byID := make(map[viewcore.PageId]viewcore.PageMeta, len(metas))
	byPrev := make(map[viewcore.PageId]viewcore.PageId, len(metas)) // prevPageId -> pageId, "" = head
	for _, m := range metas {
		byID[m.PageID] = m
		if existing, ok := byPrev[m.PrevPageID]; ok {
			return nil, &viewcore.InvalidPageChainError{Group: g, Cause: "two pages share the same prev pointer: " + string(existing) + ", " + string(m.PageID)}
		}
		byPrev[m.PrevPageID] = m.PageID
	}

	headID, ok := byPrev[""]
	if !ok {
		if len(metas) == 0 {
			return nil, nil
		}
		return nil, &viewcore.InvalidPageChainError{Group: g, Cause: "no page chain head found"}
	}

	chain := make([]viewcore.PageMeta, 0, len(metas))
	visited := make(map[viewcore.PageId]bool, len(metas))
	cur := headID
	for {
		if visited[cur] {
			return nil, &viewcore.InvalidPageChainError{Group: g, Cause: "cycle detected at page " + string(cur)}
		}
		m, ok := byID[cur]
		if !ok {
			return nil, &viewcore.InvalidPageChainError{Group: g, Cause: "missing link to page " + string(cur)}
		}
		visited[cur] = true
		chain = append(chain, m)
		next, hasNext := byPrev[cur]
		if !hasNext {
			break
		}
		cur = next
	}

	if len(chain) != len(metas) {
		return nil, &viewcore.InvalidPageChainError{Group: g, Cause: "chain does not cover every page"}
	}
	return chain, nil
}
