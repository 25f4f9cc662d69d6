package orderedview

import (
	"context"

	"github.com/Felmond13/orderedview/ordering"
	"github.com/Felmond13/orderedview/pagestore"
	"github.com/Felmond13/orderedview/viewcore"
	"github.com/Felmond13/orderedview/viewtxn"
)

// txnPages implements ordering.Pages by layering a transaction's Overlay
// over the view's shared decode Cache over its durable Store, exactly the
// three-tier read path spec.md §4 describes: dirty overlay first, then
// cache, then storage.
type txnPages struct {
	ctx     context.Context
	conn    pagestore.Conn
	store   *pagestore.Store
	cache   *pagestore.Cache
	overlay *viewtxn.Overlay

	// enumerating is set on the copy forEnumeration hands to a scan, so a
	// long Enumerate doesn't evict hot pages out from under a concurrent
	// reader by filling the cache unconditionally (spec.md §4.2).
	enumerating bool
}

func (p *txnPages) Rows(id viewcore.PageId) ([]viewcore.RowId, error) {
	if rows, ok := p.overlay.DirtyPages[id]; ok {
		return rows, nil
	}
	if p.overlay.DeletedPages[id] {
		return nil, nil
	}
	// Cache-backed rows are copied so the Mutator's in-place edits land
	// only in the overlay, never in the shared cache's slice.
	if rows, ok := p.cache.GetPage(id); ok {
		return append([]viewcore.RowId(nil), rows...), nil
	}
	rows, err := p.store.ReadPage(p.ctx, p.conn, id)
	if err != nil {
		return nil, err
	}
	if p.enumerating {
		p.cache.PutPageIfNotFull(id, rows)
	} else {
		p.cache.PutPage(id, rows)
	}
	return append([]viewcore.RowId(nil), rows...), nil
}

// forEnumeration returns a copy of p with enumeration-mode cache fills, for
// the duration of a single Enumerate scan.
func (p *txnPages) forEnumeration() ordering.Pages {
	cp := *p
	cp.enumerating = true
	return &cp
}

func (p *txnPages) SetRows(id viewcore.PageId, rows []viewcore.RowId) {
	p.overlay.SetPage(id, rows)
}

func (p *txnPages) SetMeta(meta viewcore.PageMeta) {
	p.overlay.SetMeta(meta)
}

func (p *txnPages) DeleteRows(id viewcore.PageId) {
	p.overlay.DeletePage(id)
}

func (p *txnPages) NewPageID() viewcore.PageId {
	return pagestore.NewPageID()
}

// txnKeyMap implements ordering.KeyMap the same way: overlay, then cache,
// then the mapping table.
type txnKeyMap struct {
	ctx     context.Context
	conn    pagestore.Conn
	store   *pagestore.Store
	cache   *pagestore.Cache
	overlay *viewtxn.Overlay
}

func (k *txnKeyMap) Lookup(row viewcore.RowId) (viewcore.PageId, bool, error) {
	if id, ok := k.overlay.DirtyKeyMap[row]; ok {
		return id, true, nil
	}
	if k.overlay.DeletedKeyMap[row] {
		return "", false, nil
	}
	if id, known := k.cache.GetKey(row); known {
		return id, id != "", nil
	}
	id, found, err := k.store.LookupKeyMap(k.ctx, k.conn, row)
	if err != nil {
		return "", false, err
	}
	if found {
		k.cache.PutKey(row, id)
	} else {
		k.cache.PutKeyAbsent(row)
	}
	return id, found, nil
}

func (k *txnKeyMap) LookupMany(rows []viewcore.RowId) (map[viewcore.RowId]viewcore.PageId, error) {
	out := make(map[viewcore.RowId]viewcore.PageId, len(rows))
	var misses []viewcore.RowId
	for _, row := range rows {
		if id, ok := k.overlay.DirtyKeyMap[row]; ok {
			out[row] = id
			continue
		}
		if k.overlay.DeletedKeyMap[row] {
			continue
		}
		if id, known := k.cache.GetKey(row); known {
			if id != "" {
				out[row] = id
			}
			continue
		}
		misses = append(misses, row)
	}
	if len(misses) == 0 {
		return out, nil
	}
	found, err := k.store.LookupKeyMapMany(k.ctx, k.conn, misses)
	if err != nil {
		return nil, err
	}
	for _, row := range misses {
		if id, ok := found[row]; ok {
			out[row] = id
			k.cache.PutKey(row, id)
		} else {
			k.cache.PutKeyAbsent(row)
		}
	}
	return out, nil
}

func (k *txnKeyMap) Set(row viewcore.RowId, pageID viewcore.PageId) {
	k.overlay.SetKeyMap(row, pageID)
}

func (k *txnKeyMap) Delete(row viewcore.RowId) {
	k.overlay.DeleteKeyMap(row)
}
