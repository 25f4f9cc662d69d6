package orderedview

import (
	"context"

	"github.com/Felmond13/orderedview/ordering"
	"github.com/Felmond13/orderedview/pagestore"
	"github.com/Felmond13/orderedview/viewcore"
)

// roPages is a read-only ordering.Pages backed by Cache/Store with no
// overlay, used by View's standalone read API (calls made outside any
// writer Txn). Its mutating methods are unreachable from a read path and
// exist only to satisfy the Pages interface Locator/Mutator share.
type roPages struct {
	ctx   context.Context
	conn  pagestore.Conn
	store *pagestore.Store
	cache *pagestore.Cache

	// enumerating is set on the copy forEnumeration hands to a scan, so a
	// long Enumerate doesn't evict hot pages out from under a concurrent
	// reader by filling the cache unconditionally (spec.md §4.2).
	enumerating bool
}

func (p *roPages) Rows(id viewcore.PageId) ([]viewcore.RowId, error) {
	if rows, ok := p.cache.GetPage(id); ok {
		return rows, nil
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
	return rows, nil
}

// forEnumeration returns a copy of p with enumeration-mode cache fills, for
// the duration of a single Enumerate scan.
func (p *roPages) forEnumeration() ordering.Pages {
	cp := *p
	cp.enumerating = true
	return &cp
}

func (p *roPages) SetRows(viewcore.PageId, []viewcore.RowId) {
	panic("orderedview: roPages is read-only")
}
func (p *roPages) SetMeta(viewcore.PageMeta) {
	panic("orderedview: roPages is read-only")
}
func (p *roPages) DeleteRows(viewcore.PageId) {
	panic("orderedview: roPages is read-only")
}
func (p *roPages) NewPageID() viewcore.PageId {
	panic("orderedview: roPages is read-only")
}

// roKeyMap is the read-only counterpart of roPages, used by View's
// standalone Locate.
type roKeyMap struct {
	ctx   context.Context
	conn  pagestore.Conn
	store *pagestore.Store
	cache *pagestore.Cache
}

func (k *roKeyMap) Lookup(row viewcore.RowId) (viewcore.PageId, bool, error) {
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

func (k *roKeyMap) LookupMany(rows []viewcore.RowId) (map[viewcore.RowId]viewcore.PageId, error) {
	out := make(map[viewcore.RowId]viewcore.PageId, len(rows))
	for _, row := range rows {
		id, found, err := k.Lookup(row)
		if err != nil {
			return nil, err
		}
		if found {
			out[row] = id
		}
	}
	return out, nil
}

func (k *roKeyMap) Set(viewcore.RowId, viewcore.PageId) {
	panic("orderedview: roKeyMap is read-only")
}
func (k *roKeyMap) Delete(viewcore.RowId) {
	panic("orderedview: roKeyMap is read-only")
}
