package orderedview

import (
	"context"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/ordering"
	"github.com/Felmond13/orderedview/pagestore"
	"github.com/Felmond13/orderedview/viewcore"
	"github.com/Felmond13/orderedview/viewtxn"
)

// Txn is the view's half of one outer base-store transaction: it wraps
// the caller's baserow.Txn and pagestore.Conn, accumulates a dirty Overlay
// as hooks fire, and on Commit runs the Rebalancer and flushes everything
// into the shared Store/Cache/GroupIndex under the view's CommitLock. Txn
// is not safe for concurrent use; the base store's own single-writer
// model is what makes that acceptable (spec.md §5).
type Txn struct {
	view *View
	ctx  context.Context
	conn pagestore.Conn
	base baserow.Txn

	overlay *viewtxn.Overlay
	gi      *ordering.GroupIndex
	pages   *txnPages
	keymap  *txnKeyMap
	mutator *ordering.Mutator
}

// Begin starts a writer transaction against the view, cloning the
// currently-committed GroupIndex as this transaction's private working
// copy (spec.md §5's "writer mutates a dirty overlay" model). base is the
// same outer transaction handle the caller uses to read/write the base
// store itself.
func (v *View) Begin(ctx context.Context, conn pagestore.Conn, base baserow.Txn) *Txn {
	return v.begin(ctx, conn, base)
}

func (v *View) begin(ctx context.Context, conn pagestore.Conn, base baserow.Txn) *Txn {
	overlay := viewtxn.NewOverlay()
	pages := &txnPages{ctx: ctx, conn: conn, store: v.store, cache: v.cache, overlay: overlay}
	keymap := &txnKeyMap{ctx: ctx, conn: conn, store: v.store, cache: v.cache, overlay: overlay}
	gi := v.snapshot().Clone()
	mutator := ordering.NewMutator(gi, pages, keymap, v.cmp, base, overlay.Log, overlay.MarkGroupMutated, false, false)
	return &Txn{
		view: v, ctx: ctx, conn: conn, base: base,
		overlay: overlay, gi: gi, pages: pages, keymap: keymap, mutator: mutator,
	}
}

// --- TxnHook methods: spec.md §6's base-store callback surface ---

// AfterSet handles the base store inserting or replacing a row's object
// and metadata together.
func (t *Txn) AfterSet(collection, key string, object, metadata any) error {
	row := viewcore.RowId{Collection: collection, Key: key}
	group, ok, err := t.view.cmp.Group(row, object, metadata)
	if err != nil {
		return err
	}
	if !ok {
		return t.mutator.Remove(row)
	}
	return t.mutator.Insert(row, object, metadata, group, viewcore.ObjectColumn|viewcore.MetadataColumn, false)
}

// AfterSetMetadata handles the base store replacing only a row's
// metadata, fetching its current object from base only if the registered
// grouping/sorting callbacks actually read it.
func (t *Txn) AfterSetMetadata(collection, key string, metadata any) error {
	row := viewcore.RowId{Collection: collection, Key: key}
	var object any
	if t.view.cmp.GroupingShape().NeedsObject() || t.view.cmp.SortingShape().NeedsObject() {
		obj, err := t.base.Object(collection, key)
		if err != nil {
			return err
		}
		object = obj
	}
	group, ok, err := t.view.cmp.Group(row, object, metadata)
	if err != nil {
		return err
	}
	if !ok {
		return t.mutator.Remove(row)
	}
	return t.mutator.Insert(row, object, metadata, group, viewcore.MetadataColumn, false)
}

// AfterRemove handles the base store deleting a single row.
func (t *Txn) AfterRemove(collection, key string) error {
	return t.mutator.Remove(viewcore.RowId{Collection: collection, Key: key})
}

// AfterRemoveMany handles the base store's bulk-delete path.
func (t *Txn) AfterRemoveMany(collection string, keys []string) error {
	rows := make([]viewcore.RowId, len(keys))
	for i, k := range keys {
		rows[i] = viewcore.RowId{Collection: collection, Key: k}
	}
	return t.mutator.RemoveMany(rows)
}

// AfterRemoveAllInCollection handles the base store truncating one
// collection: every row currently in the view whose RowId.Collection
// matches is removed in one bulk call.
func (t *Txn) AfterRemoveAllInCollection(collection string) error {
	var victims []viewcore.RowId
	for _, g := range t.gi.Groups() {
		for _, meta := range t.gi.PagesInGroup(g) {
			rows, err := t.pages.Rows(meta.PageID)
			if err != nil {
				return err
			}
			for _, r := range rows {
				if r.Collection == collection {
					victims = append(victims, r)
				}
			}
		}
	}
	if len(victims) == 0 {
		return nil
	}
	return t.mutator.RemoveMany(victims)
}

// AfterRemoveAll handles the base store truncating everything: the view
// is reset to empty and the underlying tables are truncated at commit
// instead of replaying per-page dirty state.
func (t *Txn) AfterRemoveAll() error {
	t.mutator.Clear()
	t.overlay.MarkCleared()
	return nil
}

// Touch implements spec.md §6's touch(rowId, columns): appends an
// UpdateRow at the row's current index without moving it. It is a no-op
// when neither the grouping nor the sorting shape reads the object or the
// metadata (spec.md §9); which columns are passed does not affect that
// check.
func (t *Txn) Touch(row viewcore.RowId, columns viewcore.ColumnFlags) error {
	gs, ss := t.view.cmp.GroupingShape(), t.view.cmp.SortingShape()
	if !gs.NeedsObject() && !gs.NeedsMetadata() && !ss.NeedsObject() && !ss.NeedsMetadata() {
		return nil
	}
	pageID, found, err := t.keymap.Lookup(row)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	group, ok := t.gi.GroupOf(pageID)
	if !ok {
		return nil
	}
	idx, err := ordering.NewLocator(t.gi, t.pages).PageOffset(group, pageID, row)
	if err != nil {
		return err
	}
	t.overlay.Log.Append(viewcore.ChangeRecord{Kind: viewcore.ChangeUpdateRow, RowID: row, Group: group, Index: idx, Columns: columns})
	return nil
}

// Commit runs the Rebalancer over every group in the working GroupIndex
// (which covers every group this transaction touched), then, under the
// view's CommitLock, flushes the resulting dirty overlay into Store/Cache
// and publishes the new GroupIndex snapshot. Observers should read t.Log()
// only after Commit returns successfully.
func (t *Txn) Commit() error {
	mutated := allGroupsMutated(t.gi)
	if len(mutated) > 0 {
		reb := ordering.NewRebalancer(t.gi, t.pages, t.keymap, t.overlay.Log)
		if err := reb.Run(mutated); err != nil {
			return err
		}
	}
	t.view.lock.Lock()
	defer t.view.lock.Unlock()
	if err := t.flush(t.ctx); err != nil {
		return err
	}
	if t.overlay.Cleared {
		t.view.shared = ordering.NewGroupIndex()
	} else {
		t.view.shared = t.gi
	}
	return nil
}

// Abort drops the transaction's overlay and working GroupIndex without
// touching shared state or storage.
func (t *Txn) Abort() {}

// Log returns the transaction's accumulated ChangeLog, valid to read after
// a successful Commit.
func (t *Txn) Log() []viewcore.ChangeRecord {
	return t.overlay.Log.Records()
}

func (t *Txn) flush(ctx context.Context) error {
	if t.overlay.Cleared {
		if err := t.view.store.ClearAll(ctx, t.conn); err != nil {
			return err
		}
		t.view.cache.Reset()
		return nil
	}

	touched := make(map[viewcore.PageId]bool, len(t.overlay.DirtyPages)+len(t.overlay.DirtyMetas))
	for id := range t.overlay.DirtyPages {
		touched[id] = true
	}
	for id := range t.overlay.DirtyMetas {
		touched[id] = true
	}
	for id := range touched {
		if t.overlay.DeletedPages[id] {
			continue
		}
		rows, ok := t.overlay.DirtyPages[id]
		if !ok {
			r, err := t.pages.Rows(id)
			if err != nil {
				return err
			}
			rows = r
		}
		meta, ok := t.overlay.DirtyMetas[id]
		if !ok {
			pos, found := t.findMetaInGroupIndex(id)
			if !found {
				continue
			}
			meta = pos
		}
		if err := t.view.store.WritePage(ctx, t.conn, id, rows, meta); err != nil {
			return err
		}
		t.view.cache.PutPage(id, rows)
	}
	for id := range t.overlay.DeletedPages {
		if err := t.view.store.DeletePage(ctx, t.conn, id); err != nil {
			return err
		}
		t.view.cache.InvalidatePage(id)
	}
	for row, pageID := range t.overlay.DirtyKeyMap {
		if err := t.view.store.PutKeyMap(ctx, t.conn, row, pageID); err != nil {
			return err
		}
		t.view.cache.PutKey(row, pageID)
	}
	for row := range t.overlay.DeletedKeyMap {
		if err := t.view.store.DeleteKeyMap(ctx, t.conn, row); err != nil {
			return err
		}
		t.view.cache.InvalidateKey(row)
	}
	return nil
}

// findMetaInGroupIndex recovers a page's current meta from the working
// GroupIndex when a flush needs it but the overlay never recorded one
// (e.g. a page whose body changed via a path that updates counts through
// GroupIndex directly).
func (t *Txn) findMetaInGroupIndex(id viewcore.PageId) (viewcore.PageMeta, bool) {
	g, ok := t.gi.GroupOf(id)
	if !ok {
		return viewcore.PageMeta{}, false
	}
	pos, ok := t.gi.PagePosition(g, id)
	if !ok {
		return viewcore.PageMeta{}, false
	}
	return t.gi.PageAt(g, pos)
}
