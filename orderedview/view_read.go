package orderedview

import (
	"context"

	"github.com/Felmond13/orderedview/pagestore"
	"github.com/Felmond13/orderedview/viewcore"
)

// reader builds a read-only view over the currently-committed snapshot,
// for callers with no active Txn. conn may be a *sql.DB (or any
// pagestore.Conn) usable outside an explicit write transaction.
func (v *View) reader(ctx context.Context, conn pagestore.Conn) *reader {
	return &reader{
		gi:    v.snapshot(),
		pages: &roPages{ctx: ctx, conn: conn, store: v.store, cache: v.cache},
	}
}

func (v *View) GroupCount(ctx context.Context, conn pagestore.Conn) int {
	return v.reader(ctx, conn).GroupCount()
}

func (v *View) Groups(ctx context.Context, conn pagestore.Conn) []viewcore.Group {
	return v.reader(ctx, conn).Groups()
}

func (v *View) RowCount(ctx context.Context, conn pagestore.Conn, g viewcore.Group) int {
	return v.reader(ctx, conn).RowCount(g)
}

func (v *View) TotalRowCount(ctx context.Context, conn pagestore.Conn) int {
	return v.reader(ctx, conn).TotalRowCount()
}

func (v *View) Get(ctx context.Context, conn pagestore.Conn, g viewcore.Group, index int) (viewcore.RowId, bool, error) {
	return v.reader(ctx, conn).Get(g, index)
}

func (v *View) First(ctx context.Context, conn pagestore.Conn, g viewcore.Group) (viewcore.RowId, bool, error) {
	return v.reader(ctx, conn).First(g)
}

func (v *View) Last(ctx context.Context, conn pagestore.Conn, g viewcore.Group) (viewcore.RowId, bool, error) {
	return v.reader(ctx, conn).Last(g)
}

func (v *View) Locate(ctx context.Context, conn pagestore.Conn, row viewcore.RowId) (viewcore.Group, int, bool, error) {
	r := v.reader(ctx, conn)
	km := &roKeyMap{ctx: ctx, conn: conn, store: v.store, cache: v.cache}
	return r.Locate(row, km)
}

func (v *View) Enumerate(ctx context.Context, conn pagestore.Conn, g viewcore.Group, rng Range, reverse bool, fn func(row viewcore.RowId, index int) (stop bool, err error)) error {
	return v.reader(ctx, conn).Enumerate(ctx, g, rng, reverse, fn)
}

// --- the same surface, scoped to one in-flight Txn (read-your-own-writes) ---

func (t *Txn) reader() *reader {
	return &reader{gi: t.gi, pages: t.pages, mutTrk: t.overlay}
}

func (t *Txn) GroupCount() int               { return t.reader().GroupCount() }
func (t *Txn) Groups() []viewcore.Group      { return t.reader().Groups() }
func (t *Txn) RowCount(g viewcore.Group) int { return t.reader().RowCount(g) }
func (t *Txn) TotalRowCount() int            { return t.reader().TotalRowCount() }

func (t *Txn) Get(g viewcore.Group, index int) (viewcore.RowId, bool, error) {
	return t.reader().Get(g, index)
}

func (t *Txn) First(g viewcore.Group) (viewcore.RowId, bool, error) {
	return t.reader().First(g)
}

func (t *Txn) Last(g viewcore.Group) (viewcore.RowId, bool, error) {
	return t.reader().Last(g)
}

func (t *Txn) Locate(row viewcore.RowId) (viewcore.Group, int, bool, error) {
	return t.reader().Locate(row, t.keymap)
}

func (t *Txn) Enumerate(g viewcore.Group, rng Range, reverse bool, fn func(row viewcore.RowId, index int) (stop bool, err error)) error {
	return t.reader().Enumerate(t.ctx, g, rng, reverse, fn)
}
