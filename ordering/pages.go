package ordering

import "github.com/Felmond13/orderedview/viewcore"

// Pages is the page-body access Locator, Mutator and Rebalancer need: read
// a page's current row list, replace it, drop it, or mint a new PageId.
// The top-level orderedview package supplies the concrete implementation,
// layering a transaction's dirty overlay over PageCache over PageStore;
// this package only ever sees the logical row lists, never SQL or caching
// concerns.
type Pages interface {
	Rows(pageID viewcore.PageId) ([]viewcore.RowId, error)
	SetRows(pageID viewcore.PageId, rows []viewcore.RowId)
	SetMeta(meta viewcore.PageMeta)
	DeleteRows(pageID viewcore.PageId)
	NewPageID() viewcore.PageId
}

// KeyMap is the RowId → PageId mapping Mutator maintains incrementally.
// Lookups are expected to be cheap (cache-backed); LookupMany exists for
// the bulk-delete path, which resolves its whole victim set in one scan
// instead of one lookup per row (spec.md §4.5).
type KeyMap interface {
	Lookup(row viewcore.RowId) (pageID viewcore.PageId, found bool, err error)
	LookupMany(rows []viewcore.RowId) (map[viewcore.RowId]viewcore.PageId, error)
	Set(row viewcore.RowId, pageID viewcore.PageId)
	Delete(row viewcore.RowId)
}
