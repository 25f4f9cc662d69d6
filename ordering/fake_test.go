package ordering

import "github.com/Felmond13/orderedview/viewcore"

// fakePages is an in-memory Pages implementation for this package's tests;
// the real implementation layers viewtxn.Overlay over pagestore.Cache.
type fakePages struct {
	bodies map[viewcore.PageId][]viewcore.RowId
	metas  map[viewcore.PageId]viewcore.PageMeta
	nextID int
}

func newFakePages() *fakePages {
	return &fakePages{
		bodies: make(map[viewcore.PageId][]viewcore.RowId),
		metas:  make(map[viewcore.PageId]viewcore.PageMeta),
	}
}

func (f *fakePages) Rows(pageID viewcore.PageId) ([]viewcore.RowId, error) {
	return append([]viewcore.RowId{}, f.bodies[pageID]...), nil
}

func (f *fakePages) SetRows(pageID viewcore.PageId, rows []viewcore.RowId) {
	f.bodies[pageID] = append([]viewcore.RowId{}, rows...)
}

func (f *fakePages) SetMeta(meta viewcore.PageMeta) {
	f.metas[meta.PageID] = meta
}

func (f *fakePages) DeleteRows(pageID viewcore.PageId) {
	delete(f.bodies, pageID)
	delete(f.metas, pageID)
}

func (f *fakePages) NewPageID() viewcore.PageId {
	f.nextID++
	return viewcore.PageId(rune('A' - 1 + f.nextID))
}

// fakeKeyMap is an in-memory KeyMap implementation for this package's
// tests.
type fakeKeyMap struct {
	m map[viewcore.RowId]viewcore.PageId
}

func newFakeKeyMap() *fakeKeyMap {
	return &fakeKeyMap{m: make(map[viewcore.RowId]viewcore.PageId)}
}

func (k *fakeKeyMap) Lookup(row viewcore.RowId) (viewcore.PageId, bool, error) {
	p, ok := k.m[row]
	return p, ok, nil
}

func (k *fakeKeyMap) LookupMany(rows []viewcore.RowId) (map[viewcore.RowId]viewcore.PageId, error) {
	out := make(map[viewcore.RowId]viewcore.PageId)
	for _, r := range rows {
		if p, ok := k.m[r]; ok {
			out[r] = p
		}
	}
	return out, nil
}

func (k *fakeKeyMap) Set(row viewcore.RowId, pageID viewcore.PageId) {
	k.m[row] = pageID
}

func (k *fakeKeyMap) Delete(row viewcore.RowId) {
	delete(k.m, row)
}

// fakeLog records ChangeRecords for assertions.
type fakeLog struct {
	records []viewcore.ChangeRecord
}

func (l *fakeLog) Append(r viewcore.ChangeRecord) {
	l.records = append(l.records, r)
}
