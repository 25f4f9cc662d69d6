package ordering

import (
	"testing"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/viewcore"
)

func TestPopulator_Run_InsertsQualifyingRowsOnly(t *testing.T) {
	grouping := viewcore.GroupingFunc{Shape: viewcore.ShapeKeyObject, Fn: func(r viewcore.Row) (viewcore.Group, bool) {
		tag, _ := r.Object.(string)
		if tag == "" {
			return "", false
		}
		return viewcore.Group(tag), true
	}}
	sorting := viewcore.SortingFunc{Shape: viewcore.ShapeKey, Fn: func(a, b viewcore.Row) viewcore.Ordering {
		switch {
		case a.RowID.Key < b.RowID.Key:
			return viewcore.OrderedAscending
		case a.RowID.Key > b.RowID.Key:
			return viewcore.OrderedDescending
		default:
			return viewcore.OrderedSame
		}
	}}
	cmp := NewComparator(grouping, sorting)

	txn := baserow.NewMemTxn()
	txn.Put("notes", "a", "work", nil)
	txn.Put("notes", "b", "home", nil)
	txn.Put("notes", "c", "", nil) // excluded: grouping returns ok=false
	txn.Put("notes", "d", "work", nil)

	gi := NewGroupIndex()
	pages := newFakePages()
	km := newFakeKeyMap()
	log := &fakeLog{}
	mu := NewMutator(gi, pages, km, cmp, txn, log, gi.markNoop, false, false)
	pop := NewPopulator(cmp, mu)

	if err := pop.Run(txn, txn); err != nil {
		t.Fatalf("populate: %v", err)
	}

	if gi.TotalRowCount() != 3 {
		t.Fatalf("totalRowCount = %d, want 3", gi.TotalRowCount())
	}
	if gi.RowCount("work") != 2 {
		t.Fatalf("rowCount(work) = %d, want 2", gi.RowCount("work"))
	}
	if gi.RowCount("home") != 1 {
		t.Fatalf("rowCount(home) = %d, want 1", gi.RowCount("home"))
	}
	if _, found, _ := km.Lookup(keyRow("c")); found {
		t.Errorf("row c should have been excluded by grouping")
	}
}
