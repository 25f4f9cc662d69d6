package ordering

import (
	"testing"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/viewcore"
)

func keyRow(key string) viewcore.RowId {
	return viewcore.RowId{Collection: "notes", Key: key}
}

func keyShapeMutator() (*Comparator, *Mutator, *GroupIndex, *fakePages, *fakeKeyMap, *fakeLog) {
	grouping := viewcore.GroupingFunc{Shape: viewcore.ShapeKey, Fn: func(r viewcore.Row) (viewcore.Group, bool) {
		return "G", true
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
	gi := NewGroupIndex()
	pages := newFakePages()
	km := newFakeKeyMap()
	log := &fakeLog{}
	mu := NewMutator(gi, pages, km, cmp, baserow.NewMemTxn(), log, gi.markNoop, false, false)
	return cmp, mu, gi, pages, km, log
}

// markNoop lets fake callers exercise Mutator without a real Overlay; the
// mutated-groups bookkeeping itself is viewtxn's concern, not ordering's.
func (gi *GroupIndex) markNoop(viewcore.Group) {}

func TestMutator_Insert_Scenario1(t *testing.T) {
	cmp, mu, gi, _, _, log := keyShapeMutator()

	for _, k := range []string{"a", "b", "c"} {
		row := keyRow(k)
		g, ok, err := cmp.Group(row, nil, nil)
		if err != nil || !ok {
			t.Fatalf("group: %v %v", ok, err)
		}
		if err := mu.Insert(row, nil, nil, g, 0, false); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}

	if gi.RowCount("G") != 3 {
		t.Fatalf("rowCount = %d, want 3", gi.RowCount("G"))
	}

	want := []viewcore.ChangeKind{
		viewcore.ChangeInsertGroup,
		viewcore.ChangeInsertRow,
		viewcore.ChangeInsertRow,
		viewcore.ChangeInsertRow,
	}
	if len(log.records) != len(want) {
		t.Fatalf("log len = %d, want %d: %+v", len(log.records), len(want), log.records)
	}
	for i, k := range want {
		if log.records[i].Kind != k {
			t.Errorf("record %d kind = %v, want %v", i, log.records[i].Kind, k)
		}
	}
	for i, rec := range log.records[1:] {
		if rec.Index != i {
			t.Errorf("record %d index = %d, want %d", i+1, rec.Index, i)
		}
	}

	loc := NewLocator(gi, mu.pages)
	b, ok, err := loc.Get("G", 1)
	if err != nil || !ok || b.Key != "b" {
		t.Fatalf("get(G,1) = %v,%v,%v want b", b, ok, err)
	}
}

func TestMutator_MetadataReposition_EmitsDeleteThenInsert(t *testing.T) {
	grouping := viewcore.GroupingFunc{Shape: viewcore.ShapeKey, Fn: func(r viewcore.Row) (viewcore.Group, bool) {
		return "G", true
	}}
	sorting := viewcore.SortingFunc{Shape: viewcore.ShapeKeyMetadata, Fn: func(a, b viewcore.Row) viewcore.Ordering {
		ai, _ := a.Metadata.(int)
		bi, _ := b.Metadata.(int)
		switch {
		case ai < bi:
			return viewcore.OrderedAscending
		case ai > bi:
			return viewcore.OrderedDescending
		default:
			return viewcore.OrderedSame
		}
	}}
	cmp := NewComparator(grouping, sorting)
	gi := NewGroupIndex()
	pages := newFakePages()
	km := newFakeKeyMap()
	log := &fakeLog{}
	txn := baserow.NewMemTxn()
	mu := NewMutator(gi, pages, km, cmp, txn, log, gi.markNoop, false, false)

	rows := []string{"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7"}
	for i, k := range rows {
		row := keyRow(k)
		txn.Put("notes", k, nil, i)
		if err := mu.Insert(row, nil, i, "G", 0, false); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}

	target := keyRow("r3")
	txn.Put("notes", "r3", nil, 100)
	log.records = nil
	if err := mu.Insert(target, nil, 100, "G", viewcore.MetadataColumn, false); err != nil {
		t.Fatalf("reposition insert: %v", err)
	}

	var kinds []viewcore.ChangeKind
	for _, r := range log.records {
		kinds = append(kinds, r.Kind)
	}
	if len(kinds) != 2 || kinds[0] != viewcore.ChangeDeleteRow || kinds[1] != viewcore.ChangeInsertRow {
		t.Fatalf("change kinds = %v, want [DeleteRow InsertRow]", kinds)
	}
}

func TestMutator_Touch_EmitsUpdateRowOnly(t *testing.T) {
	_, mu, gi, _, _, log := keyShapeMutator()
	for _, k := range []string{"a", "b", "c"} {
		if err := mu.Insert(keyRow(k), nil, nil, "G", 0, false); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if gi.RowCount("G") != 3 {
		t.Fatalf("rowCount = %d", gi.RowCount("G"))
	}
	log.records = nil

	if err := mu.Insert(keyRow("b"), nil, nil, "G", viewcore.ObjectColumn, false); err != nil {
		t.Fatalf("touch insert: %v", err)
	}
	if len(log.records) != 1 || log.records[0].Kind != viewcore.ChangeUpdateRow {
		t.Fatalf("records = %+v, want single UpdateRow", log.records)
	}
	if log.records[0].Columns != viewcore.ObjectColumn {
		t.Errorf("columns = %v, want ObjectColumn", log.records[0].Columns)
	}
}

func TestMutator_RemoveMany_DecreasingIndexOrder(t *testing.T) {
	_, mu, gi, _, _, log := keyShapeMutator()

	var rows []viewcore.RowId
	for i := 0; i < 10; i++ {
		r := keyRow(string(rune('a' + i)))
		rows = append(rows, r)
		if err := mu.Insert(r, nil, nil, "G", 0, false); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if gi.RowCount("G") != 10 {
		t.Fatalf("rowCount = %d", gi.RowCount("G"))
	}

	log.records = nil
	victims := []viewcore.RowId{rows[1], rows[3], rows[5], rows[7]}
	if err := mu.RemoveMany(victims); err != nil {
		t.Fatalf("removeMany: %v", err)
	}

	var indices []int
	for _, r := range log.records {
		if r.Kind != viewcore.ChangeDeleteRow {
			t.Fatalf("unexpected record kind %v", r.Kind)
		}
		indices = append(indices, r.Index)
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] >= indices[i-1] {
			t.Fatalf("indices not strictly decreasing: %v", indices)
		}
	}
	if gi.RowCount("G") != 6 {
		t.Fatalf("rowCount after removeMany = %d, want 6", gi.RowCount("G"))
	}
}

func TestMutator_Remove_MissingRowIsNoop(t *testing.T) {
	_, mu, _, _, _, log := keyShapeMutator()
	if err := mu.Remove(keyRow("ghost")); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if len(log.records) != 0 {
		t.Fatalf("expected no change records, got %+v", log.records)
	}
}

func TestMutator_Clear_ResetsEveryGroup(t *testing.T) {
	_, mu, gi, _, _, log := keyShapeMutator()
	for _, k := range []string{"a", "b"} {
		if err := mu.Insert(keyRow(k), nil, nil, "G", 0, false); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	log.records = nil
	mu.Clear()
	if gi.GroupCount() != 0 {
		t.Fatalf("groupCount after clear = %d, want 0", gi.GroupCount())
	}
	if len(log.records) != 1 || log.records[0].Kind != viewcore.ChangeResetGroup {
		t.Fatalf("records = %+v, want single ResetGroup", log.records)
	}
}
