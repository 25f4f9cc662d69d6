package orderedview

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/viewcore"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func byKeyOptions(name string) Options {
	return Options{
		Name:    name,
		Version: 1,
		Grouping: viewcore.GroupingFunc{Shape: viewcore.ShapeKey, Fn: func(r viewcore.Row) (viewcore.Group, bool) {
			return "all", true
		}},
		Sorting: viewcore.SortingFunc{Shape: viewcore.ShapeKey, Fn: func(a, b viewcore.Row) viewcore.Ordering {
			switch {
			case a.RowID.Key < b.RowID.Key:
				return viewcore.OrderedAscending
			case a.RowID.Key > b.RowID.Key:
				return viewcore.OrderedDescending
			default:
				return viewcore.OrderedSame
			}
		}},
	}
}

func TestView_RegisterEmpty_ThenInsertAndCommit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()

	v, err := Register(ctx, db, base, byKeyOptions("notesview"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if v.GroupCount(ctx, db) != 0 {
		t.Fatalf("groupCount = %d, want 0", v.GroupCount(ctx, db))
	}

	txn := v.Begin(ctx, db, base)
	for _, k := range []string{"b", "a", "c"} {
		base.Put("notes", k, nil, nil)
		if err := txn.AfterSet("notes", k, nil, nil); err != nil {
			t.Fatalf("AfterSet %s: %v", k, err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if got := v.TotalRowCount(ctx, db); got != 3 {
		t.Fatalf("totalRowCount = %d, want 3", got)
	}
	row, ok, err := v.Get(ctx, db, "all", 0)
	if err != nil || !ok || row.Key != "a" {
		t.Fatalf("get(all,0) = %v,%v,%v want a", row, ok, err)
	}
	row, ok, err = v.Get(ctx, db, "all", 2)
	if err != nil || !ok || row.Key != "c" {
		t.Fatalf("get(all,2) = %v,%v,%v want c", row, ok, err)
	}

	group, idx, ok, err := v.Locate(ctx, db, viewcore.RowId{Collection: "notes", Key: "b"})
	if err != nil || !ok || group != "all" || idx != 1 {
		t.Fatalf("locate(b) = %v,%v,%v,%v want all,1,true", group, idx, ok, err)
	}
}

func TestView_RepopulateOnVersionBump(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()
	base.Put("notes", "x", nil, nil)
	base.Put("notes", "y", nil, nil)

	opts := byKeyOptions("histview")
	v, err := Register(ctx, db, base, opts)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := v.TotalRowCount(ctx, db); got != 2 {
		t.Fatalf("totalRowCount after first register = %d, want 2", got)
	}

	base.Put("notes", "z", nil, nil)
	opts.Version = 2
	v2, err := Register(ctx, db, base, opts)
	if err != nil {
		t.Fatalf("Register (v2): %v", err)
	}
	if got := v2.TotalRowCount(ctx, db); got != 3 {
		t.Fatalf("totalRowCount after rebuild = %d, want 3", got)
	}
}

func TestView_Open_VersionMismatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()
	opts := byKeyOptions("strictview")
	if _, err := Register(ctx, db, base, opts); err != nil {
		t.Fatalf("Register: %v", err)
	}

	opts.Version = 9
	_, err := Open(ctx, db, opts)
	if err == nil {
		t.Fatal("expected VersionMismatchError, got nil")
	}
	if _, ok := err.(*VersionMismatchError); !ok {
		t.Fatalf("err = %T, want *VersionMismatchError", err)
	}
}

func TestView_Open_NotRegistered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := Open(ctx, db, byKeyOptions("neverregistered"))
	if err == nil {
		t.Fatal("expected NotRegisteredError, got nil")
	}
	if _, ok := err.(*NotRegisteredError); !ok {
		t.Fatalf("err = %T, want *NotRegisteredError", err)
	}
}

// touchableOptions groups by key but sorts with a metadata-reading shape,
// so Touch is expected to actually emit an UpdateRow rather than the
// silent no-op spec.md §9 describes for a Key-only shape.
func touchableOptions(name string) Options {
	return Options{
		Name:    name,
		Version: 1,
		Grouping: viewcore.GroupingFunc{Shape: viewcore.ShapeKey, Fn: func(r viewcore.Row) (viewcore.Group, bool) {
			return "all", true
		}},
		Sorting: viewcore.SortingFunc{Shape: viewcore.ShapeKeyMetadata, Fn: func(a, b viewcore.Row) viewcore.Ordering {
			switch {
			case a.RowID.Key < b.RowID.Key:
				return viewcore.OrderedAscending
			case a.RowID.Key > b.RowID.Key:
				return viewcore.OrderedDescending
			default:
				return viewcore.OrderedSame
			}
		}},
	}
}

func TestTxn_RemoveAndTouch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()
	v, err := Register(ctx, db, base, touchableOptions("rmview"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	txn := v.Begin(ctx, db, base)
	for _, k := range []string{"a", "b", "c"} {
		base.Put("notes", k, nil, nil)
		if err := txn.AfterSet("notes", k, nil, nil); err != nil {
			t.Fatalf("AfterSet: %v", err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn2 := v.Begin(ctx, db, base)
	if err := txn2.AfterRemove("notes", "b"); err != nil {
		t.Fatalf("AfterRemove: %v", err)
	}
	row := viewcore.RowId{Collection: "notes", Key: "a"}
	if err := txn2.Touch(row, viewcore.ObjectColumn); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := txn2.Commit(); err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	if got := v.TotalRowCount(ctx, db); got != 2 {
		t.Fatalf("totalRowCount after remove = %d, want 2", got)
	}

	var touchSeen bool
	for _, rec := range txn2.Log() {
		if rec.Kind == viewcore.ChangeUpdateRow && rec.RowID == row {
			touchSeen = true
		}
	}
	if !touchSeen {
		t.Fatalf("expected an UpdateRow for the touched row, log=%+v", txn2.Log())
	}
}

func TestTxn_Touch_KeyShapeIsNoop(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()
	v, err := Register(ctx, db, base, byKeyOptions("keytouchview"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	txn := v.Begin(ctx, db, base)
	base.Put("notes", "a", nil, nil)
	if err := txn.AfterSet("notes", "a", nil, nil); err != nil {
		t.Fatalf("AfterSet: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn2 := v.Begin(ctx, db, base)
	row := viewcore.RowId{Collection: "notes", Key: "a"}
	if err := txn2.Touch(row, viewcore.ObjectColumn); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := txn2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(txn2.Log()) != 0 {
		t.Fatalf("expected Touch on a Key-only shape to be a silent no-op, log=%+v", txn2.Log())
	}
}

func TestTxn_RemoveAll_ClearsView(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()
	v, err := Register(ctx, db, base, byKeyOptions("clearview"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	txn := v.Begin(ctx, db, base)
	base.Put("notes", "a", nil, nil)
	if err := txn.AfterSet("notes", "a", nil, nil); err != nil {
		t.Fatalf("AfterSet: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn2 := v.Begin(ctx, db, base)
	if err := txn2.AfterRemoveAll(); err != nil {
		t.Fatalf("AfterRemoveAll: %v", err)
	}
	if err := txn2.Commit(); err != nil {
		t.Fatalf("commit 2: %v", err)
	}
	if got := v.TotalRowCount(ctx, db); got != 0 {
		t.Fatalf("totalRowCount after removeAll = %d, want 0", got)
	}
}

func TestView_Enumerate_Reverse(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := baserow.NewMemTxn()
	v, err := Register(ctx, db, base, byKeyOptions("enumview"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	txn := v.Begin(ctx, db, base)
	for _, k := range []string{"a", "b", "c"} {
		base.Put("notes", k, nil, nil)
		if err := txn.AfterSet("notes", k, nil, nil); err != nil {
			t.Fatalf("AfterSet: %v", err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var seen []string
	err = v.Enumerate(ctx, db, "all", Range{}, true, func(row viewcore.RowId, index int) (bool, error) {
		seen = append(seen, row.Key)
		return false, nil
	})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}
