// ordviewdemo demonstrates registering an ordered view over an in-memory
// key/value store, mutating the store, and reading the view back out.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/orderedview"
	"github.com/Felmond13/orderedview/viewcore"
)

type task struct {
	Owner string
	Prio  int
}

func main() {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	store := baserow.NewMemTxn()

	fmt.Println("=== ordviewdemo ===")
	fmt.Println()

	// -------------------------------------------------------
	// 1. Seed the backing store before the view exists.
	// -------------------------------------------------------
	fmt.Println("--- seeding tasks ---")
	seed := map[string]task{
		"t1": {Owner: "alice", Prio: 3},
		"t2": {Owner: "bob", Prio: 1},
		"t3": {Owner: "alice", Prio: 5},
		"t4": {Owner: "carol", Prio: 2},
	}
	for key, v := range seed {
		store.Put("tasks", key, v, nil)
		fmt.Printf("  put tasks/%s = %+v\n", key, v)
	}
	fmt.Println()

	// -------------------------------------------------------
	// 2. Register a view grouped by owner, sorted by priority
	//    descending. Registration populates itself from the
	//    rows already in the store.
	// -------------------------------------------------------
	fmt.Println("--- registering \"byOwner\" view ---")
	opts := orderedview.Options{
		Name:    "byOwner",
		Version: 1,
		Grouping: viewcore.GroupingFunc{
			Shape: viewcore.ShapeKeyObject,
			Fn: func(r viewcore.Row) (viewcore.Group, bool) {
				t, ok := r.Object.(task)
				if !ok {
					return "", false
				}
				return viewcore.Group(t.Owner), true
			},
		},
		Sorting: viewcore.SortingFunc{
			Shape: viewcore.ShapeKeyObject,
			Fn: func(a, b viewcore.Row) viewcore.Ordering {
				ta, tb := a.Object.(task), b.Object.(task)
				switch {
				case ta.Prio > tb.Prio:
					return viewcore.OrderedAscending
				case ta.Prio < tb.Prio:
					return viewcore.OrderedDescending
				default:
					return viewcore.OrderedSame
				}
			},
		},
	}
	view, err := orderedview.Register(ctx, db, store, opts)
	if err != nil {
		log.Fatalf("register: %v", err)
	}
	fmt.Printf("  groups: %v\n", view.Groups(ctx, db))
	fmt.Printf("  total rows: %d\n\n", view.TotalRowCount(ctx, db))

	printGroup(ctx, db, view, "alice")

	// -------------------------------------------------------
	// 3. Mutate through a Txn: add a row, bump another's
	//    priority, remove a third.
	// -------------------------------------------------------
	fmt.Println("--- mutating inside a Txn ---")
	txn := view.Begin(ctx, db, store)

	newTask := task{Owner: "alice", Prio: 9}
	store.Put("tasks", "t5", newTask, nil)
	if err := txn.AfterSet("tasks", "t5", newTask, nil); err != nil {
		log.Fatalf("AfterSet t5: %v", err)
	}
	fmt.Println("  inserted tasks/t5 (alice, prio 9)")

	bumped := seed["t2"]
	bumped.Prio = 10
	store.Put("tasks", "t2", bumped, nil)
	if err := txn.AfterSet("tasks", "t2", bumped, nil); err != nil {
		log.Fatalf("AfterSet t2: %v", err)
	}
	fmt.Println("  bumped tasks/t2 (bob) to prio 10, moving it to its own top")

	store.Delete("tasks", "t4")
	if err := txn.AfterRemove("tasks", "t4"); err != nil {
		log.Fatalf("AfterRemove t4: %v", err)
	}
	fmt.Println("  removed tasks/t4 (carol)")

	if err := txn.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Println("  committed")
	fmt.Println()

	fmt.Printf("  groups after mutation: %v\n", view.Groups(ctx, db))
	printGroup(ctx, db, view, "alice")
	printGroup(ctx, db, view, "bob")

	// -------------------------------------------------------
	// 4. Reverse enumerate alice's group over a bounded window.
	// -------------------------------------------------------
	fmt.Println("--- windowed reverse enumerate over \"alice\" ---")
	err = view.Enumerate(ctx, db, "alice", orderedview.Range{Start: 0, Length: 2}, true,
		func(row viewcore.RowId, index int) (bool, error) {
			fmt.Printf("  [%d] %s\n", index, row.Key)
			return false, nil
		})
	if err != nil {
		log.Fatalf("enumerate: %v", err)
	}
	fmt.Println()

	// -------------------------------------------------------
	// 5. Bump the view's version: forces a full repopulation
	//    next time it is registered.
	// -------------------------------------------------------
	fmt.Println("--- re-registering with a bumped version ---")
	opts.Version = 2
	view2, err := orderedview.Register(ctx, db, store, opts)
	if err != nil {
		log.Fatalf("register v2: %v", err)
	}
	fmt.Printf("  total rows after rebuild: %d\n", view2.TotalRowCount(ctx, db))

	fmt.Println()
	fmt.Println("=== done ===")
	os.Exit(0)
}

func printGroup(ctx context.Context, db *sql.DB, v *orderedview.View, group viewcore.Group) {
	fmt.Printf("  group %q (%d rows):\n", group, v.RowCount(ctx, db, group))
	_ = v.Enumerate(ctx, db, group, orderedview.Range{}, false, func(row viewcore.RowId, index int) (bool, error) {
		fmt.Printf("    [%d] %s\n", index, row.Key)
		return false, nil
	})
}
