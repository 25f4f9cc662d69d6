package ordering

import (
	"testing"

	"github.com/Felmond13/orderedview/viewcore"
)

func TestRebalancer_SplitsOversizePage_Scenario2(t *testing.T) {
	_, mu, gi, pages, km, log := keyShapeMutator()

	for i := 0; i < 60; i++ {
		row := keyRow(padKey(i))
		if err := mu.Insert(row, nil, nil, "G", 0, false); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if gi.RowCount("G") != 60 {
		t.Fatalf("rowCount = %d, want 60", gi.RowCount("G"))
	}

	reb := NewRebalancer(gi, pages, km, log)
	if err := reb.Run(map[viewcore.Group]bool{"G": true}); err != nil {
		t.Fatalf("rebalance: %v", err)
	}

	chain := gi.PagesInGroup("G")
	if len(chain) != 2 {
		t.Fatalf("page count = %d, want 2", len(chain))
	}
	if chain[0].Count != 50 || chain[1].Count != 10 {
		t.Fatalf("page sizes = %d,%d want 50,10", chain[0].Count, chain[1].Count)
	}
	if chain[0].NextPageID != chain[1].PageID || chain[1].PrevPageID != chain[0].PageID {
		t.Fatalf("chain not linked: %+v", chain)
	}

	loc := NewLocator(gi, pages)
	row49, ok, err := loc.Get("G", 49)
	if err != nil || !ok {
		t.Fatalf("get(G,49): %v %v", ok, err)
	}
	row50, ok, err := loc.Get("G", 50)
	if err != nil || !ok {
		t.Fatalf("get(G,50): %v %v", ok, err)
	}
	if row49.Key != padKey(49) || row50.Key != padKey(50) {
		t.Fatalf("row49=%v row50=%v, want %s %s", row49, row50, padKey(49), padKey(50))
	}

	for _, row := range []viewcore.RowId{row49, row50} {
		pageID, ok, err := km.Lookup(row)
		if err != nil || !ok {
			t.Fatalf("keymap lookup %v: %v %v", row, ok, err)
		}
		rows, err := pages.Rows(pageID)
		if err != nil {
			t.Fatalf("rows: %v", err)
		}
		found := false
		for _, r := range rows {
			if r == row {
				found = true
			}
		}
		if !found {
			t.Errorf("keymap for %v points at page %s which doesn't contain it", row, pageID)
		}
	}
}

func TestRebalancer_DropsEmptyPage(t *testing.T) {
	_, mu, gi, pages, km, log := keyShapeMutator()
	row := keyRow("solo")
	if err := mu.Insert(row, nil, nil, "G", 0, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mu.Remove(row); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reb := NewRebalancer(gi, pages, km, log)
	if err := reb.Run(map[viewcore.Group]bool{"G": true}); err != nil {
		t.Fatalf("rebalance: %v", err)
	}

	if gi.GroupCount() != 0 {
		t.Fatalf("groupCount = %d, want 0 after dropping last page", gi.GroupCount())
	}
	found := false
	for _, r := range log.records {
		if r.Kind == viewcore.ChangeDeleteGroup && r.Group == "G" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DeleteGroup record, got %+v", log.records)
	}
}

func padKey(i int) string {
	digits := "0123456789"
	return string([]byte{digits[i/10], digits[i%10]})
}
