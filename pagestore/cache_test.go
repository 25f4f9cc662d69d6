package pagestore

import (
	"testing"

	"github.com/Felmond13/orderedview/viewcore"
)

func TestCache_PageEviction(t *testing.T) {
	c := NewCache(2, 0, nil)
	c.PutPage("p1", []viewcore.RowId{{Collection: "c", Key: "1"}})
	c.PutPage("p2", []viewcore.RowId{{Collection: "c", Key: "2"}})
	c.PutPage("p3", []viewcore.RowId{{Collection: "c", Key: "3"}})

	if _, ok := c.GetPage("p1"); ok {
		t.Fatal("p1 should have been evicted")
	}
	if _, ok := c.GetPage("p2"); !ok {
		t.Fatal("p2 should still be cached")
	}
	if _, ok := c.GetPage("p3"); !ok {
		t.Fatal("p3 should still be cached")
	}
}

func TestCache_PageRecencyProtectsFromEviction(t *testing.T) {
	c := NewCache(2, 0, nil)
	c.PutPage("p1", nil)
	c.PutPage("p2", nil)
	c.GetPage("p1") // touch p1, making p2 the LRU entry
	c.PutPage("p3", nil)

	if _, ok := c.GetPage("p2"); ok {
		t.Fatal("p2 should have been evicted, not p1")
	}
	if _, ok := c.GetPage("p1"); !ok {
		t.Fatal("p1 was touched most recently and should survive")
	}
}

func TestCache_KeyAbsentSentinel(t *testing.T) {
	c := NewCache(0, 0, nil)
	row := viewcore.RowId{Collection: "c", Key: "1"}

	if _, known := c.GetKey(row); known {
		t.Fatal("row should be unknown before any Put")
	}
	c.PutKeyAbsent(row)
	pid, known := c.GetKey(row)
	if !known || pid != "" {
		t.Fatalf("expected known-absent, got pid=%q known=%v", pid, known)
	}

	c.PutKey(row, "p1")
	pid, known = c.GetKey(row)
	if !known || pid != "p1" {
		t.Fatalf("expected known p1, got pid=%q known=%v", pid, known)
	}
}

func TestCache_PutPageIfNotFull(t *testing.T) {
	c := NewCache(1, 0, nil)
	c.PutPage("p1", nil)
	c.PutPageIfNotFull("p2", nil)

	if _, ok := c.GetPage("p2"); ok {
		t.Fatal("p2 must not be inserted while cache is full")
	}
	if _, ok := c.GetPage("p1"); !ok {
		t.Fatal("p1 must remain cached")
	}
}

func TestCache_Reset(t *testing.T) {
	c := NewCache(0, 0, nil)
	c.PutPage("p1", nil)
	c.PutKey(viewcore.RowId{Collection: "c", Key: "1"}, "p1")
	c.Reset()

	if _, ok := c.GetPage("p1"); ok {
		t.Fatal("expected page cache empty after Reset")
	}
	if _, known := c.GetKey(viewcore.RowId{Collection: "c", Key: "1"}); known {
		t.Fatal("expected key cache empty after Reset")
	}
}
