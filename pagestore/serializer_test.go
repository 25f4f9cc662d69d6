package pagestore

import (
	"reflect"
	"testing"

	"github.com/Felmond13/orderedview/viewcore"
)

func TestEncodeDecodePage_RoundTrip(t *testing.T) {
	rows := []viewcore.RowId{
		{Collection: "mail", Key: "a"},
		{Collection: "mail", Key: "b"},
		{Collection: "mail", Key: "c"},
	}
	blob := encodePage(rows)
	got, err := decodePage(blob)
	if err != nil {
		t.Fatalf("decodePage: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", got, rows)
	}
}

func TestEncodeDecodePage_Empty(t *testing.T) {
	blob := encodePage(nil)
	got, err := decodePage(blob)
	if err != nil {
		t.Fatalf("decodePage: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %+v", got)
	}
}

func TestEncodeDecodeMeta_RoundTrip(t *testing.T) {
	meta := viewcore.PageMeta{PageID: "p2", Group: "2026-01", PrevPageID: "p1", Count: 37}
	blob := encodeMeta(meta)
	got, err := decodeMeta("p2", blob)
	if err != nil {
		t.Fatalf("decodeMeta: %v", err)
	}
	if got.Group != meta.Group || got.PrevPageID != meta.PrevPageID || got.Count != meta.Count {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", got, meta)
	}
	if got.NextPageID != "" {
		t.Fatalf("NextPageID must never be persisted, got %q", got.NextPageID)
	}
}
