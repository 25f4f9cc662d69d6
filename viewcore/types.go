// Package viewcore holds the data model shared by every piece of the
// ordered-view extension: the identifiers, the change-record shape, and the
// comparator-dispatch vocabulary. Splitting these out avoids an import
// cycle between pagestore, ordering, viewtxn and the top-level orderedview
// package, all of which need to speak the same RowId/PageId/Group types.
package viewcore

import (
	"github.com/Felmond13/orderedview/baserow"
)

// RowId identifies a row in the primary store.
type RowId = baserow.RowId

// PageId is an opaque identifier for a page, unique for the database's
// lifetime. The zero value ("") denotes "no page" (a nil prev/next link).
type PageId string

// Group is a user-defined partition label. The zero value is never a valid
// group; groupingFn returning ok=false means "exclude this row".
type Group string

// PageMeta is the per-page descriptor persisted alongside a page's body.
// NextPageId is never persisted; it is derived at load time by GroupIndex.
type PageMeta struct {
	PageID     PageId
	Group      Group
	PrevPageID PageId // "" = head of the group's page list
	NextPageID PageId // transient, rebuilt on load
	Count      int
}

// ColumnFlags is a bitset over the base-store columns an UpdateRow change
// touched.
type ColumnFlags uint8

const (
	ObjectColumn ColumnFlags = 1 << iota
	MetadataColumn
)

// Has reports whether f includes every bit in other.
func (f ColumnFlags) Has(other ColumnFlags) bool {
	return f&other == other
}

// ChangeKind discriminates the variants of ChangeRecord.
type ChangeKind uint8

const (
	ChangeInsertRow ChangeKind = iota
	ChangeDeleteRow
	ChangeUpdateRow
	ChangeInsertGroup
	ChangeDeleteGroup
	ChangeResetGroup
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsertRow:
		return "InsertRow"
	case ChangeDeleteRow:
		return "DeleteRow"
	case ChangeUpdateRow:
		return "UpdateRow"
	case ChangeInsertGroup:
		return "InsertGroup"
	case ChangeDeleteGroup:
		return "DeleteGroup"
	case ChangeResetGroup:
		return "ResetGroup"
	default:
		return "Unknown"
	}
}

// ChangeRecord is one entry of a transaction's change-log. Row-level kinds
// (InsertRow/DeleteRow/UpdateRow) carry RowID/Group/Index; section-level
// kinds (InsertGroup/DeleteGroup/ResetGroup) carry only Group.
type ChangeRecord struct {
	Kind    ChangeKind
	RowID   RowId
	Group   Group
	Index   int
	Columns ColumnFlags // only meaningful for ChangeUpdateRow
}

// Shape tags which base-store columns a grouping or sorting callback reads,
// so the comparator harness can decide once, per call, whether it needs to
// fetch the object and/or metadata for the counterpart row, instead of
// replicating four nearly-identical code paths.
type Shape uint8

const (
	ShapeKey Shape = iota
	ShapeKeyObject
	ShapeKeyMetadata
	ShapeKeyObjectMetadata
)

func (s Shape) needsObject() bool {
	return s == ShapeKeyObject || s == ShapeKeyObjectMetadata
}

func (s Shape) needsMetadata() bool {
	return s == ShapeKeyMetadata || s == ShapeKeyObjectMetadata
}

// NeedsObject reports whether this shape's callback reads the row object.
func (s Shape) NeedsObject() bool { return s.needsObject() }

// NeedsMetadata reports whether this shape's callback reads row metadata.
func (s Shape) NeedsMetadata() bool { return s.needsMetadata() }

// Row is what a grouping/sorting callback is handed for one side of a
// comparison. Object/Metadata are nil unless the callback's Shape reads
// them.
type Row struct {
	RowID    RowId
	Object   any
	Metadata any
}

// GroupingFunc computes the group a row belongs to, or reports ok=false to
// exclude it from the view entirely (the "⊥" case in spec language).
type GroupingFunc struct {
	Shape Shape
	Fn    func(row Row) (group Group, ok bool)
}

// Ordering is a three-way comparison result, named the way NSComparisonResult
// is in the original source: ascending (first < second), same, descending.
type Ordering int

const (
	OrderedAscending Ordering = -1
	OrderedSame      Ordering = 0
	OrderedDescending Ordering = 1
)

// SortingFunc orders two rows already known to share a group.
type SortingFunc struct {
	Shape Shape
	Fn    func(a, b Row) Ordering
}
