package ordering

import (
	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/viewcore"
)

// Comparator dispatches to whichever of the four grouping/sorting callback
// shapes the view was registered with, fetching the counterpart row's
// object/metadata lazily from the base store's outer transaction only when
// the registered Shape actually reads it. It is deliberately a single type
// with a shape tag and one switch, not four parallel code paths, per
// spec.md §9's design note against replicating shapes.
type Comparator struct {
	grouping viewcore.GroupingFunc
	sorting  viewcore.SortingFunc
}

// NewComparator builds a harness for one view's registered callbacks.
func NewComparator(grouping viewcore.GroupingFunc, sorting viewcore.SortingFunc) *Comparator {
	return &Comparator{grouping: grouping, sorting: sorting}
}

// Group evaluates the grouping function for a row whose object/metadata
// the caller already has in hand (the row being inserted always does,
// since it was just set by the base store).
func (c *Comparator) Group(row viewcore.RowId, object, metadata any) (g viewcore.Group, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &viewcore.UserCallbackError{Row: row, Cause: r}
		}
	}()
	r := viewcore.Row{RowID: row}
	if c.grouping.Shape.NeedsObject() {
		r.Object = object
	}
	if c.grouping.Shape.NeedsMetadata() {
		r.Metadata = metadata
	}
	g, ok = c.grouping.Fn(r)
	return g, ok, nil
}

// loadRow fetches whatever columns the sorting shape needs for a
// counterpart row from the base-store transaction.
func (c *Comparator) loadRow(txn baserow.Txn, row viewcore.RowId) (viewcore.Row, error) {
	r := viewcore.Row{RowID: row}
	if c.sorting.Shape.NeedsObject() {
		obj, err := txn.Object(row.Collection, row.Key)
		if err != nil {
			return viewcore.Row{}, err
		}
		r.Object = obj
	}
	if c.sorting.Shape.NeedsMetadata() {
		md, err := txn.Metadata(row.Collection, row.Key)
		if err != nil {
			return viewcore.Row{}, err
		}
		r.Metadata = md
	}
	return r, nil
}

// Compare orders `incoming` (whose object/metadata the caller already has)
// against `existing`, a row already positioned in the view, fetching
// `existing`'s columns from txn only if the sorting shape needs them.
func (c *Comparator) Compare(txn baserow.Txn, incoming viewcore.RowId, incomingObject, incomingMetadata any, existing viewcore.RowId) (ord viewcore.Ordering, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &viewcore.UserCallbackError{Row: incoming, Cause: r}
		}
	}()

	a := viewcore.Row{RowID: incoming}
	if c.sorting.Shape.NeedsObject() {
		a.Object = incomingObject
	}
	if c.sorting.Shape.NeedsMetadata() {
		a.Metadata = incomingMetadata
	}

	b, loadErr := c.loadRow(txn, existing)
	if loadErr != nil {
		return 0, loadErr
	}

	return c.sorting.Fn(a, b), nil
}

// Shape returns the sorting shape, used by Mutator.Insert to emit a plain
// UpdateRow for a same-group update when the comparator reads only the key.
func (c *Comparator) Shape() viewcore.Shape {
	return c.sorting.Shape
}

// GroupingShape reports which base-store columns the grouping function
// reads, so a caller deciding what to fetch before calling Group doesn't
// need to reach into the unexported GroupingFunc itself.
func (c *Comparator) GroupingShape() viewcore.Shape {
	return c.grouping.Shape
}

// SortingShape reports which base-store columns the sorting function
// reads.
func (c *Comparator) SortingShape() viewcore.Shape {
	return c.sorting.Shape
}
