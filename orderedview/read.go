package orderedview

import (
	"context"

	"github.com/Felmond13/orderedview/ordering"
	"github.com/Felmond13/orderedview/viewcore"
)

// Range is a half-open [Start, Start+Length) window over a group's
// absolute index space, clamped to [0, rowCount(group)). A zero-value
// Range means "the whole group" (spec.md §6's enumerate, elaborated per
// SPEC_FULL.md §4.11 since the original YapDatabaseViewTransaction exposes
// an explicit NSRange-equivalent that the distillation left unspecified).
type Range struct {
	Start  int
	Length int
}

// reader is the read-only surface shared by View (no active transaction)
// and Txn (reading its own in-flight writes): everything here needs only a
// GroupIndex snapshot, a Pages lookup, and an optional mutation tracker
// for enumerate's MutationDuringIteration check.
type reader struct {
	gi     *ordering.GroupIndex
	pages  ordering.Pages
	mutTrk mutationTracker
}

// mutationTracker is the slice of viewtxn.Overlay enumerate needs to
// detect a group being mutated mid-scan; nil for read-only View access,
// since a caller with no Txn has no mutator to race against.
type mutationTracker interface {
	GroupMutated(viewcore.Group) bool
	ResetMutationTracking()
}

// enumFiller is implemented by the concrete Pages adapters (roPages,
// txnPages) that back a scan with a real Cache, so Enumerate can switch
// them into "don't evict hot pages for a long scan" mode (spec.md §4.2).
// Pages implementations with no cache tier (e.g. ordering's test fakes)
// simply don't satisfy it, and Enumerate reads through the ordinary Rows
// path instead.
type enumFiller interface {
	forEnumeration() ordering.Pages
}

func (r *reader) locator() *ordering.Locator {
	return ordering.NewLocator(r.gi, r.pages)
}

// GroupCount reports how many non-empty groups currently exist.
func (r *reader) GroupCount() int { return r.gi.GroupCount() }

// Groups returns every non-empty group in creation order.
func (r *reader) Groups() []viewcore.Group { return r.gi.Groups() }

// RowCount reports how many rows currently belong to g.
func (r *reader) RowCount(g viewcore.Group) int { return r.gi.RowCount(g) }

// TotalRowCount reports how many rows the view holds across every group.
func (r *reader) TotalRowCount() int { return r.gi.TotalRowCount() }

// Get resolves (group, index) to a RowId.
func (r *reader) Get(g viewcore.Group, index int) (viewcore.RowId, bool, error) {
	return r.locator().Get(g, index)
}

// First returns the row at index 0 of g, if any.
func (r *reader) First(g viewcore.Group) (viewcore.RowId, bool, error) {
	return r.locator().Get(g, 0)
}

// Last returns the row at the final index of g, if any.
func (r *reader) Last(g viewcore.Group) (viewcore.RowId, bool, error) {
	count := r.gi.RowCount(g)
	if count == 0 {
		return viewcore.RowId{}, false, nil
	}
	return r.locator().Get(g, count-1)
}

// Locate resolves a RowId to its current (group, index), if the view
// currently contains it.
func (r *reader) Locate(row viewcore.RowId, km ordering.KeyMap) (viewcore.Group, int, bool, error) {
	pageID, found, err := km.Lookup(row)
	if err != nil {
		return "", 0, false, err
	}
	if !found {
		return "", 0, false, nil
	}
	group, ok := r.gi.GroupOf(pageID)
	if !ok {
		return "", 0, false, nil
	}
	idx, err := ordering.NewLocator(r.gi, r.pages).PageOffset(group, pageID, row)
	if err != nil {
		return "", 0, false, err
	}
	return group, idx, true, nil
}

// resolveRange clamps a (possibly zero-value) Range to [0, count).
func resolveRange(rng Range, count int) (start, end int) {
	if rng.Length == 0 && rng.Start == 0 {
		return 0, count
	}
	start = rng.Start
	end = rng.Start + rng.Length
	if start < 0 {
		start = 0
	}
	if end > count {
		end = count
	}
	if end < start {
		end = start
	}
	return start, end
}

// Enumerate walks g's rows over rng (zero-value Range = whole group), in
// reverse if requested, calling fn(rowID, index) for each. Returning
// stop=true from fn ends the walk early. If the group is mutated by this
// same transaction's own writes partway through (only possible when
// called through Txn, which supplies a non-nil mutTrk), the walk aborts
// with a *viewcore.MutationDuringIterationError.
func (r *reader) Enumerate(ctx context.Context, g viewcore.Group, rng Range, reverse bool, fn func(row viewcore.RowId, index int) (stop bool, err error)) error {
	if r.mutTrk != nil {
		r.mutTrk.ResetMutationTracking()
	}
	count := r.gi.RowCount(g)
	start, end := resolveRange(rng, count)
	pages := r.pages
	if ef, ok := pages.(enumFiller); ok {
		pages = ef.forEnumeration()
	}
	loc := ordering.NewLocator(r.gi, pages)

	step := func(i int) (bool, error) {
		if r.mutTrk != nil && r.mutTrk.GroupMutated(g) {
			return false, &viewcore.MutationDuringIterationError{Group: g}
		}
		row, ok, err := loc.Get(g, i)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return fn(row, i)
	}

	if reverse {
		for i := end - 1; i >= start; i-- {
			stop, err := step(i)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		return nil
	}
	for i := start; i < end; i++ {
		stop, err := step(i)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}
