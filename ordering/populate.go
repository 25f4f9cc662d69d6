package ordering

import (
	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/viewcore"
)

// Populator performs the full-rebuild path run on first registration or
// whenever the caller's view version advances (spec.md §4.7): clear
// everything, then walk every row in the base store once, inserting each
// one whose group evaluates to something other than ⊥.
type Populator struct {
	cmp     *Comparator
	mutator *Mutator
}

// NewPopulator binds a Populator to an already-reset Mutator (the caller
// is expected to have cleared the GroupIndex/Pages/KeyMap before calling
// Run, typically via Mutator.Clear or a fresh Overlay).
func NewPopulator(cmp *Comparator, mutator *Mutator) *Populator {
	return &Populator{cmp: cmp, mutator: mutator}
}

// Run enumerates src with the minimum columns the registered
// grouping/sorting callbacks actually read, calling Insert with
// isNew=true for every row whose group is not ⊥.
func (p *Populator) Run(txn baserow.Txn, src baserow.Enumerator) error {
	needObject := p.cmp.grouping.Shape.NeedsObject() || p.cmp.sorting.Shape.NeedsObject()
	needMetadata := p.cmp.grouping.Shape.NeedsMetadata() || p.cmp.sorting.Shape.NeedsMetadata()

	return src.EnumerateRows(needObject, needMetadata, func(row viewcore.RowId, object, metadata any) error {
		group, ok, err := p.cmp.Group(row, object, metadata)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return p.mutator.Insert(row, object, metadata, group, viewcore.ObjectColumn|viewcore.MetadataColumn, true)
	})
}
