// Package viewtxn holds everything scoped to a single outer transaction:
// the change-log consumers read after commit, and the dirty overlay that
// keeps a writer's in-flight edits separate from the shared GroupIndex/
// PageCache snapshot readers see, per spec.md §5.
package viewtxn

import "github.com/Felmond13/orderedview/viewcore"

// ChangeLog accumulates change records for one transaction, in program
// order, with no coalescing — Mutator and Rebalancer append directly, and
// it is observers' job to fold adjacent updates if they want to.
type ChangeLog struct {
	records []viewcore.ChangeRecord
}

// NewChangeLog returns an empty log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{}
}

// Append adds one record to the end of the log.
func (l *ChangeLog) Append(r viewcore.ChangeRecord) {
	l.records = append(l.records, r)
}

// Records returns the log in append order. The slice is owned by the log;
// callers must not mutate it.
func (l *ChangeLog) Records() []viewcore.ChangeRecord {
	return l.records
}

// Len reports how many records have been appended.
func (l *ChangeLog) Len() int {
	return len(l.records)
}
