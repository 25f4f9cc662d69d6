package pagestore

import (
	"github.com/google/uuid"

	"github.com/Felmond13/orderedview/viewcore"
)

// NewPageID allocates a fresh, process-wide-unique page identifier. It uses
// the same crypto/rand-backed UUIDv4 generator the rest of the retrieval
// pack reaches for when it needs an opaque, collision-free id (see
// SimonWaldherr-tinySQL's storage.ParseUUID/UUIDToBytes helpers), rather
// than a counter with shared mutable state. A collision is a fatal
// corruption and is never expected in practice.
func NewPageID() viewcore.PageId {
	return viewcore.PageId(uuid.New().String())
}
