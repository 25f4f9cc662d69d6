// Package baserow describes the narrow slice of the primary key/value store
// that the ordered-view extension depends on. The primary transaction
// implementation itself — object storage, on-disk format, statement
// preparation — lives outside this module; baserow only pins down the
// capability the view needs from it: looking up a row's object and
// metadata by (collection, key) inside the caller's outer transaction.
package baserow

import "fmt"

// RowId identifies a single row in the primary store.
type RowId struct {
	Collection string
	Key        string
}

func (r RowId) String() string {
	return fmt.Sprintf("%s/%s", r.Collection, r.Key)
}

// Txn is the read capability the comparator harness needs from the base
// store's outer transaction. Implementations are expected to be cheap to
// call repeatedly within one transaction (the harness may call either
// method several times per comparison) and must not themselves start a
// nested transaction.
type Txn interface {
	// Object returns the deserialized object stored for (collection, key).
	Object(collection, key string) (any, error)
	// Metadata returns the deserialized metadata stored for (collection, key).
	Metadata(collection, key string) (any, error)
}

// Enumerator is the full-scan capability Populator needs on first
// registration or a version bump. Implementations should stream rather
// than buffer: fn's error return stops the scan early. objectNeeded and
// metadataNeeded let the base store skip deserializing columns the view's
// grouping/sorting callbacks never read.
type Enumerator interface {
	EnumerateRows(objectNeeded, metadataNeeded bool, fn func(row RowId, object, metadata any) error) error
}

// EnumeratingTxn is what Populator needs: the outer transaction's normal
// point-lookup capability plus the one-time full scan. The base store's
// own transaction type is expected to satisfy both.
type EnumeratingTxn interface {
	Txn
	Enumerator
}

// MemTxn is a minimal in-memory Txn used by this module's own tests and
// suitable as a reference/demo implementation. It is not part of the
// extension's production surface.
type MemTxn struct {
	objects  map[RowId]any
	metadata map[RowId]any
	order    []RowId
}

// NewMemTxn returns an empty in-memory base-store stand-in.
func NewMemTxn() *MemTxn {
	return &MemTxn{
		objects:  make(map[RowId]any),
		metadata: make(map[RowId]any),
	}
}

// Put records the object/metadata for a row, as if the base store had just
// committed a Set(collection, key, object, metadata).
func (m *MemTxn) Put(collection, key string, object, metadata any) {
	r := RowId{Collection: collection, Key: key}
	if _, exists := m.objects[r]; !exists {
		m.order = append(m.order, r)
	}
	m.objects[r] = object
	m.metadata[r] = metadata
}

// Delete removes a row's recorded object/metadata.
func (m *MemTxn) Delete(collection, key string) {
	r := RowId{Collection: collection, Key: key}
	delete(m.objects, r)
	delete(m.metadata, r)
	for i, existing := range m.order {
		if existing == r {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *MemTxn) Object(collection, key string) (any, error) {
	return m.objects[RowId{Collection: collection, Key: key}], nil
}

func (m *MemTxn) Metadata(collection, key string) (any, error) {
	return m.metadata[RowId{Collection: collection, Key: key}], nil
}

// EnumerateRows implements Enumerator by walking rows in insertion order.
func (m *MemTxn) EnumerateRows(objectNeeded, metadataNeeded bool, fn func(row RowId, object, metadata any) error) error {
	for _, r := range m.order {
		var obj, md any
		if objectNeeded {
			obj = m.objects[r]
		}
		if metadataNeeded {
			md = m.metadata[r]
		}
		if err := fn(r, obj, md); err != nil {
			return err
		}
	}
	return nil
}
