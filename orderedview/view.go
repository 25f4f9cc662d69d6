// Package orderedview is a secondary, ordered index over rows living in an
// external key/value base store: register a grouping function and a sort
// comparator against a collection of rows, and the view maintains a
// paged, linked-list materialization per group that stays in sync as the
// base store's outer transactions commit, in the style of
// YapDatabaseView's extension model.
//
// The base store itself — object storage, statement preparation,
// connection pooling — is out of scope; this package only ever touches it
// through the baserow.Txn/baserow.Enumerator capability interfaces and a
// pagestore.Conn bound to the caller's outer *sql.Tx.
package orderedview

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Felmond13/orderedview/baserow"
	"github.com/Felmond13/orderedview/ordering"
	"github.com/Felmond13/orderedview/pagestore"
	"github.com/Felmond13/orderedview/viewcore"
	"github.com/Felmond13/orderedview/viewtxn"
)

// Options configures a view at registration time (spec.md §6's
// configuration table).
type Options struct {
	Name     string
	Version  int
	Grouping viewcore.GroupingFunc
	Sorting  viewcore.SortingFunc

	// PageCacheLimit/KeyCacheLimit bound the decode cache's two LRU lists
	// (0 = unbounded). Named for what they actually cache, rather than
	// spec.md's objectCacheLimit/metadataCacheLimit, since this view never
	// caches the base store's object/metadata columns themselves — only
	// page bodies and row→page lookups.
	PageCacheLimit int
	KeyCacheLimit  int

	// Registerer receives the cache's hit/miss/eviction counters; nil
	// disables metrics entirely.
	Registerer prometheus.Registerer
}

// View is one registered ordered index: a Store/Cache pair plus the
// currently-committed GroupIndex snapshot readers see.
type View struct {
	name    string
	version int
	cmp     *ordering.Comparator

	store *pagestore.Store
	cache *pagestore.Cache
	lock  *viewtxn.CommitLock

	shared *ordering.GroupIndex
}

// Register opens (or creates) a view, running Populator whenever the view
// has never been populated or opts.Version has advanced since the last
// registration. conn must be the caller's outer transaction handle: table
// creation, the full rebuild (if any), and the initial GroupIndex load all
// happen against it.
func Register(ctx context.Context, conn pagestore.Conn, txn baserow.EnumeratingTxn, opts Options) (*View, error) {
	v, storedVersion, hasStored, err := open(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	if !hasStored || storedVersion != opts.Version {
		if err := v.rebuild(ctx, conn, txn); err != nil {
			return nil, err
		}
		return v, nil
	}
	metas, err := v.store.LoadAllPageMetas(ctx, conn)
	if err != nil {
		return nil, err
	}
	gi, err := ordering.LoadGroupIndex(metas)
	if err != nil {
		return nil, err
	}
	v.shared = gi
	return v, nil
}

// Open opens an existing view without ever rebuilding it: a view that was
// never populated yields *viewcore.NotRegisteredError, and one whose
// stored version no longer matches opts.Version yields
// *viewcore.VersionMismatchError instead of silently repopulating. Callers
// that want the mismatch handled for them should call Register, or call
// Rebuild explicitly after inspecting the error.
func Open(ctx context.Context, conn pagestore.Conn, opts Options) (*View, error) {
	v, storedVersion, hasStored, err := open(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	if !hasStored {
		return nil, &viewcore.NotRegisteredError{View: opts.Name}
	}
	if storedVersion != opts.Version {
		return nil, &viewcore.VersionMismatchError{View: opts.Name, Stored: storedVersion, Registered: opts.Version}
	}
	metas, err := v.store.LoadAllPageMetas(ctx, conn)
	if err != nil {
		return nil, err
	}
	gi, err := ordering.LoadGroupIndex(metas)
	if err != nil {
		return nil, err
	}
	v.shared = gi
	return v, nil
}

func open(ctx context.Context, conn pagestore.Conn, opts Options) (*View, int, bool, error) {
	store, err := pagestore.NewStore(opts.Name)
	if err != nil {
		return nil, 0, false, err
	}
	if err := store.EnsureTables(ctx, conn); err != nil {
		return nil, 0, false, err
	}
	storedVersion, hasStored, err := store.ReadVersion(ctx, conn)
	if err != nil {
		return nil, 0, false, err
	}
	v := &View{
		name:    opts.Name,
		version: opts.Version,
		cmp:     ordering.NewComparator(opts.Grouping, opts.Sorting),
		store:   store,
		cache:   pagestore.NewCache(opts.PageCacheLimit, opts.KeyCacheLimit, opts.Registerer),
		lock:    &viewtxn.CommitLock{},
		shared:  ordering.NewGroupIndex(),
	}
	return v, storedVersion, hasStored, nil
}

// Rebuild forces a full repopulation against baseTxn, as if opts.Version
// had just advanced, and commits it within conn's outer transaction.
func (v *View) Rebuild(ctx context.Context, conn pagestore.Conn, baseTxn baserow.EnumeratingTxn) error {
	return v.rebuild(ctx, conn, baseTxn)
}

func (v *View) rebuild(ctx context.Context, conn pagestore.Conn, baseTxn baserow.EnumeratingTxn) error {
	if err := v.store.ClearAll(ctx, conn); err != nil {
		return err
	}
	v.cache.Reset()

	txn := v.begin(ctx, conn, baseTxn)
	txn.gi = ordering.NewGroupIndex()
	txn.mutator = ordering.NewMutator(txn.gi, txn.pages, txn.keymap, v.cmp, baseTxn, txn.overlay.Log, txn.overlay.MarkGroupMutated, false, false)
	pop := ordering.NewPopulator(v.cmp, txn.mutator)
	if err := pop.Run(baseTxn, baseTxn); err != nil {
		return err
	}

	reb := ordering.NewRebalancer(txn.gi, txn.pages, txn.keymap, txn.overlay.Log)
	if err := reb.Run(allGroupsMutated(txn.gi)); err != nil {
		return err
	}

	if err := txn.flush(ctx); err != nil {
		return err
	}
	if err := v.store.WriteVersion(ctx, conn, v.version); err != nil {
		return err
	}

	v.lock.Lock()
	v.shared = txn.gi
	v.lock.Unlock()
	return nil
}

func allGroupsMutated(gi *ordering.GroupIndex) map[viewcore.Group]bool {
	out := make(map[viewcore.Group]bool)
	for _, g := range gi.Groups() {
		out[g] = true
	}
	return out
}

// snapshot returns the currently-committed GroupIndex, the frozen view any
// reader or new writer starts from.
func (v *View) snapshot() *ordering.GroupIndex {
	v.lock.Lock()
	gi := v.shared
	v.lock.Unlock()
	return gi
}
