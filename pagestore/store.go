// Package pagestore is the durable half of the ordered-view extension: the
// mapping table (collection,key → pageId) and the page table (pageId →
// blob, metadata blob) described in spec.md §4.1/§6, plus the write-through
// decode cache described in §4.2.
//
// Statement preparation, connection pooling, and the WAL handshake belong
// to the embedded SQL engine and are deliberately not this package's job:
// every method here takes a Conn (satisfied by *sql.Tx) bound to the
// caller's outer transaction, and a failed write simply bubbles up as a
// *viewcore.StorageError for the caller to abort.
package pagestore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/Felmond13/orderedview/viewcore"
)

// Conn is the slice of *sql.Tx (or *sql.DB, for read-only callers) the
// store needs. It never begins or commits a transaction itself.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var viewNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is the table pair for a single registered view. Table names are
// derived from the view's name exactly as spec.md §6 requires:
// "<view>_key" and "<view>_page".
type Store struct {
	keyTable     string
	pageTable    string
	versionTable string
}

// NewStore validates viewName and returns a Store bound to its table pair.
func NewStore(viewName string) (*Store, error) {
	if !viewNamePattern.MatchString(viewName) {
		return nil, fmt.Errorf("pagestore: invalid view name %q", viewName)
	}
	return &Store{
		keyTable:     viewName + "_key",
		pageTable:    viewName + "_page",
		versionTable: viewName + "_version",
	}, nil
}

// EnsureTables creates the view's table triple if they do not already exist:
// the key map, the page body/meta table, and a one-row version marker used
// to detect when Options.Version advances and Populator must rerun.
func (s *Store) EnsureTables(ctx context.Context, c Conn) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			pageKey TEXT NOT NULL,
			PRIMARY KEY(collection, key)
		)`, s.keyTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			pageKey TEXT PRIMARY KEY,
			data BLOB,
			metadata BLOB
		)`, s.pageTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			version INTEGER NOT NULL
		)`, s.versionTable),
	}
	for _, stmt := range stmts {
		if _, err := c.ExecContext(ctx, stmt); err != nil {
			return &viewcore.StorageError{Op: "ensureTables", Err: err}
		}
	}
	return nil
}

// ReadVersion returns the registered version stored the last time this view
// was (re)populated, or ok=false if the view has never been populated.
func (s *Store) ReadVersion(ctx context.Context, c Conn) (version int, ok bool, err error) {
	row := c.QueryRowContext(ctx, fmt.Sprintf("SELECT version FROM %s WHERE id = 0", s.versionTable))
	if scanErr := row.Scan(&version); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, &viewcore.StorageError{Op: "readVersion", Err: scanErr}
	}
	return version, true, nil
}

// WriteVersion records the version the view was just populated at.
func (s *Store) WriteVersion(ctx context.Context, c Conn, version int) error {
	_, err := c.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, version) VALUES (0, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version`,
		s.versionTable), version)
	if err != nil {
		return &viewcore.StorageError{Op: "writeVersion", Err: err}
	}
	return nil
}

// ClearAll truncates both tables for this view.
func (s *Store) ClearAll(ctx context.Context, c Conn) error {
	if _, err := c.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.keyTable)); err != nil {
		return &viewcore.StorageError{Op: "clearAll.key", Err: err}
	}
	if _, err := c.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.pageTable)); err != nil {
		return &viewcore.StorageError{Op: "clearAll.page", Err: err}
	}
	return nil
}

// LoadAllPageMetas reads every (pageId, decoded meta) pair, used once at
// transaction-start to rebuild GroupIndex.
func (s *Store) LoadAllPageMetas(ctx context.Context, c Conn) ([]viewcore.PageMeta, error) {
	rows, err := c.QueryContext(ctx, fmt.Sprintf("SELECT pageKey, metadata FROM %s", s.pageTable))
	if err != nil {
		return nil, &viewcore.StorageError{Op: "loadAllPageMetas", Err: err}
	}
	defer rows.Close()

	var out []viewcore.PageMeta
	for rows.Next() {
		var pageKey string
		var blob []byte
		if err := rows.Scan(&pageKey, &blob); err != nil {
			return nil, &viewcore.StorageError{Op: "loadAllPageMetas.scan", Err: err}
		}
		meta, err := decodeMeta(viewcore.PageId(pageKey), blob)
		if err != nil {
			return nil, &viewcore.StorageError{Op: "loadAllPageMetas.decode", Err: err}
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, &viewcore.StorageError{Op: "loadAllPageMetas.rows", Err: err}
	}
	return out, nil
}

// ReadPage returns the ordered RowId list for a page.
func (s *Store) ReadPage(ctx context.Context, c Conn, id viewcore.PageId) ([]viewcore.RowId, error) {
	var blob []byte
	err := c.QueryRowContext(ctx, fmt.Sprintf("SELECT data FROM %s WHERE pageKey = ?", s.pageTable), string(id)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, &viewcore.StorageError{Op: "readPage", Err: fmt.Errorf("page %s not found", id)}
	}
	if err != nil {
		return nil, &viewcore.StorageError{Op: "readPage", Err: err}
	}
	rows, err := decodePage(blob)
	if err != nil {
		return nil, &viewcore.StorageError{Op: "readPage.decode", Err: err}
	}
	return rows, nil
}

// WritePage upserts a page's body and meta together.
func (s *Store) WritePage(ctx context.Context, c Conn, id viewcore.PageId, rows []viewcore.RowId, meta viewcore.PageMeta) error {
	data := encodePage(rows)
	metaBlob := encodeMeta(meta)
	_, err := c.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (pageKey, data, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(pageKey) DO UPDATE SET data = excluded.data, metadata = excluded.metadata`,
		s.pageTable), string(id), data, metaBlob)
	if err != nil {
		return &viewcore.StorageError{Op: "writePage", Err: err}
	}
	return nil
}

// WriteMeta upserts only a page's metadata, leaving its body untouched.
func (s *Store) WriteMeta(ctx context.Context, c Conn, meta viewcore.PageMeta) error {
	metaBlob := encodeMeta(meta)
	_, err := c.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (pageKey, data, metadata) VALUES (?, x'', ?)
		 ON CONFLICT(pageKey) DO UPDATE SET metadata = excluded.metadata`,
		s.pageTable), string(meta.PageID), metaBlob)
	if err != nil {
		return &viewcore.StorageError{Op: "writeMeta", Err: err}
	}
	return nil
}

// DeletePage removes a page's row entirely (body and meta).
func (s *Store) DeletePage(ctx context.Context, c Conn, id viewcore.PageId) error {
	_, err := c.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE pageKey = ?", s.pageTable), string(id))
	if err != nil {
		return &viewcore.StorageError{Op: "deletePage", Err: err}
	}
	return nil
}

// PutKeyMap records that rowId now lives on pageId.
func (s *Store) PutKeyMap(ctx context.Context, c Conn, row viewcore.RowId, pageID viewcore.PageId) error {
	_, err := c.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (collection, key, pageKey) VALUES (?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET pageKey = excluded.pageKey`,
		s.keyTable), row.Collection, row.Key, string(pageID))
	if err != nil {
		return &viewcore.StorageError{Op: "putKeyMap", Err: err}
	}
	return nil
}

// DeleteKeyMap removes rowId's mapping entirely.
func (s *Store) DeleteKeyMap(ctx context.Context, c Conn, row viewcore.RowId) error {
	_, err := c.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE collection = ? AND key = ?", s.keyTable), row.Collection, row.Key)
	if err != nil {
		return &viewcore.StorageError{Op: "deleteKeyMap", Err: err}
	}
	return nil
}

// LookupKeyMap returns the page a row lives on, if any.
func (s *Store) LookupKeyMap(ctx context.Context, c Conn, row viewcore.RowId) (viewcore.PageId, bool, error) {
	var pageKey string
	err := c.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT pageKey FROM %s WHERE collection = ? AND key = ?", s.keyTable),
		row.Collection, row.Key).Scan(&pageKey)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &viewcore.StorageError{Op: "lookupKeyMap", Err: err}
	}
	return viewcore.PageId(pageKey), true, nil
}

// LookupKeyMapMany resolves many rows to their page in one range scan,
// chunked to stay under SQLite's default bound-parameter limit the way
// removeMany (spec.md §4.5) chunks its scan of the mapping table.
const keymapScanChunk = 500

func (s *Store) LookupKeyMapMany(ctx context.Context, c Conn, rows []viewcore.RowId) (map[viewcore.RowId]viewcore.PageId, error) {
	out := make(map[viewcore.RowId]viewcore.PageId, len(rows))
	for start := 0; start < len(rows); start += keymapScanChunk {
		end := start + keymapScanChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		placeholders := make([]byte, 0, len(chunk)*6)
		args := make([]any, 0, len(chunk)*2)
		for i, r := range chunk {
			if i > 0 {
				placeholders = append(placeholders, ','...)
			}
			placeholders = append(placeholders, "(?,?)"...)
			args = append(args, r.Collection, r.Key)
		}
		query := fmt.Sprintf("SELECT collection, key, pageKey FROM %s WHERE (collection, key) IN (%s)",
			s.keyTable, string(placeholders))
		dbRows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, &viewcore.StorageError{Op: "lookupKeyMapMany", Err: err}
		}
		for dbRows.Next() {
			var collection, key, pageKey string
			if err := dbRows.Scan(&collection, &key, &pageKey); err != nil {
				dbRows.Close()
				return nil, &viewcore.StorageError{Op: "lookupKeyMapMany.scan", Err: err}
			}
			out[viewcore.RowId{Collection: collection, Key: key}] = viewcore.PageId(pageKey)
		}
		err = dbRows.Err()
		dbRows.Close()
		if err != nil {
			return nil, &viewcore.StorageError{Op: "lookupKeyMapMany.rows", Err: err}
		}
	}
	return out, nil
}
