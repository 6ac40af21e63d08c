// Package overlay implements the durable, tombstoned key/value store that
// backs the virtual HKLM view. It is an embedded SQL database
// (modernc.org/sqlite, WAL journal mode) with two tables, keys and values,
// exposing a narrow contract: put_key, delete_key_tree, is_key_deleted,
// key_exists_locally, put_value, delete_value, get_value, list_values,
// list_immediate_subkeys, export_all.
//
// All row names are compared case-insensitively but stored in their
// original case; comparisons fold through a generated lower(...) column
// rather than relying on SQLite's default (ASCII-only) NOCASE collation,
// since key segments may contain non-ASCII characters.
package overlay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

const schema = `
CREATE TABLE IF NOT EXISTS keys (
	key_path   TEXT PRIMARY KEY,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS values_ (
	key_path   TEXT NOT NULL,
	value_name TEXT NOT NULL,
	type       INTEGER NOT NULL,
	data       BLOB,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (key_path, value_name)
);
CREATE INDEX IF NOT EXISTS values_key_path_idx ON values_(key_path);
`

// Store is a single overlay database, opened once per process. A Store is
// safe for concurrent use by multiple goroutines; writes are serialized by
// an internal mutex, since modernc.org/sqlite does not multiplex concurrent
// writers onto one connection gracefully under WAL. Reads proceed unlocked.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if absent) the overlay database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: open", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: enable WAL", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=OFF;`); err != nil {
		db.Close()
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: pragma", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: create schema", err)
	}
	return &Store{db: db}, nil
}

// Close checkpoints the WAL on a best-effort basis and closes the
// underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE);`)
	return s.db.Close()
}

func now() int64 { return time.Now().UnixNano() }

// PutKey inserts or un-tombstones path and every ancestor up to HKLM.
func (s *Store) PutKey(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: put_key begin", err)
	}
	defer tx.Rollback()
	if err := putKeyTx(ctx, tx, path); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: put_key commit", err)
	}
	return nil
}

func putKeyTx(ctx context.Context, tx *sql.Tx, path string) error {
	ts := now()
	for _, anc := range keypath.Ancestors(path) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO keys(key_path, is_deleted, updated_at) VALUES (?, 0, ?)
			ON CONFLICT(key_path) DO UPDATE SET is_deleted=0, updated_at=excluded.updated_at
		`, anc, ts)
		if err != nil {
			return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: put_key", err)
		}
	}
	return nil
}

// DeleteKeyTree tombstones the key row for path and every value row whose
// key_path equals path or begins with path\, atomically.
func (s *Store) DeleteKeyTree(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_key_tree begin", err)
	}
	defer tx.Rollback()
	ts := now()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO keys(key_path, is_deleted, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(key_path) DO UPDATE SET is_deleted=1, updated_at=excluded.updated_at
	`, path, ts); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_key_tree key row", err)
	}

	prefix := path + `\`
	if _, err := tx.ExecContext(ctx, `
		UPDATE values_ SET is_deleted=1, updated_at=?
		WHERE key_path = ? OR key_path LIKE ? ESCAPE '\'
	`, ts, path, escapeLike(prefix)+"%"); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_key_tree values", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE keys SET is_deleted=1, updated_at=?
		WHERE key_path LIKE ? ESCAPE '\'
	`, ts, escapeLike(prefix)+"%"); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_key_tree subkeys", err)
	}

	if err := tx.Commit(); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_key_tree commit", err)
	}
	return nil
}

// escapeLike escapes LIKE metacharacters in a value destined for a LIKE
// pattern, so arbitrary key-path segments (which may legitimately contain
// '%' or '_') do not act as wildcards.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsKeyDeleted reports whether path or any ancestor has a tombstone;
// a deleted ancestor hides its entire subtree.
func (s *Store) IsKeyDeleted(ctx context.Context, path string) (bool, error) {
	ancestors := keypath.Ancestors(path)
	placeholders := make([]string, len(ancestors))
	args := make([]any, len(ancestors))
	for i, a := range ancestors {
		placeholders[i] = "?"
		args[i] = a
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM keys WHERE is_deleted=1 AND key_path IN (%s)`,
		strings.Join(placeholders, ","))
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: is_key_deleted", err)
	}
	return n > 0, nil
}

// KeyExistsLocally reports whether the overlay has any non-tombstoned
// evidence of path: a live key row, or any live value under it.
func (s *Store) KeyExistsLocally(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM keys WHERE key_path=? AND is_deleted=0) +
			(SELECT COUNT(*) FROM values_ WHERE key_path=? AND is_deleted=0)
	`, path, path).Scan(&n)
	if err != nil {
		return false, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: key_exists_locally", err)
	}
	return n > 0, nil
}

// PutValue upserts the value as live, first ensuring put_key(path).
func (s *Store) PutValue(ctx context.Context, path, name string, typ regtypes.Type, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: put_value begin", err)
	}
	defer tx.Rollback()

	if err := putKeyTx(ctx, tx, path); err != nil {
		return err
	}
	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO values_(key_path, value_name, type, data, is_deleted, updated_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(key_path, value_name) DO UPDATE SET
			type=excluded.type, data=excluded.data, is_deleted=0, updated_at=excluded.updated_at
	`, path, name, uint32(typ), data, ts)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: put_value", err)
	}
	if err := tx.Commit(); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: put_value commit", err)
	}
	return nil
}

// DeleteValue tombstones the single value, upserting key rows as needed.
func (s *Store) DeleteValue(ctx context.Context, path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_value begin", err)
	}
	defer tx.Rollback()

	if err := putKeyTx(ctx, tx, path); err != nil {
		return err
	}
	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO values_(key_path, value_name, type, data, is_deleted, updated_at)
		VALUES (?, ?, 0, NULL, 1, ?)
		ON CONFLICT(key_path, value_name) DO UPDATE SET is_deleted=1, updated_at=excluded.updated_at
	`, path, name, ts)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_value", err)
	}
	if err := tx.Commit(); err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: delete_value commit", err)
	}
	return nil
}

// GetValue returns the overlay row for (path, name), or (nil, nil) if no
// row exists at all.
func (s *Store) GetValue(ctx context.Context, path, name string) (*regtypes.Value, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT type, data, is_deleted, updated_at FROM values_ WHERE key_path=? AND value_name=?
	`, path, name)
	var v regtypes.Value
	var typ uint32
	var data []byte
	var deleted int
	if err := row.Scan(&typ, &data, &deleted, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: get_value", err)
	}
	v.Name = name
	v.Type = regtypes.Type(typ)
	v.Data = data
	v.IsDeleted = deleted != 0
	return &v, nil
}

// ListValues returns all overlay rows for path, live and tombstoned.
func (s *Store) ListValues(ctx context.Context, path string) ([]regtypes.Value, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value_name, type, data, is_deleted, updated_at FROM values_ WHERE key_path=?
	`, path)
	if err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_values", err)
	}
	defer rows.Close()

	var out []regtypes.Value
	for rows.Next() {
		var v regtypes.Value
		var typ uint32
		var deleted int
		if err := rows.Scan(&v.Name, &typ, &v.Data, &deleted, &v.UpdatedAt); err != nil {
			return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_values scan", err)
		}
		v.Type = regtypes.Type(typ)
		v.IsDeleted = deleted != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListImmediateSubkeys returns immediate children of path observed in the
// overlay, live and tombstoned.
func (s *Store) ListImmediateSubkeys(ctx context.Context, path string) ([]SubkeyRow, error) {
	prefix := path + `\`
	rows, err := s.db.QueryContext(ctx, `
		SELECT key_path, is_deleted FROM keys WHERE key_path LIKE ? ESCAPE '\'
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_immediate_subkeys", err)
	}
	defer rows.Close()

	seen := map[string]*SubkeyRow{}
	var order []string
	for rows.Next() {
		var full string
		var deleted int
		if err := rows.Scan(&full, &deleted); err != nil {
			return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_immediate_subkeys scan", err)
		}
		name, ok := keypath.ImmediateChild(full, path)
		if !ok {
			continue
		}
		fold := keypath.Fold(name)
		if existing, ok := seen[fold]; ok {
			if deleted != 0 {
				existing.IsDeleted = true
			}
			continue
		}
		order = append(order, fold)
		seen[fold] = &SubkeyRow{Name: name, IsDeleted: deleted != 0}
	}
	if err := rows.Err(); err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_immediate_subkeys rows", err)
	}

	// Also surface children that only exist via a live value row under
	// them with no explicit key row: a key materializes implicitly the
	// first time a value is written under it.
	vrows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT key_path FROM values_ WHERE key_path LIKE ? ESCAPE '\' AND is_deleted=0
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_immediate_subkeys values", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var full string
		if err := vrows.Scan(&full); err != nil {
			return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_immediate_subkeys values scan", err)
		}
		name, ok := keypath.ImmediateChild(full, path)
		if !ok {
			continue
		}
		fold := keypath.Fold(name)
		if _, ok := seen[fold]; ok {
			continue
		}
		order = append(order, fold)
		seen[fold] = &SubkeyRow{Name: name, IsDeleted: false}
	}
	if err := vrows.Err(); err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: list_immediate_subkeys values rows", err)
	}

	sort.Strings(order)
	out := make([]SubkeyRow, 0, len(order))
	for _, fold := range order {
		out = append(out, *seen[fold])
	}
	return out, nil
}

// SubkeyRow is one entry returned by ListImmediateSubkeys.
type SubkeyRow struct {
	Name      string
	IsDeleted bool
}

// ExportedRow is one entry in the ordered stream ExportAll produces.
type ExportedRow struct {
	KeyPath   string
	ValueName string
	Type      regtypes.Type
	Data      []byte
	KeyOnly   bool // synthetic row for a live key with no live values
}

// ExportAll returns an ordered stream of (key_path, value_name, type,
// bytes, is_key_only), including synthetic key-only rows for paths that
// have a live key record but no live values, so empty keys round-trip
// through export.
func (s *Store) ExportAll(ctx context.Context) ([]ExportedRow, error) {
	liveKeys := map[string]bool{}
	krows, err := s.db.QueryContext(ctx, `SELECT key_path FROM keys WHERE is_deleted=0 ORDER BY key_path`)
	if err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: export_all keys", err)
	}
	var keyOrder []string
	for krows.Next() {
		var p string
		if err := krows.Scan(&p); err != nil {
			krows.Close()
			return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: export_all keys scan", err)
		}
		liveKeys[p] = true
		keyOrder = append(keyOrder, p)
	}
	if err := krows.Err(); err != nil {
		krows.Close()
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: export_all keys rows", err)
	}
	krows.Close()

	hasLiveValue := map[string]bool{}
	vrows, err := s.db.QueryContext(ctx, `
		SELECT key_path, value_name, type, data FROM values_ WHERE is_deleted=0 ORDER BY key_path, value_name
	`)
	if err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: export_all values", err)
	}
	defer vrows.Close()

	byKey := map[string][]ExportedRow{}
	for vrows.Next() {
		var p, name string
		var typ uint32
		var data []byte
		if err := vrows.Scan(&p, &name, &typ, &data); err != nil {
			return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: export_all values scan", err)
		}
		hasLiveValue[p] = true
		byKey[p] = append(byKey[p], ExportedRow{KeyPath: p, ValueName: name, Type: regtypes.Type(typ), Data: data})
		if !liveKeys[p] {
			liveKeys[p] = true
			keyOrder = append(keyOrder, p)
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: export_all values rows", err)
	}

	var out []ExportedRow
	for _, k := range keyOrder {
		if rows, ok := byKey[k]; ok {
			out = append(out, rows...)
		} else {
			out = append(out, ExportedRow{KeyPath: k, KeyOnly: true})
		}
	}
	return out, nil
}

// Stats reports diagnostic row counts for the administrative CLI's `dump
// --stats` flow.
type Stats struct {
	LiveKeys        int
	TombstonedKeys  int
	LiveValues      int
	TombstonedValues int
}

// Stats computes row-count diagnostics over the whole store.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM keys WHERE is_deleted=0`).Scan(&st.LiveKeys)
	if err != nil {
		return st, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM keys WHERE is_deleted=1`).Scan(&st.TombstonedKeys); err != nil {
		return st, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM values_ WHERE is_deleted=0`).Scan(&st.LiveValues); err != nil {
		return st, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM values_ WHERE is_deleted=1`).Scan(&st.TombstonedValues); err != nil {
		return st, regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: stats", err)
	}
	return st, nil
}

// Vacuum reclaims free space left by tombstones. Administrative
// maintenance only; tombstones themselves are never garbage collected,
// Vacuum just compacts the file on disk without removing any row.
func (s *Store) Vacuum(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `VACUUM;`)
	if err != nil {
		return regtypes.Wrap(regtypes.ErrKindStoreFailure, "overlay: vacuum", err)
	}
	return nil
}
