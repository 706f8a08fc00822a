// Package store caches generated Go programs keyed by the bytecode and
// options they were generated from.
//
// An LRU of decoded units fronts an optional sqlite database holding the
// units CBOR-encoded, so repeated transforms across runs skip code
// generation.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"github.com/tliron/commonlog"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"github.com/chazu/garnet/transform"
)

var log = commonlog.GetLogger("garnet.store")

// DefaultSize is the number of units kept in memory when Open is given no
// size.
const DefaultSize = 128

// generatorVersion is part of every key; bump it when the generated code
// changes for the same input.
const generatorVersion = 2

const schema = `CREATE TABLE IF NOT EXISTS units (
	key BLOB NOT NULL PRIMARY KEY,
	body BLOB NOT NULL,
	created_at INTEGER NOT NULL
) WITHOUT ROWID`

// Key identifies a generated unit.
type Key [32]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

type keyInput struct {
	Version           int    `cbor:"1,keyasint"`
	Bytecode          []byte `cbor:"2,keyasint"`
	VarPrefix         string `cbor:"3,keyasint"`
	StrictBranchArity bool   `cbor:"4,keyasint"`
	Raw               bool   `cbor:"5,keyasint"`
	File              string `cbor:"6,keyasint"`
	Deps              []byte `cbor:"7,keyasint"`
}

// NewKey hashes an encoded program together with the file it is compiled
// as, the load_file dependencies it can pull in and the options it is
// transformed with. The generated program embeds file, so the same bytes
// under two paths get two keys.
func NewKey(file string, bytecode, deps []byte, opts transform.Options) Key {
	b, err := encMode.Marshal(keyInput{
		Version:           generatorVersion,
		Bytecode:          bytecode,
		File:              file,
		Deps:              deps,
		VarPrefix:         opts.VarPrefix,
		StrictBranchArity: opts.StrictBranchArity,
		Raw:               opts.Raw,
	})
	if err != nil {
		panic(fmt.Sprintf("store: encoding key: %v", err))
	}
	return Key(blake3.Sum256(b))
}

// Cache is a two-level compile cache. It is safe for concurrent use.
type Cache struct {
	db     *sqlx.DB
	memory *lru.Cache[Key, *transform.Unit]
}

// Open opens the cache database at path, creating it if needed. An empty
// path gives a cache that only lives in memory.
func Open(path string, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	memory, err := lru.New[Key, *transform.Unit](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	c := &Cache{memory: memory}
	if path == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	c.db = db
	log.Debugf("opened %s", path)
	return c, nil
}

// Get returns the unit stored under key.
func (c *Cache) Get(ctx context.Context, key Key) (*transform.Unit, bool, error) {
	if u, ok := c.memory.Get(key); ok {
		return u, true, nil
	}
	if c.db == nil {
		return nil, false, nil
	}

	var body []byte
	err := c.db.GetContext(ctx, &body, `SELECT body FROM units WHERE key = ?`, key[:])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	u, err := UnmarshalUnit(body)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	c.memory.Add(key, u)
	log.Debugf("loaded %s from disk", key)
	return u, true, nil
}

// Put stores u under key, replacing any earlier unit.
func (c *Cache) Put(ctx context.Context, key Key, u *transform.Unit) error {
	c.memory.Add(key, u)
	if c.db == nil {
		return nil
	}

	body, err := MarshalUnit(u)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO units (key, body, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, created_at = excluded.created_at`,
		key[:], body, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Prune deletes the stored units written before cutoff and returns how
// many were removed. The memory level is cleared.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	c.memory.Purge()
	if c.db == nil {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM units WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
