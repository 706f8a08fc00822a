package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/garnet/transform"
)

func sampleUnit() *transform.Unit {
	return &transform.Unit{
		Source:  "package main\n",
		Files:   []string{"lib/a.rb"},
		Symbols: 3,
		Strings: 1,
	}
}

func TestNewKey(t *testing.T) {
	code := []byte("NatX\x00\x00")
	base := NewKey("main.natbc", code, nil, transform.Options{})

	assert.Equal(t, base, NewKey("main.natbc", code, nil, transform.Options{}))
	assert.NotEqual(t, base, NewKey("main.natbc", []byte("NatX\x00\x01"), nil, transform.Options{}))
	assert.NotEqual(t, base, NewKey("other.natbc", code, nil, transform.Options{}))
	assert.NotEqual(t, base, NewKey("main.natbc", code, []byte("lib"), transform.Options{}))
	assert.NotEqual(t, base, NewKey("main.natbc", code, nil, transform.Options{VarPrefix: "u_"}))
	assert.NotEqual(t, base, NewKey("main.natbc", code, nil, transform.Options{StrictBranchArity: true}))
	assert.NotEqual(t, base, NewKey("main.natbc", code, nil, transform.Options{Raw: true}))
	assert.Len(t, base.String(), 64)
}

func TestNewKeySeparatesProgramFromDeps(t *testing.T) {
	// the same concatenated bytes split differently
	assert.NotEqual(t,
		NewKey("main.natbc", []byte("ab"), []byte("c"), transform.Options{}),
		NewKey("main.natbc", []byte("a"), []byte("bc"), transform.Options{}))
}

func TestUnitEncoding(t *testing.T) {
	u := sampleUnit()
	b, err := MarshalUnit(u)
	require.NoError(t, err)

	again, err := MarshalUnit(u)
	require.NoError(t, err)
	assert.Equal(t, b, again, "encoding is deterministic")

	got, err := UnmarshalUnit(b)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = UnmarshalUnit([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c, err := Open("", 1)
	require.NoError(t, err)
	defer c.Close()

	a := NewKey("main.natbc", []byte("a"), nil, transform.Options{})
	b := NewKey("main.natbc", []byte("b"), nil, transform.Options{})

	_, ok, err := c.Get(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, a, sampleUnit()))
	got, ok, err := c.Get(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleUnit(), got)

	require.NoError(t, c.Put(ctx, b, &transform.Unit{Source: "b"}))
	_, ok, err = c.Get(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok, "a was evicted")
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	key := NewKey("main.natbc", []byte("program"), nil, transform.Options{})

	c, err := Open(path, 4)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, key, &transform.Unit{Source: "old"}))
	require.NoError(t, c.Put(ctx, key, sampleUnit()))
	require.NoError(t, c.Close())

	c, err = Open(path, 4)
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleUnit(), got)

	var rows int
	require.NoError(t, c.db.Get(&rows, `SELECT COUNT(*) FROM units`))
	assert.Equal(t, 1, rows, "a second put replaces the row")
}

func TestCorruptRow(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), 4)
	require.NoError(t, err)
	defer c.Close()

	key := NewKey("main.natbc", []byte("x"), nil, transform.Options{})
	_, err = c.db.Exec(`INSERT INTO units (key, body, created_at) VALUES (?, ?, ?)`, key[:], []byte{0xff}, 0)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, key)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), 4)
	require.NoError(t, err)
	defer c.Close()

	old := NewKey("main.natbc", []byte("old"), nil, transform.Options{})
	_, err = c.db.Exec(`INSERT INTO units (key, body, created_at) VALUES (?, ?, ?)`, old[:], []byte{0xa0}, 10)
	require.NoError(t, err)
	fresh := NewKey("main.natbc", []byte("fresh"), nil, transform.Options{})
	require.NoError(t, c.Put(ctx, fresh, sampleUnit()))

	n, err := c.Prune(ctx, time.Unix(1000, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := c.Get(ctx, old)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.Get(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
}
