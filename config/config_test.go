package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/garnet/bytecode"
	"github.com/chazu/garnet/insn"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "hello"
entry = "main.natbc"

[load]
files = { "lib/util.rb" = "build/util.natbc" }

[transform]
var_prefix = "hello_"
strict_branch_arity = true
format = false
output = "gen"

[cache]
path = "/tmp/garnet.db"
size = 16

[log]
verbosity = 2
`)

	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "hello", c.Project.Name)
	assert.Equal(t, filepath.Join(c.Dir, "main.natbc"), c.EntryPath())
	assert.Equal(t, map[string]string{"lib/util.rb": "build/util.natbc"}, c.Load.Files)
	assert.Equal(t, filepath.Join(c.Dir, "gen"), c.OutputDir())
	assert.Equal(t, "/tmp/garnet.db", c.CachePath(), "absolute paths are kept")
	assert.Equal(t, 16, c.Cache.Size)
	assert.Equal(t, 2, c.Log.Verbosity)

	opts := c.TransformOptions()
	assert.Equal(t, "hello_", opts.VarPrefix)
	assert.True(t, opts.StrictBranchArity)
	assert.True(t, opts.Raw)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "minimal"
`)

	c, err := Load(dir)
	require.NoError(t, err)

	require.NotNil(t, c.Transform.Format)
	assert.True(t, *c.Transform.Format)
	assert.False(t, c.TransformOptions().Raw)
	assert.Equal(t, filepath.Join(c.Dir, "build"), c.OutputDir())
	assert.Equal(t, filepath.Join(c.Dir, ".garnet", "cache.db"), c.CachePath())
	assert.Equal(t, 128, c.Cache.Size)
	assert.Empty(t, c.EntryPath())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "[project\n", "parse error"},
		{"unknown key", "[project]\nnmae = \"x\"\n", "unknown key project.nmae"},
		{"negative cache size", "[cache]\nsize = -1\n", "cache size"},
		{"empty load entry", "[load]\nfiles = { \"a.rb\" = \"\" }\n", "load.files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCacheDisabled(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[cache]\ndisabled = true\n")
	c, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, c.CachePath())
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeConfig(t, dir, "[project]\nname = \"found\"\n")

	c, err := FindAndLoad(sub)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "found", c.Project.Name)
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDefault(t *testing.T) {
	c := Default("/work")
	assert.Equal(t, "/work/build", c.OutputDir())
	assert.Equal(t, "/work/.garnet/cache.db", c.CachePath())
	assert.Empty(t, c.TransformOptions().VarPrefix)
}

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	data, err := bytecode.Encode(insn.NewSequence(&insn.PushInt{Value: 7}))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "util.natbc"), data, 0o644))

	writeConfig(t, dir, `
[load]
files = { "lib/util.rb" = "build/util.natbc", "lib/gone.rb" = "build/gone.natbc" }
`)
	c, err := Load(dir)
	require.NoError(t, err)

	r := NewResolver(c)
	assert.Equal(t, []string{"lib/gone.rb", "lib/util.rb"}, r.Files())

	seq, err := r.Resolve("lib/util.rb")
	require.NoError(t, err)
	require.Equal(t, 1, seq.Len())
	assert.Equal(t, &insn.PushInt{Value: 7}, seq.At(0))

	seq.Advance()
	again, err := r.Resolve("lib/util.rb")
	require.NoError(t, err)
	assert.Equal(t, 0, again.IP(), "each resolve gets its own cursor")

	_, err = r.Resolve("lib/other.rb")
	assert.ErrorIs(t, err, insn.ErrFileNotFound)

	_, err = r.Resolve("lib/gone.rb")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
