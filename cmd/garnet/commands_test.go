package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/garnet/bytecode"
	"github.com/chazu/garnet/config"
	"github.com/chazu/garnet/insn"
	"github.com/chazu/garnet/store"
)

func writeProgram(t *testing.T, path string, ins ...insn.Instruction) {
	t.Helper()
	data, err := bytecode.Encode(insn.NewSequence(ins...))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestInputs(t *testing.T) {
	cfg := config.Default("/proj")
	_, err := inputs(cfg, nil)
	assert.ErrorIs(t, err, errNoInput)

	cfg.Project.Entry = "main.natbc"
	files, err := inputs(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/main.natbc"}, files)

	files, err = inputs(cfg, []string{"a.natbc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.natbc"}, files)
}

func TestTransformJob(t *testing.T) {
	dir := t.TempDir()
	prog := filepath.Join(dir, "hello.natbc")
	writeProgram(t, prog,
		&insn.LoadFile{Filename: "lib/util.rb"},
		&insn.Pop{},
		&insn.PushString{Value: "hi"},
		&insn.Send{Message: "puts", ArgCount: 1, ReceiverIsSelf: true},
	)
	writeProgram(t, filepath.Join(dir, "build", "util.natbc"), &insn.PushInt{Value: 1})

	cfg := config.Default(dir)
	cfg.Load.Files = map[string]string{"lib/util.rb": "build/util.natbc"}

	cache, err := store.Open("", 4)
	require.NoError(t, err)
	defer cache.Close()

	files := config.NewResolver(cfg)
	deps, err := dependencyBytes(cfg, files)
	require.NoError(t, err)
	assert.NotEmpty(t, deps)

	job := &transformJob{
		cache:  cache,
		files:  files,
		opts:   cfg.TransformOptions(),
		outDir: filepath.Join(dir, "out"),
		deps:   deps,
	}
	require.NoError(t, os.MkdirAll(job.outDir, 0o755))
	require.NoError(t, job.run(context.Background(), prog))

	src, err := os.ReadFile(filepath.Join(job.outDir, "hello.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package main")
	assert.Contains(t, string(src), `env.LoadFile("lib/util.rb", false, loadFile_lib_util_rb`)

	// the second run is served from the cache
	require.NoError(t, os.Remove(filepath.Join(job.outDir, "hello.go")))
	require.NoError(t, job.run(context.Background(), prog))
	again, err := os.ReadFile(filepath.Join(job.outDir, "hello.go"))
	require.NoError(t, err)
	assert.Equal(t, src, again)
}

func TestTransformJobReportsBadInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.natbc")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))

	cache, err := store.Open("", 1)
	require.NoError(t, err)
	defer cache.Close()

	job := &transformJob{cache: cache, files: config.NewResolver(config.Default(dir)), outDir: dir}
	err = job.run(context.Background(), bad)
	assert.ErrorIs(t, err, bytecode.ErrUnexpectedEOF)
}

func TestTransformJobKeysByPath(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.natbc"), filepath.Join(dir, "b.natbc")
	for _, path := range []string{a, b} {
		writeProgram(t, path, &insn.PushInt{Value: 1})
	}

	cache, err := store.Open("", 4)
	require.NoError(t, err)
	defer cache.Close()

	job := &transformJob{cache: cache, files: config.NewResolver(config.Default(dir)), outDir: dir}
	require.NoError(t, job.run(context.Background(), a))
	require.NoError(t, job.run(context.Background(), b))

	for name, path := range map[string]string{"a.go": a, "b.go": b} {
		src, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Contains(t, string(src), "object.Main("+strconv.Quote(path)+", eval)")
	}
}
