package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/garnet/bytecode"
	"github.com/chazu/garnet/config"
	"github.com/chazu/garnet/insn"
	"github.com/chazu/garnet/object"
	"github.com/chazu/garnet/store"
	"github.com/chazu/garnet/transform"
	"github.com/chazu/garnet/vm"
)

var errNoInput = errors.New("no input files and no project entry")

func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return abs, nil
}

func loadSequence(path string) ([]byte, *insn.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	seq, err := bytecode.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, seq, nil
}

// inputs returns the files named on the command line, or the project entry.
func inputs(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if entry := cfg.EntryPath(); entry != "" {
		return []string{entry}, nil
	}
	return nil, errNoInput
}

// ---------------------------------------------------------------------------
// garnet run
// ---------------------------------------------------------------------------

// handleRunCommand returns the process exit status.
func handleRunCommand(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "Log every executed instruction")
	fs.Parse(args)

	files, err := inputs(cfg, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	_, seq, err := loadSequence(files[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	machine := vm.New(
		vm.WithFiles(config.NewResolver(cfg)),
		vm.WithTrace(*trace),
	)
	machine.Runtime().SetGlobal("$0", object.NewString(files[0]))
	if _, err := machine.Execute(seq); err != nil {
		object.ReportError(os.Stderr, err)
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// garnet disasm
// ---------------------------------------------------------------------------

func handleDisasmCommand(args []string) error {
	if len(args) == 0 {
		return errNoInput
	}
	for _, path := range args {
		_, seq, err := loadSequence(path)
		if err != nil {
			return err
		}
		fmt.Print(insn.DisassembleWithName(seq, path))
	}
	return nil
}

// ---------------------------------------------------------------------------
// garnet transform
// ---------------------------------------------------------------------------

type transformJob struct {
	cache  *store.Cache
	files  *config.Resolver
	opts   transform.Options
	outDir string

	// deps holds the contents of every configured load file and is part
	// of each cache key.
	deps []byte
}

func handleTransformCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	outDir := fs.String("o", cfg.OutputDir(), "Output directory")
	noCache := fs.Bool("no-cache", false, "Do not read or write the compile cache")
	jobs := fs.Int("j", runtime.NumCPU(), "Number of programs generated at once")
	fs.Parse(args)

	files, err := inputs(cfg, fs.Args())
	if err != nil {
		return err
	}

	cachePath := cfg.CachePath()
	if *noCache {
		cachePath = ""
	}
	cache, err := store.Open(cachePath, cfg.Cache.Size)
	if err != nil {
		return err
	}
	defer cache.Close()

	job := &transformJob{
		cache:  cache,
		files:  config.NewResolver(cfg),
		opts:   cfg.TransformOptions(),
		outDir: *outDir,
	}
	if job.deps, err = dependencyBytes(cfg, job.files); err != nil {
		return err
	}
	if err := os.MkdirAll(job.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(max(*jobs, 1))
	for _, path := range files {
		eg.Go(func() error { return job.run(ctx, path) })
	}
	return eg.Wait()
}

func dependencyBytes(cfg *config.Config, files *config.Resolver) ([]byte, error) {
	var deps []byte
	for _, name := range files.Files() {
		data, err := os.ReadFile(cfg.Path(cfg.Load.Files[name]))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		deps = fmt.Appendf(deps, "%s\x00%d\x00", name, len(data))
		deps = append(deps, data...)
	}
	return deps, nil
}

func (j *transformJob) run(ctx context.Context, path string) error {
	data, seq, err := loadSequence(path)
	if err != nil {
		return err
	}

	key := store.NewKey(path, data, j.deps, j.opts)
	unit, ok, err := j.cache.Get(ctx, key)
	if err != nil {
		log.Warningf("ignoring cache entry for %s: %v", path, err)
	}
	if !ok {
		unit, err = transform.Compile(seq, path, j.files, j.opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := j.cache.Put(ctx, key, unit); err != nil {
			log.Warningf("caching %s: %v", path, err)
		}
	} else {
		log.Infof("%s: cached as %s", path, key)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".go"
	out := filepath.Join(j.outDir, name)
	if err := os.WriteFile(out, []byte(unit.Source), 0o644); err != nil {
		return err
	}
	log.Infof("wrote %s", out)
	return nil
}

// ---------------------------------------------------------------------------
// garnet cache
// ---------------------------------------------------------------------------

func handleCacheCommand(cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] != "prune" {
		return errors.New("usage: garnet cache prune [-older duration]")
	}
	fs := flag.NewFlagSet("cache prune", flag.ExitOnError)
	older := fs.Duration("older", 7*24*time.Hour, "Drop entries written longer ago than this")
	fs.Parse(args[1:])

	path := cfg.CachePath()
	if path == "" {
		return errors.New("the compile cache is disabled")
	}
	cache, err := store.Open(path, cfg.Cache.Size)
	if err != nil {
		return err
	}
	defer cache.Close()

	n, err := cache.Prune(context.Background(), time.Now().Add(-*older))
	if err != nil {
		return err
	}
	fmt.Printf("removed %d entries\n", n)
	return nil
}
