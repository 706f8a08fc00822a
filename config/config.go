// Package config handles garnet.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/garnet/transform"
)

// FileName is the name of the project file looked up by FindAndLoad.
const FileName = "garnet.toml"

// Config represents a garnet.toml project configuration.
type Config struct {
	Project   Project   `toml:"project"`
	Load      LoadFiles `toml:"load"`
	Transform Transform `toml:"transform"`
	Cache     Cache     `toml:"cache"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the garnet.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// LoadFiles maps the logical filenames named by load_file to bytecode files.
type LoadFiles struct {
	Files map[string]string `toml:"files"`
}

// Transform configures Go code generation.
type Transform struct {
	VarPrefix         string `toml:"var_prefix"`
	StrictBranchArity bool   `toml:"strict_branch_arity"`
	Format            *bool  `toml:"format"`
	Output            string `toml:"output"`
}

// Cache configures the compile cache.
type Cache struct {
	Path     string `toml:"path"`
	Size     int    `toml:"size"`
	Disabled bool   `toml:"disabled"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns the configuration used when no garnet.toml exists.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

// Load parses a garnet.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a garnet.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.Transform.Format == nil {
		on := true
		c.Transform.Format = &on
	}
	if c.Transform.Output == "" {
		c.Transform.Output = "build"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(".garnet", "cache.db")
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 128
	}
}

var ErrInvalid = errors.New("invalid configuration")

func (c *Config) validate() error {
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: cache size %d", ErrInvalid, c.Cache.Size)
	}
	if c.Log.Verbosity < -1 {
		return fmt.Errorf("%w: log verbosity %d", ErrInvalid, c.Log.Verbosity)
	}
	for name, file := range c.Load.Files {
		if name == "" || file == "" {
			return fmt.Errorf("%w: empty entry in load.files", ErrInvalid)
		}
	}
	return nil
}

// Path resolves p against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// EntryPath returns the absolute path of the entry bytecode file.
func (c *Config) EntryPath() string { return c.Path(c.Project.Entry) }

// CachePath returns the absolute path of the compile cache database, or ""
// when the cache is disabled.
func (c *Config) CachePath() string {
	if c.Cache.Disabled {
		return ""
	}
	return c.Path(c.Cache.Path)
}

// OutputDir returns the absolute path generated Go files are written to.
func (c *Config) OutputDir() string { return c.Path(c.Transform.Output) }

// TransformOptions returns the code generation options.
func (c *Config) TransformOptions() transform.Options {
	return transform.Options{
		VarPrefix:         c.Transform.VarPrefix,
		StrictBranchArity: c.Transform.StrictBranchArity,
		Raw:               c.Transform.Format != nil && !*c.Transform.Format,
	}
}
