// garnet runs, disassembles and transforms compiled bytecode programs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/garnet/config"
	"github.com/chazu/garnet/internal/logging"
)

var log = commonlog.GetLogger("garnet.cli")

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return fmt.Sprint(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(string) error { *v++; return nil }

func main() {
	var verbose verbosity
	flag.Var(&verbose, "v", "Verbose output (repeat for more)")
	quiet := flag.Bool("q", false, "Disable logging")
	dir := flag.String("C", ".", "Look for garnet.toml starting in this directory")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: garnet [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run [-trace] [file.natbc]            Execute a program with the interpreter\n")
		fmt.Fprintf(os.Stderr, "  disasm file.natbc...                 Print the instructions of programs\n")
		fmt.Fprintf(os.Stderr, "  transform [-o dir] [file.natbc...]   Generate Go programs\n")
		fmt.Fprintf(os.Stderr, "  cache prune [-older duration]        Drop old entries from the compile cache\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", config.FileName, err)
		os.Exit(1)
	}
	logging.Configure(logging.Verbosity(cfg.Log.Verbosity, int(verbose), *quiet), cfg.Path(cfg.Log.Path))

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "run":
		os.Exit(handleRunCommand(cfg, args[1:]))
	case "disasm":
		err = handleDisasmCommand(args[1:])
	case "transform":
		err = handleTransformCommand(cfg, args[1:])
	case "cache":
		err = handleCacheCommand(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig finds garnet.toml above dir, falling back to the defaults
// rooted at dir.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		log.Debugf("using %s", cfg.Path(config.FileName))
		return cfg, nil
	}
	abs, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	return config.Default(abs), nil
}
