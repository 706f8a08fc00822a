// Package vm is a tree-walking interpreter for instruction sequences.
//
// The interpreter walks a sequence with insn.Sequence.Walk and executes each
// instruction against the current frame. Instructions that open a region
// (if, while, try, definitions) carve their bodies out of the stream with
// FetchBlock and run them recursively. Non-local exits travel back up as
// control signals; uncaught Ruby exceptions come out of Execute as
// *object.Exception errors and malformed instruction streams as
// *insn.InternalError.
package vm

import (
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/garnet/insn"
	"github.com/chazu/garnet/object"
)

var log = commonlog.GetLogger("garnet.vm")

// Option configures a VM.
type Option func(*config)

type config struct {
	files  insn.Resolver
	trace  bool
	log    commonlog.Logger
	stdout io.Writer
}

// WithFiles sets the resolver consulted by load_file.
func WithFiles(r insn.Resolver) Option {
	return func(c *config) { c.files = r }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(c *config) { c.trace = enabled }
}

// WithLogger replaces the package logger.
func WithLogger(l commonlog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithStdout redirects program output.
func WithStdout(w io.Writer) Option {
	return func(c *config) { c.stdout = w }
}

// VM executes instruction sequences against one object runtime.
type VM struct {
	rt       *object.Runtime
	files    insn.Resolver
	trace    bool
	log      commonlog.Logger
	literals map[*insn.PushString]*object.String
	arms     map[*insn.If]int
}

// New creates a VM with a freshly booted runtime.
func New(opts ...Option) *VM {
	cfg := &config{files: insn.Files{}, log: log}
	for _, opt := range opts {
		opt(cfg)
	}
	return &VM{
		rt:       object.NewRuntime(cfg.stdout),
		files:    cfg.files,
		trace:    cfg.trace,
		log:      cfg.log,
		literals: make(map[*insn.PushString]*object.String),
		arms:     make(map[*insn.If]int),
	}
}

// Runtime returns the object runtime the VM executes against.
func (v *VM) Runtime() *object.Runtime { return v.rt }

// Execute runs seq as the top level of a program with self bound to the
// main object and returns the value it produced.
func (v *VM) Execute(seq *insn.Sequence) (result object.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*insn.InternalError)
			if !ok {
				panic(r)
			}
			v.log.Errorf("%s", ie)
			result, err = nil, ie
		}
	}()

	file := "-"
	if seq.Len() > 0 && seq.At(0).Meta().File != "" {
		file = seq.At(0).Meta().File
	}
	env := v.rt.TopEnv(file)
	f := v.newFrame(env, v.rt.Main, nil, insn.NewEnv(insn.EnvTop, nil))
	return f.result(v.run(f, seq), nil)
}

// run walks seq from its start in frame f and returns the signal that
// ended it.
func (v *VM) run(f *frame, seq *insn.Sequence) control {
	seq.Rewind()
	ctl := normal
	seq.Walk(func(in insn.Instruction) bool {
		if m := in.Meta(); m.Line > 0 {
			if m.File != "" {
				f.env.SetFile(m.File)
			}
			f.env.SetLine(m.Line)
		}
		if v.trace {
			v.log.Debugf("%04d %-40s stack=%d", seq.IP()-1, in, len(f.stack))
		}
		ctl = v.exec(f, seq, in)
		return ctl.sig == sigNormal
	})
	return ctl
}

func internal(in insn.Instruction, format string, args ...any) {
	panic(insn.Errorf(in, format, args...))
}

func (v *VM) fetch(in insn.Instruction, seq *insn.Sequence, until insn.Opcode, label string) *insn.Sequence {
	body, err := seq.FetchBlock(until, label)
	if err != nil {
		if ie, ok := err.(*insn.InternalError); ok {
			panic(ie)
		}
		internal(in, "%w", err)
	}
	return body
}
