package transform

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/chazu/garnet/insn"
)

// Unit is one generated Go program.
type Unit struct {
	Source  string
	Files   []string // logical filenames compiled in through load_file
	Symbols int
	Strings int
}

var program = template.Must(template.New("program").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// Code generated by garnet from {{.File}}. DO NOT EDIT.

package main

import (
{{- range .Imports}}
	{{quote .}}
{{- end}}
)

var (
	{{.Prefix}}symbols  [{{len .Symbols}}]object.Symbol
	{{.Prefix}}literals [{{len .Strings}}]*object.String
)
{{range .Top}}
{{.}}
{{- end}}

func main() {
	object.Main({{quote .File}}, {{.Eval}})
}
`))

// Compile generates the Go program for seq, the top level of file. files
// resolves the targets of load_file.
func Compile(seq *insn.Sequence, file string, files insn.Resolver, opts Options) (*Unit, error) {
	data := NewData(files, opts)
	return data.Program(New(seq, data), file)
}

// Program generates the program whose top level is top.
func (d *Data) Program(top *Transform, file string) (unit *Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*insn.InternalError)
			if !ok {
				panic(r)
			}
			d.log.Errorf("%s", ie)
			unit, err = nil, ie
		}
	}()

	eval := d.opts.VarPrefix + "eval"
	d.Top(eval, top.function(eval, false, d.prelude))

	src, err := d.render(file, eval)
	if err != nil {
		return nil, err
	}
	if !d.opts.Raw {
		formatted, err := imports.Process(filepath.Base(file)+".go", src, &imports.Options{
			FormatOnly: true,
			Comments:   true,
			TabIndent:  true,
			TabWidth:   8,
		})
		if err != nil {
			return nil, fmt.Errorf("formatting generated code: %w", err)
		}
		src = formatted
	}

	unit = &Unit{
		Source:  string(src),
		Symbols: len(d.symbols),
		Strings: len(d.strings),
	}
	for name := range d.CompiledFiles {
		unit.Files = append(unit.Files, name)
	}
	sort.Strings(unit.Files)
	d.log.Infof("generated %s: %d functions, %d symbols, %d strings", file, len(d.top), unit.Symbols, unit.Strings)
	return unit, nil
}

// prelude sets up the pools before the program body runs: symbols first,
// then the string pool is registered with the runtime before any literal is
// allocated, then each literal is built and frozen.
func (d *Data) prelude() []string {
	var lines []string
	for i, s := range d.symbols {
		lines = append(lines, fmt.Sprintf("%ssymbols[%d] = env.Intern(%s)", d.opts.VarPrefix, i, strconv.Quote(s)))
	}
	lines = append(lines, fmt.Sprintf("env.Runtime().SetInternedStrings(%sliterals[:])", d.opts.VarPrefix))
	for i, s := range d.strings {
		lines = append(lines,
			fmt.Sprintf("%sliterals[%d] = object.NewStringWithEncoding(%s, %s)", d.opts.VarPrefix, i, strconv.Quote(s.value), strconv.Quote(s.encoding)),
			fmt.Sprintf("%sliterals[%d].Freeze()", d.opts.VarPrefix, i),
		)
	}
	return lines
}

func (d *Data) render(file, eval string) ([]byte, error) {
	var paths []string
	for p := range d.imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var top []string
	for _, decl := range d.top {
		top = append(top, decl.code)
	}

	var buf bytes.Buffer
	err := program.Execute(&buf, struct {
		File    string
		Prefix  string
		Imports []string
		Symbols []string
		Strings []literal
		Top     []string
		Eval    string
	}{file, d.opts.VarPrefix, paths, d.symbols, d.strings, top, eval})
	if err != nil {
		return nil, fmt.Errorf("rendering program: %w", err)
	}
	return buf.Bytes(), nil
}
