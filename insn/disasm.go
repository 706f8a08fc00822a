package insn

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of seq, one instruction per line, indented
// by region nesting.
func Disassemble(seq *Sequence) string {
	return DisassembleWithName(seq, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(seq *Sequence, name string) string {
	var sb strings.Builder
	if name != "" {
		fmt.Fprintf(&sb, "; === %s ===\n", name)
	}
	for _, line := range DisassembleToLines(seq) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleToLines returns the listing as separate lines.
func DisassembleToLines(seq *Sequence) []string {
	lines := make([]string, 0, seq.Len())
	depth := 0
	for i, in := range seq.Instructions() {
		op := in.Op()
		indent := depth
		switch op {
		case OpEnd:
			depth--
			indent = depth
		case OpElse, OpCatch, OpWhileBody:
			indent = depth - 1
		}
		if indent < 0 {
			indent = 0
		}
		line := fmt.Sprintf("%04d  %s%s", i, strings.Repeat("  ", indent), in)
		if m := in.Meta(); m.File != "" {
			line += fmt.Sprintf("  ; %s:%d", m.File, m.Line)
		}
		lines = append(lines, line)
		if op.HasBody() {
			depth++
		}
	}
	return lines
}
