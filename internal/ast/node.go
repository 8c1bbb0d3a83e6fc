// Package ast defines the compiled form of sed scripts.
//
// A script compiles to a flat list of commands rather than a tree: blocks
// are a { command that knows the index of its }, and branches carry the
// index they jump to. The engine walks the list with an instruction
// pointer.
//
//	Program
//	├── Commands []*Command
//	│   ├── Addr1, Addr2 *Address   - line, $, /re/, first~step, 0, +N, ~N
//	│   ├── Range RangeState        - per-command range activation
//	│   └── Op                      - one variant per command family
//	│       ├── *Block, *BlockEnd   - { and }
//	│       ├── *Subst, *Translit   - s and y
//	│       ├── *Branch, *Label     - b t T and :
//	│       ├── *Text, *File        - a i c and r R w W
//	│       ├── *Quit, *List        - q Q and l
//	│       └── *Simple             - = d D F g G h H n N p P x z
//	└── Labels map[string]int
package ast

import (
	"fmt"
	"strings"

	"github.com/kolkov/used/internal/runtime"
)

// AddrKind identifies the form of an address.
type AddrKind uint8

const (
	// AddrLine matches one line number.
	AddrLine AddrKind = iota
	// AddrLast matches the last line ($).
	AddrLast
	// AddrRegex matches lines the regex matches.
	AddrRegex
	// AddrStep matches first, first+step, first+2*step, ...
	AddrStep
	// AddrZero is the 0 of 0,/re/: the range is active before line 1.
	AddrZero
	// AddrRelative is +N as a range end.
	AddrRelative
	// AddrMultiple is ~N as a range end.
	AddrMultiple
)

// Address is one side of a command's address.
type Address struct {
	Kind AddrKind
	// Line is the line number for AddrLine, the first line for AddrStep,
	// and N for AddrRelative and AddrMultiple.
	Line int
	// Step is the step of AddrStep.
	Step int
	// Regex is the pattern of AddrRegex; nil means the last regex used.
	Regex *runtime.Regex
}

// String formats the address as it would be written in a script.
func (a *Address) String() string {
	switch a.Kind {
	case AddrLine:
		return fmt.Sprint(a.Line)
	case AddrLast:
		return "$"
	case AddrRegex:
		if a.Regex == nil {
			return "//"
		}
		return formatRegex(a.Regex)
	case AddrStep:
		return fmt.Sprintf("%d~%d", a.Line, a.Step)
	case AddrZero:
		return "0"
	case AddrRelative:
		return fmt.Sprintf("+%d", a.Line)
	case AddrMultiple:
		return fmt.Sprintf("~%d", a.Line)
	default:
		return fmt.Sprintf("<AddrKind %d>", a.Kind)
	}
}

func formatRegex(re *runtime.Regex) string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(strings.ReplaceAll(re.Source(), "/", `\/`))
	b.WriteByte('/')
	if re.Flags().IgnoreCase {
		b.WriteByte('I')
	}
	if re.Flags().Multiline {
		b.WriteByte('M')
	}
	return b.String()
}
