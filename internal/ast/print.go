package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes a human-readable listing of a compiled program, one
// command per line prefixed by its index.
type Printer struct {
	w      io.Writer
	indent int
	err    error
}

// NewPrinter creates a new Printer that writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes the listing of prog.
func (p *Printer) Print(prog *Program) error {
	if prog.NoAutoprint || prog.Extended {
		p.printf("# directives: noautoprint=%v extended=%v\n", prog.NoAutoprint, prog.Extended)
	}
	for i, c := range prog.Commands {
		if _, ok := c.Op.(*BlockEnd); ok && p.indent > 0 {
			p.indent--
		}
		p.printf("%04d: %s", i, strings.Repeat("  ", p.indent))
		p.printCommand(c)
		p.printf("\n")
		if _, ok := c.Op.(*Block); ok {
			p.indent++
		}
	}
	return p.err
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) printCommand(c *Command) {
	if c.Addr1 != nil {
		p.printf("%s", c.Addr1)
	}
	if c.Addr2 != nil {
		p.printf(",%s", c.Addr2)
	}
	if c.Negate {
		p.printf("!")
	}
	if c.Addr1 != nil {
		p.printf(" ")
	}
	p.printf("%s", c.Op)
}

// String returns the program listing.
func (p *Program) String() string {
	var b strings.Builder
	NewPrinter(&b).Print(p)
	return b.String()
}
