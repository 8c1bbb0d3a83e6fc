package ast

import "github.com/kolkov/used/internal/token"

// Program is a compiled sed script.
type Program struct {
	// Source is the concatenated script text.
	Source string

	Commands []*Command

	// Labels maps label names to command indices.
	Labels map[string]int

	// NoAutoprint is set by a leading #n line.
	NoAutoprint bool

	// Extended is set by a leading #r or #nr line.
	Extended bool
}

// RangeState is the activation state of a command's range address.
type RangeState struct {
	Active bool
	// Start is the line that activated the range.
	Start int
	// End is the computed last line for line-number and +N ends.
	End int
}

// Command is one compiled command.
type Command struct {
	Pos    token.Position
	Addr1  *Address
	Addr2  *Address
	Negate bool
	Op     Op
	Range  RangeState
}

// Token returns the command letter.
func (c *Command) Token() token.Token {
	return c.Op.Token()
}

// IsRange reports whether the command has two addresses.
func (c *Command) IsRange() bool {
	return c.Addr2 != nil
}

// ResetRanges deactivates every range address.
func (p *Program) ResetRanges() {
	for _, c := range p.Commands {
		c.Range = RangeState{}
	}
}

// WriteFiles returns the distinct file names written by w, W and s///w,
// in program order.
func (p *Program) WriteFiles() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, c := range p.Commands {
		switch op := c.Op.(type) {
		case *File:
			if op.Kind == token.WRITE || op.Kind == token.WRITEHEAD {
				add(op.Name)
			}
		case *Subst:
			add(op.WFile)
		}
	}
	return names
}
