package semantic

import (
	"github.com/kolkov/used/internal/ast"
)

// Resolver performs the second pass over a parsed program.
type Resolver struct {
	prog   *ast.Program
	errors ErrorList
}

// Resolve pairs blocks, builds the label table and resolves branch
// targets in place. All problems found are returned as an ErrorList.
func Resolve(prog *ast.Program) error {
	r := &Resolver{prog: prog}
	r.pairBlocks()
	r.collectLabels()
	r.resolveBranches()
	return r.errors.Err()
}

func (r *Resolver) pairBlocks() {
	var open []int
	for i, cmd := range r.prog.Commands {
		switch op := cmd.Op.(type) {
		case *ast.Block:
			open = append(open, i)
			op.End = -1
		case *ast.BlockEnd:
			if len(open) == 0 {
				r.errors.Add(cmd.Pos, "unexpected `}'")
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			r.prog.Commands[start].Op.(*ast.Block).End = i
		}
	}
	for _, i := range open {
		e := r.errors.Add(r.prog.Commands[i].Pos, "unmatched `{'")
		e.Incomplete = true
	}
}

func (r *Resolver) collectLabels() {
	r.prog.Labels = make(map[string]int)
	for i, cmd := range r.prog.Commands {
		label, ok := cmd.Op.(*ast.Label)
		if !ok {
			continue
		}
		if _, dup := r.prog.Labels[label.Name]; dup {
			r.errors.Add(cmd.Pos, "duplicate label %q", label.Name)
			continue
		}
		r.prog.Labels[label.Name] = i
	}
}

func (r *Resolver) resolveBranches() {
	end := len(r.prog.Commands)
	for _, cmd := range r.prog.Commands {
		branch, ok := cmd.Op.(*ast.Branch)
		if !ok {
			continue
		}
		if branch.Label == "" {
			branch.Target = end
			continue
		}
		target, ok := r.prog.Labels[branch.Label]
		if !ok {
			e := r.errors.Add(cmd.Pos, "can't find label for jump to `%s'", branch.Label)
			e.Label = branch.Label
			e.Incomplete = true
			continue
		}
		branch.Target = target
	}
}
