package vm

import "github.com/kolkov/used/internal/ast"

// matches reports whether cmd applies to the current line. Negation only
// inverts the result; range bookkeeping happens either way.
func (vm *VM) matches(cmd *ast.Command) (bool, error) {
	if cmd.Addr1 == nil {
		return !cmd.Negate, nil
	}
	var (
		m   bool
		err error
	)
	if cmd.Addr2 == nil {
		m, err = vm.matchAddr(cmd.Addr1)
	} else {
		m, err = vm.matchRange(cmd)
	}
	if err != nil {
		return false, err
	}
	return m != cmd.Negate, nil
}

// matchAddr tests a single address against the current line.
func (vm *VM) matchAddr(a *ast.Address) (bool, error) {
	line := vm.in.line
	switch a.Kind {
	case ast.AddrLine:
		return line == a.Line, nil
	case ast.AddrLast:
		return vm.in.isLast()
	case ast.AddrRegex:
		re, err := vm.regex(a.Regex)
		if err != nil {
			return false, err
		}
		return re.MatchString(vm.ps), nil
	case ast.AddrStep:
		if a.Step <= 0 {
			return line == a.Line, nil
		}
		return line >= a.Line && (line-a.Line)%a.Step == 0, nil
	}
	return false, nil
}

// matchRange runs the range state machine of cmd. Once addr1 matches, the
// activating line is always part of the range.
func (vm *VM) matchRange(cmd *ast.Command) (bool, error) {
	r := &cmd.Range
	end := cmd.Addr2
	line := vm.in.line

	if !r.Active {
		ok, err := vm.matchAddr(cmd.Addr1)
		if err != nil || !ok {
			return false, err
		}
		r.Start = line
		switch end.Kind {
		case ast.AddrLine:
			r.Active = end.Line > line
			r.End = end.Line
		case ast.AddrRelative:
			r.Active = end.Line > 0
			r.End = line + end.Line
		case ast.AddrMultiple:
			r.Active = line%end.Line != 0
		case ast.AddrLast:
			last, err := vm.in.isLast()
			if err != nil {
				return false, err
			}
			r.Active = !last
		default:
			// A regex end is first tested on the next line.
			r.Active = true
		}
		return true, nil
	}

	switch end.Kind {
	case ast.AddrLine, ast.AddrRelative:
		// n or N may have skipped past the end line.
		if line >= r.End {
			r.Active = false
		}
		return line <= r.End, nil
	case ast.AddrMultiple:
		if line%end.Line == 0 {
			r.Active = false
		}
	case ast.AddrLast:
		last, err := vm.in.isLast()
		if err != nil {
			return false, err
		}
		r.Active = !last
	case ast.AddrRegex:
		re, err := vm.regex(end.Regex)
		if err != nil {
			return false, err
		}
		if re.MatchString(vm.ps) {
			r.Active = false
		}
	}
	return true, nil
}
