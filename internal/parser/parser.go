// Package parser compiles sed script text into a flat command list.
//
// Parsing is the first pass of script compilation: it reads addresses and
// commands, translates and compiles every regex and replacement, and
// records labels and branches by name. Block pairing and branch
// resolution happen in the semantic pass.
package parser

import (
	"strings"

	"github.com/kolkov/used/internal/ast"
	"github.com/kolkov/used/internal/lexer"
	"github.com/kolkov/used/internal/runtime"
	"github.com/kolkov/used/internal/token"
)

// Options controls how a script is parsed.
type Options struct {
	// Dialect is the regex syntax of the script. A leading #r line upgrades
	// Basic to Extended.
	Dialect runtime.Dialect
	// Filename is reported in error positions.
	Filename string
}

// Parser holds the state of one parse.
type Parser struct {
	lex     *lexer.Lexer
	dialect runtime.Dialect
	cache   *runtime.RegexCache
	prog    *ast.Program
}

// Parse parses a complete script. Multiple fragments must already be
// joined with newlines.
func Parse(src string, opts Options) (*ast.Program, error) {
	prog := &ast.Program{Source: src}
	prog.NoAutoprint, prog.Extended = directives(src)

	dialect := opts.Dialect
	if prog.Extended && dialect == runtime.Basic {
		dialect = runtime.Extended
	}

	p := &Parser{
		lex:     lexer.NewFile(opts.Filename, src),
		dialect: dialect,
		cache:   runtime.NewRegexCache(),
		prog:    prog,
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return prog, nil
}

// directives reads #n, #r and #nr from the first line of the script.
func directives(src string) (noAutoprint, extended bool) {
	first, _, _ := strings.Cut(src, "\n")
	switch first {
	case "#n":
		return true, false
	case "#r":
		return false, true
	case "#nr", "#rn":
		return true, true
	}
	return false, false
}

func (p *Parser) parse() error {
	for {
		p.lex.SkipSeparators()
		if p.lex.AtEOF() {
			return nil
		}
		if p.lex.Peek() == '#' {
			p.lex.SkipLine()
			continue
		}
		cmd, err := p.command()
		if err != nil {
			return err
		}
		p.prog.Commands = append(p.prog.Commands, cmd)
	}
}

// incomplete builds an error for a script that ended mid-command.
func (p *Parser) incomplete(format string, args ...any) *ParseError {
	err := errorf(p.lex.Pos(), format, args...)
	err.Incomplete = true
	return err
}

// fail reports an error at pos, marking it incomplete at end of script.
func (p *Parser) fail(pos token.Position, format string, args ...any) *ParseError {
	err := errorf(pos, format, args...)
	err.Incomplete = p.lex.AtEOF()
	return err
}

func (p *Parser) command() (*ast.Command, error) {
	cmd := &ast.Command{Pos: p.lex.Pos()}
	if err := p.addresses(cmd); err != nil {
		return nil, err
	}

	p.lex.SkipSpace()
	if p.lex.Peek() == '!' {
		p.lex.Next()
		p.lex.SkipSpace()
		if p.lex.Peek() == '!' {
			return nil, errorf(p.lex.Pos(), "multiple `!'s")
		}
		cmd.Negate = true
	}

	pos := p.lex.Pos()
	if p.lex.AtEOF() || p.lex.Peek() == '\n' || p.lex.Peek() == ';' {
		if p.lex.AtEOF() {
			return nil, p.incomplete("missing command")
		}
		return nil, errorf(pos, "missing command")
	}
	ch := p.lex.Next()
	tok := token.Lookup(ch)
	if tok == token.ILLEGAL {
		return nil, errorf(pos, "unknown command: `%c'", ch)
	}

	switch {
	case cmd.Addr1 != nil && tok.MaxAddresses() == 0:
		if tok == token.COMMENT {
			return nil, errorf(pos, "comments don't accept any addresses")
		}
		return nil, errorf(pos, "%s doesn't want any addresses", tok)
	case cmd.Addr2 != nil && tok.MaxAddresses() == 1:
		return nil, errorf(pos, "command only uses one address")
	}

	op, err := p.operation(tok)
	if err != nil {
		return nil, err
	}
	cmd.Op = op

	switch tok {
	case token.LBRACE, token.APPEND, token.INSERT, token.CHANGE:
		return cmd, nil
	}
	return cmd, p.endOfCommand()
}

// endOfCommand checks that nothing but a separator follows a command.
func (p *Parser) endOfCommand() error {
	p.lex.SkipSpace()
	switch p.lex.Peek() {
	case 0, '\n', ';', '}', '#':
		return nil
	}
	return errorf(p.lex.Pos(), "extra characters after command")
}

func (p *Parser) operation(tok token.Token) (ast.Op, error) {
	switch tok {
	case token.LBRACE:
		return &ast.Block{}, nil
	case token.RBRACE:
		return &ast.BlockEnd{}, nil
	case token.COMMENT:
		p.lex.SkipLine()
		return nil, errorf(p.lex.Pos(), "comments don't accept any addresses")
	case token.LABEL:
		name := p.lex.ReadLabel()
		if name == "" {
			return nil, p.fail(p.lex.Pos(), "\":\" lacks a label")
		}
		return &ast.Label{Name: name}, nil
	case token.BRANCH, token.TEST, token.TESTNOT:
		return &ast.Branch{Kind: tok, Label: p.lex.ReadLabel()}, nil
	case token.APPEND, token.INSERT, token.CHANGE:
		text, ok := p.lex.ReadText()
		if !ok {
			return nil, p.incomplete("expected \\ after `a', `c' or `i'")
		}
		return &ast.Text{Kind: tok, Text: text}, nil
	case token.READ, token.READLINE, token.WRITE, token.WRITEHEAD:
		name := p.lex.ReadFileName()
		if name == "" {
			return nil, p.fail(p.lex.Pos(), "missing filename in r/R/w/W commands")
		}
		return &ast.File{Kind: tok, Name: name}, nil
	case token.QUIT, token.QUITSILENT:
		p.lex.SkipSpace()
		code, _ := p.lex.ReadNumber()
		return &ast.Quit{Kind: tok, Code: code}, nil
	case token.LIST:
		p.lex.SkipSpace()
		width, ok := p.lex.ReadNumber()
		return &ast.List{Width: width, HasWidth: ok}, nil
	case token.SUBST:
		return p.subst()
	case token.TRANSLIT:
		return p.translit()
	default:
		return &ast.Simple{Kind: tok}, nil
	}
}

func (p *Parser) addresses(cmd *ast.Command) error {
	addr, err := p.address()
	if err != nil || addr == nil {
		return err
	}
	cmd.Addr1 = addr

	p.lex.SkipSpace()
	if p.lex.Peek() == ',' {
		p.lex.Next()
		p.lex.SkipSpace()
		if cmd.Addr2, err = p.endAddress(); err != nil {
			return err
		}
	}

	if cmd.Addr1.Kind == ast.AddrZero {
		if cmd.Addr2 == nil || cmd.Addr2.Kind != ast.AddrRegex {
			return errorf(cmd.Pos, "invalid usage of line address 0")
		}
	}
	return nil
}

// address reads a line number, $, first~step or regex address.
// It returns nil if none is present.
func (p *Parser) address() (*ast.Address, error) {
	pos := p.lex.Pos()
	switch ch := p.lex.Peek(); {
	case ch >= '0' && ch <= '9':
		n, _ := p.lex.ReadNumber()
		if p.lex.Peek() == '~' {
			p.lex.Next()
			step, ok := p.lex.ReadNumber()
			if !ok {
				return nil, p.fail(p.lex.Pos(), "expected step after `~'")
			}
			return &ast.Address{Kind: ast.AddrStep, Line: n, Step: step}, nil
		}
		if n == 0 {
			return &ast.Address{Kind: ast.AddrZero}, nil
		}
		return &ast.Address{Kind: ast.AddrLine, Line: n}, nil
	case ch == '$':
		p.lex.Next()
		return &ast.Address{Kind: ast.AddrLast}, nil
	case ch == '/':
		p.lex.Next()
		return p.regexAddress(pos, '/')
	case ch == '\\':
		p.lex.Next()
		if p.lex.AtEOF() {
			return nil, p.incomplete("unexpected end of script after `\\'")
		}
		delim := p.lex.NextRune()
		if delim == '\n' || delim == '\\' {
			return nil, errorf(pos, "delimiter cannot be a newline or backslash")
		}
		return p.regexAddress(pos, delim)
	}
	return nil, nil
}

// endAddress reads the second address of a range.
func (p *Parser) endAddress() (*ast.Address, error) {
	pos := p.lex.Pos()
	switch p.lex.Peek() {
	case '+', '~':
		sign := p.lex.Next()
		kind := ast.AddrRelative
		if sign == '~' {
			kind = ast.AddrMultiple
		}
		n, ok := p.lex.ReadNumber()
		if !ok {
			return nil, p.fail(pos, "expected number after `%c'", sign)
		}
		if kind == ast.AddrMultiple && n <= 0 {
			return nil, errorf(pos, "invalid ~N end address: N must be positive")
		}
		return &ast.Address{Kind: kind, Line: n}, nil
	}

	addr, err := p.address()
	if err != nil {
		return nil, err
	}
	switch {
	case addr == nil:
		return nil, p.fail(pos, "unexpected `,'")
	case addr.Kind == ast.AddrZero:
		return nil, errorf(pos, "invalid usage of line address 0")
	case addr.Kind == ast.AddrStep:
		return nil, errorf(pos, "invalid end address %s", addr)
	}
	return addr, nil
}

func (p *Parser) regexAddress(pos token.Position, delim rune) (*ast.Address, error) {
	pattern, ok := p.lex.ReadDelimited(delim)
	if !ok {
		return nil, p.fail(pos, "unterminated address regex")
	}
	var flags runtime.Flags
	for {
		switch p.lex.Peek() {
		case 'I':
			flags.IgnoreCase = true
		case 'M':
			flags.Multiline = true
		default:
			re, err := p.regex(pos, pattern, flags)
			if err != nil {
				return nil, err
			}
			return &ast.Address{Kind: ast.AddrRegex, Regex: re}, nil
		}
		p.lex.Next()
	}
}

// regex compiles pattern. An empty pattern yields nil, meaning the last
// regex used at run time.
func (p *Parser) regex(pos token.Position, pattern string, flags runtime.Flags) (*runtime.Regex, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := p.cache.Get(pattern, p.dialect, flags)
	if err != nil {
		return nil, &ParseError{Pos: pos, Message: err.Error(), Err: err}
	}
	return re, nil
}

// delimiter reads the delimiter of an s or y command.
func (p *Parser) delimiter(cmd string) (rune, error) {
	if p.lex.AtEOF() {
		return 0, p.incomplete("unterminated `%s' command", cmd)
	}
	pos := p.lex.Pos()
	delim := p.lex.NextRune()
	if delim == '\n' || delim == '\\' {
		return 0, errorf(pos, "unterminated `%s' command", cmd)
	}
	return delim, nil
}

func (p *Parser) subst() (ast.Op, error) {
	pos := p.lex.Pos()
	delim, err := p.delimiter("s")
	if err != nil {
		return nil, err
	}
	pattern, ok := p.lex.ReadDelimited(delim)
	if !ok {
		return nil, p.fail(pos, "unterminated `s' command")
	}
	replacement, ok := p.lex.ReadDelimited(delim)
	if !ok {
		return nil, p.fail(pos, "unterminated `s' command")
	}

	op := &ast.Subst{}
	var flags runtime.Flags
loop:
	for {
		flagPos := p.lex.Pos()
		switch ch := p.lex.Peek(); {
		case ch == 'g':
			if op.Global {
				return nil, errorf(flagPos, "multiple `g' options to `s' command")
			}
			op.Global = true
		case ch == 'p':
			if op.Print {
				return nil, errorf(flagPos, "multiple `p' options to `s' command")
			}
			op.Print = true
		case ch >= '0' && ch <= '9':
			n, _ := p.lex.ReadNumber()
			if op.Occurrence != 0 {
				return nil, errorf(flagPos, "multiple number options to `s' command")
			}
			if n == 0 {
				return nil, errorf(flagPos, "number option to `s' command may not be zero")
			}
			op.Occurrence = n
			continue
		case ch == 'i' || ch == 'I':
			flags.IgnoreCase = true
		case ch == 'm' || ch == 'M':
			flags.Multiline = true
		case ch == 'w':
			p.lex.Next()
			if op.WFile = p.lex.ReadFileName(); op.WFile == "" {
				return nil, p.fail(p.lex.Pos(), "missing filename in r/R/w/W commands")
			}
			break loop
		case ch == 0 || ch == '\n' || ch == ';' || ch == '}' || ch == '#' || ch == ' ' || ch == '\t':
			break loop
		default:
			return nil, errorf(flagPos, "unknown option to `s'")
		}
		p.lex.Next()
	}
	if op.Occurrence == 0 {
		op.Occurrence = 1
	}

	if op.Regex, err = p.regex(pos, pattern, flags); err != nil {
		return nil, err
	}
	groups := 9
	if op.Regex != nil {
		groups = op.Regex.NumGroups()
	}
	if op.Replacement, err = runtime.CompileReplacement(replacement, groups); err != nil {
		return nil, &ParseError{Pos: pos, Message: err.Error(), Err: err}
	}
	return op, nil
}

func (p *Parser) translit() (ast.Op, error) {
	pos := p.lex.Pos()
	delim, err := p.delimiter("y")
	if err != nil {
		return nil, err
	}
	src, ok := p.lex.ReadDelimited(delim)
	if !ok {
		return nil, p.fail(pos, "unterminated `y' command")
	}
	dst, ok := p.lex.ReadDelimited(delim)
	if !ok {
		return nil, p.fail(pos, "unterminated `y' command")
	}

	from := []rune(runtime.Unescape(src))
	to := []rune(runtime.Unescape(dst))
	if len(from) != len(to) {
		return nil, errorf(pos, "strings for `y' command are different lengths")
	}
	m := make(map[rune]rune, len(from))
	for i, r := range from {
		if _, dup := m[r]; !dup {
			m[r] = to[i]
		}
	}
	return &ast.Translit{Src: src, Dst: dst, Map: m}, nil
}
