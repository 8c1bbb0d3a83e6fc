package used

import (
	"bytes"
	"io"

	"go.uber.org/zap"

	"github.com/kolkov/used/internal/ast"
	"github.com/kolkov/used/internal/parser"
	"github.com/kolkov/used/internal/semantic"
	"github.com/kolkov/used/internal/vm"
)

// Program represents a compiled sed script ready for execution.
// Range addresses keep their state on the program while it runs, so a
// Program must not be run concurrently; each Run starts from fresh state.
type Program struct {
	prog    *ast.Program
	source  string
	dialect Dialect
}

// compile parses and resolves src. Errors are the internal parser and
// resolver errors; callers convert them.
func compile(src string, dialect Dialect) (*Program, error) {
	prog, err := parser.Parse(src, parser.Options{Dialect: dialect.internal()})
	if err != nil {
		return nil, err
	}
	if err := semantic.Resolve(prog); err != nil {
		return nil, err
	}
	return &Program{prog: prog, source: src, dialect: dialect}, nil
}

// Run executes the program over input and returns the output.
//
// If config is nil, default configuration is used.
func (p *Program) Run(input io.Reader, config *Config) (string, error) {
	var out bytes.Buffer
	err := p.Exec([]Input{Reader(input)}, &out, config)
	return out.String(), err
}

// Exec executes the program over inputs, writing to out. A q or Q with a
// non-zero code is reported as *ExitError after all output is written.
func (p *Program) Exec(inputs []Input, out io.Writer, config *Config) error {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()
	cs, err := cfg.charset()
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		inputs = []Input{Stdin()}
	}
	if cfg.Debug > 0 {
		cfg.Logger.Info("applying script",
			zap.Stringer("dialect", p.dialect),
			zap.String("encoding", cs.Name()),
			zap.Int("inputs", len(inputs)),
			zap.Int("lineWrap", cfg.LineWrap),
			zap.String("backupSuffix", cfg.BackupSuffix))
	}
	machine := vm.New(p.prog, cfg.vmConfig(cs))
	if err := machine.Run(sources(inputs), out); err != nil {
		return runError(err)
	}
	return nil
}

// Disassemble returns a listing of the compiled commands with their
// resolved branch targets. Useful for debugging scripts.
func (p *Program) Disassemble() string {
	return p.prog.String()
}

// Source returns the script text the program was compiled from.
func (p *Program) Source() string {
	return p.source
}
