// Package vm executes compiled sed programs.
//
// The engine runs the classic cycle: fetch a line into pattern space, run
// the command list over it with an instruction pointer, autoprint, flush
// the append queue, repeat. Range state lives on the commands themselves,
// and side files belong to one VM for one Run.
package vm

import (
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kolkov/used/internal/ast"
	"github.com/kolkov/used/internal/runtime"
	"github.com/kolkov/used/internal/token"
)

// DefaultLineWrap is the l command's wrap width when none is configured.
const DefaultLineWrap = 70

// Debug levels.
const (
	DebugProgram = 1 // program listing and configuration
	DebugCycle   = 2 // one entry per cycle
	DebugCommand = 3 // one entry per executed command
)

// Config configures a VM.
type Config struct {
	// NoAutoprint suppresses the end-of-cycle print (-n). A #n directive
	// in the program also suppresses it.
	NoAutoprint bool

	// Separate restarts line numbers, ranges and $ for each source.
	Separate bool

	// InPlace rewrites each file source with its output. Implies Separate.
	InPlace bool

	// BackupSuffix names the backup of an in-place source. Empty means no
	// backup; a '*' is replaced by the source's base name.
	BackupSuffix string

	// LineWrap is the l command's default width; 0 or less disables wrapping.
	LineWrap int

	// Debug is the logging level, 0 to 3.
	Debug int

	Fs      afero.Fs
	Charset *runtime.Charset
	Stdin   io.Reader
	Stderr  io.Writer
	Logger  *zap.Logger
}

// action tells the cycle loop how the script ended.
type action uint8

const (
	actEnd     action = iota // end of script: autoprint
	actDelete                // d: next cycle without autoprint
	actRestart               // D: rerun on the remaining pattern space
	actQuit                  // q: autoprint, then stop
	actHalt                  // Q: stop at once
	actEOF                   // n or N at end of input: autoprint, stop this stream
)

type appendKind uint8

const (
	appendText appendKind = iota
	appendFile
	appendLine
)

type appendItem struct {
	kind    appendKind
	text    string
	newline bool
}

// VM is the sed execution engine.
type VM struct {
	prog *ast.Program
	cfg  Config
	log  *zap.Logger

	fs      afero.Fs
	charset *runtime.Charset

	// Output
	stdout *runtime.Output
	out    *runtime.Output // stdout, or the in-place temp file
	files  *runtime.IOManager

	in *cursor

	// Cycle state
	ps          string
	psNewline   bool
	hold        string
	holdNewline bool
	substituted bool
	appends     []appendItem
	lastRegex   *runtime.Regex

	noAutoprint bool
	exitCode    int
	halted      bool
}

// New creates a VM for prog.
func New(prog *ast.Program, cfg Config) *VM {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.InPlace {
		cfg.Separate = true
	}
	return &VM{
		prog:        prog,
		cfg:         cfg,
		log:         cfg.Logger,
		fs:          cfg.Fs,
		charset:     cfg.Charset,
		noAutoprint: cfg.NoAutoprint || prog.NoAutoprint,
	}
}

// Run executes the program over sources, writing to out. A q or Q with a
// non-zero code returns *ExitError; failures return *RuntimeError.
func (vm *VM) Run(sources []Source, out io.Writer) (err error) {
	vm.stdout = runtime.NewOutput(out, vm.charset)
	vm.out = vm.stdout
	vm.files = runtime.NewIOManager(vm.fs, vm.charset, vm.cfg.Stdin, vm.stdout, vm.cfg.Stderr)
	vm.in = newCursor(vm, sources, vm.cfg.Separate)
	vm.hold = ""
	vm.holdNewline = true
	vm.lastRegex = nil
	vm.exitCode = 0
	vm.halted = false
	vm.appends = vm.appends[:0]

	if vm.cfg.Debug >= DebugProgram {
		vm.log.Info("running program",
			zap.Int("commands", len(vm.prog.Commands)),
			zap.Int("sources", len(sources)),
			zap.Bool("noAutoprint", vm.noAutoprint),
			zap.Bool("separate", vm.cfg.Separate),
			zap.Bool("inPlace", vm.cfg.InPlace),
			zap.String("listing", vm.prog.String()))
	}

	defer func() {
		vm.in.close()
		if ferr := vm.stdout.Flush(); ferr != nil && err == nil {
			err = ioError(ferr)
		}
		if cerr := vm.files.CloseAll(); cerr != nil && err == nil {
			err = &RuntimeError{Message: "couldn't close files", Code: 2, Err: cerr}
		}
		if err == nil && vm.exitCode != 0 {
			err = &ExitError{Code: vm.exitCode}
		}
	}()

	for _, name := range vm.prog.WriteFiles() {
		if _, err := vm.files.OutputFile(name); err != nil {
			return &RuntimeError{Message: "couldn't open write file", Code: 2, Err: err}
		}
	}

	if !vm.cfg.Separate {
		vm.resetRanges()
		return vm.process()
	}
	for !vm.halted {
		ok, err := vm.in.nextSource()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		vm.resetRanges()
		if vm.cfg.InPlace && vm.in.cur.Path != "" {
			err = vm.editInPlace(vm.in.cur.Path)
		} else {
			err = vm.process()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// resetRanges deactivates every range. A 0,/re/ range starts active so
// its end is tested on the first line.
func (vm *VM) resetRanges() {
	vm.prog.ResetRanges()
	for _, c := range vm.prog.Commands {
		if c.Addr1 != nil && c.Addr1.Kind == ast.AddrZero {
			c.Range.Active = true
		}
	}
}

// process runs cycles until the current stream is exhausted or the
// program quits.
func (vm *VM) process() error {
	for !vm.halted {
		ok, err := vm.fetch()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := vm.cycle(); err != nil {
			return err
		}
	}
	return nil
}

// fetch loads the next line into pattern space.
func (vm *VM) fetch() (bool, error) {
	line, newline, ok, err := vm.in.read()
	if err != nil || !ok {
		return false, err
	}
	vm.ps, vm.psNewline = line, newline
	vm.substituted = false
	return true, nil
}

// cycle runs the script over the current pattern space, restarting for D.
func (vm *VM) cycle() error {
	for {
		if vm.cfg.Debug >= DebugCycle {
			vm.log.Debug("cycle", zap.Int("line", vm.in.line), zap.String("pattern", vm.ps))
		}
		act, err := vm.execute()
		if err != nil {
			return err
		}
		switch act {
		case actEnd, actQuit, actEOF:
			if err := vm.autoprint(); err != nil {
				return err
			}
		}
		if act != actHalt {
			if err := vm.flushAppends(); err != nil {
				return err
			}
		}
		switch act {
		case actRestart:
			continue
		case actQuit, actHalt:
			vm.halted = true
		}
		return nil
	}
}

func (vm *VM) autoprint() error {
	if vm.noAutoprint {
		return nil
	}
	return vm.write(vm.out, vm.ps, vm.psNewline)
}

func (vm *VM) write(o *runtime.Output, s string, newline bool) error {
	if err := o.WriteLine(s, newline); err != nil {
		return ioError(err)
	}
	return nil
}

// flushAppends emits the text queued by a, r and R.
func (vm *VM) flushAppends() error {
	for _, item := range vm.appends {
		var err error
		switch item.kind {
		case appendText:
			err = vm.out.WriteLine(item.text, true)
		case appendLine:
			err = vm.out.WriteLine(item.text, item.newline)
		case appendFile:
			if content, ok := vm.files.ReadFile(item.text); ok {
				err = vm.out.WriteRaw(content)
			}
		}
		if err != nil {
			return ioError(err)
		}
	}
	vm.appends = vm.appends[:0]
	return nil
}

// execute runs the command list once from the top.
func (vm *VM) execute() (action, error) {
	cmds := vm.prog.Commands
	for pc := 0; pc < len(cmds); {
		cmd := cmds[pc]
		matched, err := vm.matches(cmd)
		if err != nil {
			return actEnd, err
		}
		if !matched {
			if b, ok := cmd.Op.(*ast.Block); ok {
				pc = b.End + 1
			} else {
				pc++
			}
			continue
		}
		if vm.cfg.Debug >= DebugCommand {
			vm.log.Debug("exec", zap.Int("pc", pc), zap.Stringer("op", cmd.Op))
		}
		next := pc + 1

		switch op := cmd.Op.(type) {
		case *ast.Block, *ast.BlockEnd, *ast.Label:

		case *ast.Subst:
			if err := vm.substitute(op); err != nil {
				return actEnd, err
			}

		case *ast.Translit:
			vm.ps = op.Apply(vm.ps)

		case *ast.Branch:
			switch op.Kind {
			case token.BRANCH:
				next = op.Target
			case token.TEST:
				if vm.substituted {
					vm.substituted = false
					next = op.Target
				}
			case token.TESTNOT:
				if !vm.substituted {
					next = op.Target
				} else {
					vm.substituted = false
				}
			}

		case *ast.Text:
			switch op.Kind {
			case token.APPEND:
				vm.appends = append(vm.appends, appendItem{kind: appendText, text: op.Text})
			case token.INSERT:
				if err := vm.write(vm.out, op.Text, true); err != nil {
					return actEnd, err
				}
			case token.CHANGE:
				if !cmd.IsRange() || cmd.Negate || !cmd.Range.Active {
					if err := vm.write(vm.out, op.Text, true); err != nil {
						return actEnd, err
					}
				}
				return actDelete, nil
			}

		case *ast.File:
			if err := vm.file(op); err != nil {
				return actEnd, err
			}

		case *ast.Quit:
			vm.exitCode = op.Code
			if op.Kind == token.QUITSILENT {
				return actHalt, nil
			}
			return actQuit, nil

		case *ast.List:
			width := vm.cfg.LineWrap
			if op.HasWidth {
				width = op.Width
			}
			if err := vm.out.WriteRaw(runtime.Escape(vm.ps, width)); err != nil {
				return actEnd, ioError(err)
			}

		case *ast.Simple:
			act, done, err := vm.simple(op.Kind)
			if err != nil || done {
				return act, err
			}
		}
		pc = next
	}
	return actEnd, nil
}

// simple executes an operand-free command. done reports that the cycle
// ends with act.
func (vm *VM) simple(kind token.Token) (act action, done bool, err error) {
	switch kind {
	case token.LINENUM:
		err = vm.write(vm.out, strconv.Itoa(vm.in.line), true)
	case token.FILENAME:
		err = vm.write(vm.out, vm.in.fileName(), true)
	case token.DELETE:
		return actDelete, true, nil
	case token.DELETEHEAD:
		i := strings.IndexByte(vm.ps, '\n')
		if i < 0 {
			return actDelete, true, nil
		}
		vm.ps = vm.ps[i+1:]
		return actRestart, true, nil
	// The terminator travels with the text on g, h and x.
	case token.GET:
		vm.ps, vm.psNewline = vm.hold, vm.holdNewline
	case token.GETAPPEND:
		vm.ps += "\n" + vm.hold
	case token.HOLD:
		vm.hold, vm.holdNewline = vm.ps, vm.psNewline
	case token.HOLDAPPEND:
		vm.hold += "\n" + vm.ps
	case token.EXCHANGE:
		vm.ps, vm.hold = vm.hold, vm.ps
		vm.psNewline, vm.holdNewline = vm.holdNewline, vm.psNewline
	case token.ZAP:
		vm.ps = ""
	case token.PRINT:
		err = vm.write(vm.out, vm.ps, vm.psNewline)
	case token.PRINTHEAD:
		head, newline := vm.head()
		err = vm.write(vm.out, head, newline)
	case token.NEXT:
		last, err := vm.in.isLast()
		if err != nil {
			return actEnd, true, err
		}
		if last {
			return actEOF, true, nil
		}
		if err := vm.autoprint(); err != nil {
			return actEnd, true, err
		}
		if err := vm.flushAppends(); err != nil {
			return actEnd, true, err
		}
		if _, err := vm.fetch(); err != nil {
			return actEnd, true, err
		}
	case token.NEXTAPPEND:
		last, err := vm.in.isLast()
		if err != nil {
			return actEnd, true, err
		}
		if last {
			return actEOF, true, nil
		}
		if err := vm.flushAppends(); err != nil {
			return actEnd, true, err
		}
		ps := vm.ps
		if _, err := vm.fetch(); err != nil {
			return actEnd, true, err
		}
		vm.ps = ps + "\n" + vm.ps
	}
	return actEnd, false, err
}

// head returns the first line of pattern space and whether it is followed
// by a newline.
func (vm *VM) head() (string, bool) {
	if i := strings.IndexByte(vm.ps, '\n'); i >= 0 {
		return vm.ps[:i], true
	}
	return vm.ps, vm.psNewline
}

// file executes r, R, w and W.
func (vm *VM) file(op *ast.File) error {
	switch op.Kind {
	case token.READ:
		vm.appends = append(vm.appends, appendItem{kind: appendFile, text: op.Name})
	case token.READLINE:
		if line, newline, ok := vm.files.ReadLine(op.Name); ok {
			vm.appends = append(vm.appends, appendItem{kind: appendLine, text: line, newline: newline})
		}
	case token.WRITE, token.WRITEHEAD:
		o, err := vm.files.OutputFile(op.Name)
		if err != nil {
			return &RuntimeError{Message: "couldn't open write file", Code: 2, Err: err}
		}
		if op.Kind == token.WRITE {
			return vm.write(o, vm.ps, vm.psNewline)
		}
		head, newline := vm.head()
		return vm.write(o, head, newline)
	}
	return nil
}

// regex resolves an empty pattern to the last regex used and records re
// as the last one.
func (vm *VM) regex(re *runtime.Regex) (*runtime.Regex, error) {
	if re == nil {
		if vm.lastRegex == nil {
			return nil, &RuntimeError{Message: "no previous regular expression", Code: 1}
		}
		return vm.lastRegex, nil
	}
	vm.lastRegex = re
	return re, nil
}

// substitute executes s.
func (vm *VM) substitute(op *ast.Subst) error {
	re, err := vm.regex(op.Regex)
	if err != nil {
		return err
	}
	limit := -1
	if !op.Global {
		limit = op.Occurrence
	}
	matches := re.FindAllSubmatchIndex(vm.ps, limit)
	if len(matches) < op.Occurrence {
		return nil
	}
	var b strings.Builder
	last := 0
	for _, m := range matches[op.Occurrence-1:] {
		b.WriteString(vm.ps[last:m[0]])
		op.Replacement.Expand(&b, vm.ps, m)
		last = m[1]
	}
	b.WriteString(vm.ps[last:])
	vm.ps = b.String()
	vm.substituted = true

	if op.Print {
		if err := vm.write(vm.out, vm.ps, vm.psNewline); err != nil {
			return err
		}
	}
	if op.WFile != "" {
		o, err := vm.files.OutputFile(op.WFile)
		if err != nil {
			return &RuntimeError{Message: "couldn't open write file", Code: 2, Err: err}
		}
		return vm.write(o, vm.ps, vm.psNewline)
	}
	return nil
}

// Hold returns the hold space.
func (vm *VM) Hold() string {
	return vm.hold
}
