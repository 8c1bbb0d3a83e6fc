package used

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Sed is a stream editor that accumulates script fragments, the way
// repeated -e and -f options do, and applies them to inputs.
//
// Fragments are joined with newlines and compiled as one script, so a
// construct may span fragments: an a\ text, a { block, or a branch to a
// label defined later. Errors that more script could fix are held back
// until Apply; other compile errors are returned by Load at once and the
// offending fragment is dropped.
//
// A Sed must not be used concurrently.
type Sed struct {
	config    Config
	fragments []string
	prog      *Program
	pending   error

	exitCode int
	lastErr  error
}

// New creates a stream editor. If config is nil, default configuration is
// used.
func New(config *Config) *Sed {
	s := &Sed{}
	if config != nil {
		s.config = *config
	}
	s.config.applyDefaults()
	return s
}

// Load compiles script and appends it to the loaded script.
func (s *Sed) Load(script string) error {
	candidate := append(s.fragments[:len(s.fragments):len(s.fragments)], script)
	src := strings.Join(candidate, "\n")
	prog, err := compile(src, s.config.Dialect)
	if err != nil && !incomplete(err) {
		return s.fail(compileError(err))
	}
	s.fragments = candidate
	s.prog = prog
	s.pending = nil
	if err != nil {
		s.pending = compileError(err)
	}
	if s.config.Debug > 0 {
		s.config.Logger.Info("loaded script fragment",
			zap.Int("fragments", len(s.fragments)),
			zap.Bool("complete", s.pending == nil))
	}
	return nil
}

// LoadLines loads a script given as separate lines.
func (s *Sed) LoadLines(lines []string) error {
	return s.Load(strings.Join(lines, "\n"))
}

// LoadFile loads a script file read through Config.Fs. The path "-" reads
// the script from Config.Stdin.
func (s *Sed) LoadFile(path string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(s.config.Stdin)
	} else {
		data, err = afero.ReadFile(s.config.Fs, path)
	}
	if err != nil {
		return s.fail(&RuntimeError{Message: fmt.Sprintf("couldn't open file %s", path), Code: 2, Err: err})
	}
	cs, err := s.config.charset()
	if err != nil {
		return s.fail(err)
	}
	script, err := cs.DecodeString(string(data))
	if err != nil {
		return s.fail(&RuntimeError{Message: fmt.Sprintf("couldn't decode %s", path), Code: 2, Err: err})
	}
	return s.Load(strings.TrimSuffix(script, "\n"))
}

// Apply runs the loaded script over inputs; no inputs means standard
// input. Output goes to out. If out is nil, the output is returned as
// lines, each with its newline if it had one.
//
// Under in-place editing each file input is rewritten and out only
// receives writes to /dev/stdout.
func (s *Sed) Apply(inputs []Input, out io.Writer) ([]string, error) {
	s.exitCode, s.lastErr = 0, nil
	if s.pending != nil {
		return nil, s.fail(s.pending)
	}
	prog := s.prog
	if prog == nil {
		var err error
		if prog, err = compile("", s.config.Dialect); err != nil {
			return nil, s.fail(compileError(err))
		}
	}

	var buf *bytes.Buffer
	if out == nil {
		buf = &bytes.Buffer{}
		out = buf
	}
	err := prog.Exec(inputs, out, &s.config)
	s.exitCode = ExitCode(err)
	if _, ok := IsExitError(err); !ok {
		s.lastErr = err
	}
	var lines []string
	if buf != nil {
		lines = splitLines(buf.String())
	}
	if s.lastErr != nil {
		return lines, s.lastErr
	}
	return lines, nil
}

// ExitCode returns the status of the last Load or Apply: 0 on success, 1
// for script and runtime errors, 2 for I/O errors, or the code of q or Q.
func (s *Sed) ExitCode() int {
	return s.exitCode
}

// LastError returns the error of the last failed Load or Apply. A q or Q
// with a code is not an error.
func (s *Sed) LastError() error {
	return s.lastErr
}

// Program returns the compiled script, or nil if nothing complete has been
// loaded.
func (s *Sed) Program() *Program {
	if s.pending != nil {
		return nil
	}
	return s.prog
}

func (s *Sed) fail(err error) error {
	s.exitCode = ExitCode(err)
	s.lastErr = err
	if s.config.Debug > 0 {
		s.config.Logger.Info("sed failed", zap.Error(err), zap.Int("exitCode", s.exitCode))
	}
	return err
}
