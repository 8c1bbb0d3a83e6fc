package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Special file names recognised by r, R, w, W and s///w.
const (
	StdinName  = "/dev/stdin"
	StdoutName = "/dev/stdout"
	StderrName = "/dev/stderr"
)

// Output is a line sink that remembers whether the last line it wrote
// lacked a newline, so that one can be inserted before any later output.
type Output struct {
	w              *bufio.Writer
	missingNewline bool
}

// NewOutput wraps w, encoding text with cs (nil means UTF-8).
func NewOutput(w io.Writer, cs *Charset) *Output {
	return &Output{w: bufio.NewWriter(cs.Writer(w))}
}

func (o *Output) restoreNewline() error {
	if !o.missingNewline {
		return nil
	}
	o.missingNewline = false
	return o.w.WriteByte('\n')
}

// WriteLine writes s followed by a newline when newline is set.
func (o *Output) WriteLine(s string, newline bool) error {
	if err := o.restoreNewline(); err != nil {
		return err
	}
	if _, err := o.w.WriteString(s); err != nil {
		return err
	}
	if newline {
		return o.w.WriteByte('\n')
	}
	o.missingNewline = true
	return nil
}

// WriteRaw writes text that carries its own line terminators.
func (o *Output) WriteRaw(s string) error {
	if s == "" {
		return nil
	}
	if err := o.restoreNewline(); err != nil {
		return err
	}
	if _, err := o.w.WriteString(s); err != nil {
		return err
	}
	o.missingNewline = s[len(s)-1] != '\n'
	return nil
}

// Flush writes buffered data to the underlying writer.
func (o *Output) Flush() error {
	return o.w.Flush()
}

// ScanLine reads one line from br. It reports whether the line ended with
// a newline; ok is false at end of input.
func ScanLine(br *bufio.Reader) (line string, newline, ok bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, false, err
	}
	if s == "" {
		return "", false, false, nil
	}
	if s[len(s)-1] == '\n' {
		return s[:len(s)-1], true, true, nil
	}
	return s, false, true, nil
}

type outputFile struct {
	file afero.File
	out  *Output
}

type inputFile struct {
	file afero.File
	r    *bufio.Reader
	eof  bool
}

// IOManager owns the side files of one run: w targets, R sources and the
// files read by r. Handles are keyed by the name written in the script.
// It is not safe for concurrent use.
type IOManager struct {
	fs       afero.Fs
	charset  *Charset
	stdin    *bufio.Reader
	stdout   *Output
	stderr   *Output
	outFiles map[string]*outputFile
	inFiles  map[string]*inputFile
}

// NewIOManager creates a manager over fs. stdout is the run's main output;
// it receives writes to /dev/stdout.
func NewIOManager(fs afero.Fs, cs *Charset, stdin io.Reader, stdout *Output, stderr io.Writer) *IOManager {
	m := &IOManager{
		fs:       fs,
		charset:  cs,
		stdout:   stdout,
		outFiles: make(map[string]*outputFile),
		inFiles:  make(map[string]*inputFile),
	}
	if stdin != nil {
		m.stdin = bufio.NewReader(cs.Reader(stdin))
	}
	if stderr != nil {
		m.stderr = NewOutput(stderr, cs)
	}
	return m
}

// OutputFile returns the sink for name, creating or truncating the file on
// first use.
func (m *IOManager) OutputFile(name string) (*Output, error) {
	switch name {
	case StdoutName:
		return m.stdout, nil
	case StderrName:
		if m.stderr != nil {
			return m.stderr, nil
		}
	}
	if of, ok := m.outFiles[name]; ok {
		return of.out, nil
	}
	f, err := m.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("couldn't open file %s: %w", name, err)
	}
	of := &outputFile{file: f, out: NewOutput(f, m.charset)}
	m.outFiles[name] = of
	return of.out, nil
}

// ReadFile returns the whole content of name for the r command.
// A file that cannot be read yields ok == false and is otherwise ignored.
func (m *IOManager) ReadFile(name string) (content string, ok bool) {
	if name == StdinName {
		if m.stdin == nil {
			return "", false
		}
		b, err := io.ReadAll(m.stdin)
		return string(b), err == nil && len(b) > 0
	}
	f, err := m.fs.Open(name)
	if err != nil {
		return "", false
	}
	defer f.Close()
	b, err := io.ReadAll(m.charset.Reader(f))
	if err != nil {
		return "", false
	}
	return string(b), len(b) > 0
}

// ReadLine returns the next line of name for the R command. Each name keeps
// its own read position for the whole run.
func (m *IOManager) ReadLine(name string) (line string, newline, ok bool) {
	var br *bufio.Reader
	if name == StdinName {
		br = m.stdin
	} else {
		in, found := m.inFiles[name]
		if !found {
			f, err := m.fs.Open(name)
			if err != nil {
				in = &inputFile{eof: true}
			} else {
				in = &inputFile{file: f, r: bufio.NewReader(m.charset.Reader(f))}
			}
			m.inFiles[name] = in
		}
		if in.eof {
			return "", false, false
		}
		br = in.r
		defer func() {
			if !ok {
				in.eof = true
			}
		}()
	}
	if br == nil {
		return "", false, false
	}
	line, newline, ok, err := ScanLine(br)
	if err != nil {
		return "", false, false
	}
	return line, newline, ok
}

// Flush flushes every open output file and the standard streams.
func (m *IOManager) Flush() error {
	var result *multierror.Error
	for name, of := range m.outFiles {
		if err := of.out.Flush(); err != nil {
			result = multierror.Append(result, fmt.Errorf("couldn't flush %s: %w", name, err))
		}
	}
	if m.stderr != nil {
		if err := m.stderr.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// CloseAll flushes and closes every file. All failures are reported.
func (m *IOManager) CloseAll() error {
	var result *multierror.Error
	for name, of := range m.outFiles {
		if err := of.out.Flush(); err != nil {
			result = multierror.Append(result, fmt.Errorf("couldn't flush %s: %w", name, err))
		}
		if err := of.file.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("couldn't close %s: %w", name, err))
		}
	}
	m.outFiles = make(map[string]*outputFile)
	for _, in := range m.inFiles {
		if in.file != nil {
			in.file.Close()
		}
	}
	m.inFiles = make(map[string]*inputFile)
	if m.stderr != nil {
		if err := m.stderr.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
