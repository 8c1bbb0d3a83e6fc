package vm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/kolkov/used/internal/runtime"
)

// StdinName is the name of standard input in file lists and for F.
const StdinName = "-"

// Source is one input stream.
type Source struct {
	// Name is what F prints: the path for files, "-" otherwise.
	Name string
	// Path is set for files; they are opened through the VM's filesystem
	// and are the only sources in-place editing rewrites.
	Path string
	// Reader supplies the data of a non-file source.
	Reader io.Reader
}

// FileSource returns the source for a file path; "-" is standard input.
func FileSource(path string) Source {
	if path == StdinName {
		return Source{Name: StdinName}
	}
	return Source{Name: path, Path: path}
}

// ReaderSource returns a source reading from r.
func ReaderSource(r io.Reader) Source {
	return Source{Name: StdinName, Reader: r}
}

type openSource struct {
	Source
	file afero.File
	br   *bufio.Reader
	done bool
}

// cursor reads lines from the sources in order, keeping one line of
// lookahead so that the last line can be recognised.
type cursor struct {
	vm       *VM
	sources  []Source
	next     int // index of the next source to open
	cur      *openSource
	separate bool

	ahead    string
	aheadNL  bool
	hasAhead bool
	aheadSrc *openSource

	// line is the number of the line most recently read.
	line int
	// src is the source of the line most recently read.
	src *openSource
}

func newCursor(vm *VM, sources []Source, separate bool) *cursor {
	return &cursor{vm: vm, sources: sources, separate: separate}
}

func (c *cursor) open(s Source) (*openSource, error) {
	o := &openSource{Source: s}
	var r io.Reader
	switch {
	case s.Path != "":
		f, err := c.vm.fs.Open(s.Path)
		if err != nil {
			return nil, &RuntimeError{Message: fmt.Sprintf("can't read %s", s.Path), Code: 2, Err: err}
		}
		if info, err := f.Stat(); err == nil && info.IsDir() {
			f.Close()
			return nil, &RuntimeError{Message: fmt.Sprintf("couldn't edit %s: not a regular file", s.Path), Code: 2}
		}
		o.file = f
		r = f
	case s.Reader != nil:
		r = s.Reader
	default:
		r = c.vm.cfg.Stdin
	}
	if r == nil {
		o.done = true
		return o, nil
	}
	o.br = bufio.NewReader(c.vm.charset.Reader(r))
	return o, nil
}

// nextSource opens the next source for separate processing. It reports
// false when all sources are used up.
func (c *cursor) nextSource() (bool, error) {
	c.closeCurrent()
	if c.next >= len(c.sources) {
		return false, nil
	}
	o, err := c.open(c.sources[c.next])
	c.next++
	if err != nil {
		return false, err
	}
	c.cur = o
	c.src = o
	c.line = 0
	c.hasAhead = false
	return true, nil
}

func (c *cursor) closeCurrent() {
	if c.cur != nil && c.cur.file != nil {
		c.cur.file.Close()
		c.cur.file = nil
	}
}

// fill makes sure the lookahead holds a line if one is available.
func (c *cursor) fill() error {
	for !c.hasAhead {
		if c.cur == nil || c.cur.done {
			if c.separate || c.next >= len(c.sources) {
				return nil
			}
			c.closeCurrent()
			o, err := c.open(c.sources[c.next])
			c.next++
			if err != nil {
				return err
			}
			c.cur = o
			continue
		}
		line, nl, ok, err := runtime.ScanLine(c.cur.br)
		if err != nil {
			return &RuntimeError{Message: fmt.Sprintf("read error on %s", c.cur.Name), Code: 2, Err: err}
		}
		if !ok {
			c.cur.done = true
			continue
		}
		c.ahead, c.aheadNL, c.hasAhead, c.aheadSrc = line, nl, true, c.cur
	}
	return nil
}

// read returns the next line. ok is false at end of input.
func (c *cursor) read() (line string, newline, ok bool, err error) {
	if err := c.fill(); err != nil {
		return "", false, false, err
	}
	if !c.hasAhead {
		return "", false, false, nil
	}
	c.hasAhead = false
	c.line++
	c.src = c.aheadSrc
	return c.ahead, c.aheadNL, true, nil
}

// isLast reports whether the line most recently read is the last one.
func (c *cursor) isLast() (bool, error) {
	if err := c.fill(); err != nil {
		return false, err
	}
	return !c.hasAhead, nil
}

// fileName returns the name F prints for the current line.
func (c *cursor) fileName() string {
	if c.src == nil {
		return StdinName
	}
	return c.src.Name
}

func (c *cursor) close() {
	c.closeCurrent()
}
