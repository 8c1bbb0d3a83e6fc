package used

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kolkov/used/internal/runtime"
	"github.com/kolkov/used/internal/vm"
)

// Dialect selects the regular expression syntax of a script.
type Dialect int

const (
	// Basic is POSIX BRE with GNU extensions (the sed default).
	Basic Dialect = iota
	// Extended is POSIX ERE (-E, -r or a leading #r).
	Extended
	// Native passes patterns to the regex engine untranslated.
	Native
)

func (d Dialect) String() string {
	return d.internal().String()
}

func (d Dialect) internal() runtime.Dialect {
	switch d {
	case Extended:
		return runtime.Extended
	case Native:
		return runtime.Native
	}
	return runtime.Basic
}

// Config holds configuration options for sed execution.
type Config struct {
	// Debug enables logging through Logger: 1 logs the compiled program and
	// run configuration, 2 adds one entry per cycle, 3 one per command.
	Debug int

	// Encoding is the character encoding of scripts, input and output
	// (default: "utf-8"). Any IANA name or alias is accepted.
	Encoding string

	// InPlace rewrites each input file with its output instead of writing
	// to the output sink. It implies Separate.
	InPlace bool

	// BackupSuffix names backups made by in-place editing. Empty means no
	// backup. A '*' is replaced by the file's base name, so "bak_*" backs
	// up notes.txt as bak_notes.txt.
	BackupSuffix string

	// NoAutoprint suppresses printing pattern space at the end of each
	// cycle (-n). A script starting with #n has the same effect.
	NoAutoprint bool

	// Separate treats input files as separate streams for line numbers,
	// ranges and $.
	Separate bool

	// Dialect is the regex syntax. A script starting with #r upgrades
	// Basic to Extended.
	Dialect Dialect

	// LineWrap is the line width of the l command (default: 70).
	// NoLineWrap disables wrapping.
	LineWrap int

	// Fs is the filesystem for script files, input files, r/R/w/W files
	// and in-place editing (default: the OS filesystem).
	Fs afero.Fs

	// Stdin is read for the "-" input and /dev/stdin (default: os.Stdin).
	Stdin io.Reader

	// Stderr receives writes to /dev/stderr (default: os.Stderr).
	Stderr io.Writer

	// Logger receives debug logging (default: a no-op logger).
	Logger *zap.Logger
}

// NoLineWrap is the LineWrap value that turns off folding in the l
// command.
const NoLineWrap = -1

// DefaultEncoding is the encoding used when Config.Encoding is empty.
const DefaultEncoding = "utf-8"

// applyDefaults fills in default values for unset Config fields.
func (c *Config) applyDefaults() {
	if c.Encoding == "" {
		c.Encoding = DefaultEncoding
	}
	if c.LineWrap == 0 {
		c.LineWrap = vm.DefaultLineWrap
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// vmConfig builds the engine configuration.
func (c *Config) vmConfig(cs *runtime.Charset) vm.Config {
	return vm.Config{
		NoAutoprint:  c.NoAutoprint,
		Separate:     c.Separate,
		InPlace:      c.InPlace,
		BackupSuffix: c.BackupSuffix,
		LineWrap:     c.LineWrap,
		Debug:        c.Debug,
		Fs:           c.Fs,
		Charset:      cs,
		Stdin:        c.Stdin,
		Stderr:       c.Stderr,
		Logger:       c.Logger,
	}
}

// charset resolves the configured encoding.
func (c *Config) charset() (*runtime.Charset, error) {
	cs, err := runtime.LookupCharset(c.Encoding)
	if err != nil {
		return nil, &RuntimeError{Message: "invalid configuration", Code: 2, Err: err}
	}
	return cs, nil
}
