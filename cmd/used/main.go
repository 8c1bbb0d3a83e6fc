// used - a sed stream editor
//
// Command line front end with GNU sed compatible options.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kolkov/used"
)

// version is set by GoReleaser at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// env is the process environment a command runs in.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs
}

func main() {
	os.Exit(run(os.Args[1:], env{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		fs:     afero.NewOsFs(),
	}))
}

// exitUsage is the status for command line errors, shared with I/O errors.
const exitUsage = 2

// run executes the command line args and returns the exit status.
func run(args []string, e env) int {
	code := 0
	cmd := newCommand(e, &code)
	cmd.SetArgs(expandInPlace(args))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(e.stderr, "used: %v\n", err)
		fmt.Fprintln(e.stderr, "Try 'used --help' for more information.")
		return exitUsage
	}
	return code
}

// scriptPart is one -e expression or -f file, kept in command line order.
type scriptPart struct {
	text   string
	isFile bool
}

// scriptValue is a repeatable flag appending to a shared script list.
type scriptValue struct {
	parts  *[]scriptPart
	isFile bool
}

func (v scriptValue) Set(s string) error {
	*v.parts = append(*v.parts, scriptPart{text: s, isFile: v.isFile})
	return nil
}

func (v scriptValue) String() string { return "" }

func (v scriptValue) Type() string {
	if v.isFile {
		return "file"
	}
	return "script"
}

type options struct {
	scripts     []scriptPart
	quiet       bool
	extended    bool
	separate    bool
	suffix      string
	lineWrap    int
	nativeRegex bool
	encoding    string
	debug       int
}

func newCommand(e env, code *int) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "used [OPTION]... {script-only-if-no-other-script} [input-file]...",
		Short: "stream editor for filtering and transforming text",
		Long: `used is a sed stream editor. It applies a script of editing commands
to each line of its input files, or standard input if there are none.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("line-length") && opts.lineWrap < 0 {
				return fmt.Errorf("invalid line length: %d", opts.lineWrap)
			}
			if len(opts.scripts) == 0 {
				if len(args) == 0 {
					return fmt.Errorf("no script specified")
				}
				opts.scripts = []scriptPart{{text: args[0]}}
				args = args[1:]
			}
			inPlace := cmd.Flags().Changed("in-place")
			if inPlace && len(args) == 0 {
				return fmt.Errorf("no input files")
			}
			*code = execute(e, &opts, inPlace, cmd.Flags().Changed("line-length"), args)
			return nil
		},
	}
	cmd.SetIn(e.stdin)
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	cmd.SetVersionTemplate(fmt.Sprintf("used version {{.Version}}\n  commit: %s\n  built:  %s\n  regex:  coregex\n", commit, date))

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&opts.quiet, "quiet", "n", false, "suppress automatic printing of pattern space")
	flags.BoolVar(&opts.quiet, "silent", false, "same as --quiet")
	flags.VarP(scriptValue{parts: &opts.scripts}, "expression", "e", "add the script to the commands to be executed")
	flags.VarP(scriptValue{parts: &opts.scripts, isFile: true}, "file", "f", "add the contents of script-file to the commands to be executed")
	flags.StringVarP(&opts.suffix, "in-place", "i", "", "edit files in place (makes backup if `SUFFIX` supplied)")
	flags.IntVarP(&opts.lineWrap, "line-length", "l", 0, "specify the desired line-wrap length for the `l' command")
	flags.BoolVarP(&opts.extended, "regexp-extended", "E", false, "use extended regular expressions in the script")
	flags.BoolVarP(&opts.extended, "regexp-extended-r", "r", false, "same as -E")
	_ = flags.MarkHidden("regexp-extended-r")
	flags.BoolVarP(&opts.separate, "separate", "s", false, "consider files as separate rather than as a single continuous long stream")
	flags.BoolVar(&opts.nativeRegex, "native-regex", false, "pass regular expressions to the engine untranslated")
	flags.StringVar(&opts.encoding, "encoding", used.DefaultEncoding, "character encoding of scripts and input")
	flags.IntVar(&opts.debug, "debug", 0, "log to standard error: 1 program, 2 cycles, 3 commands")

	return cmd
}

// execute loads the scripts and applies them to the input files.
func execute(e env, opts *options, inPlace, wrapSet bool, files []string) int {
	logger := newLogger(e.stderr, opts.debug)
	defer logger.Sync() //nolint:errcheck

	config := &used.Config{
		Debug:        opts.debug,
		Encoding:     opts.encoding,
		InPlace:      inPlace,
		BackupSuffix: opts.suffix,
		NoAutoprint:  opts.quiet,
		Separate:     opts.separate,
		Fs:           e.fs,
		Stdin:        e.stdin,
		Stderr:       e.stderr,
		Logger:       logger,
	}
	switch {
	case opts.nativeRegex:
		config.Dialect = used.Native
	case opts.extended:
		config.Dialect = used.Extended
	}
	if wrapSet {
		config.LineWrap = opts.lineWrap
		if config.LineWrap == 0 {
			config.LineWrap = used.NoLineWrap
		}
	}

	s := used.New(config)
	for _, part := range opts.scripts {
		var err error
		if part.isFile {
			err = s.LoadFile(part.text)
		} else {
			err = s.Load(part.text)
		}
		if err != nil {
			fmt.Fprintf(e.stderr, "used: %v\n", err)
			return s.ExitCode()
		}
	}

	var inputs []used.Input
	if len(files) > 0 {
		inputs = used.Files(files...)
	}
	stdout := bufio.NewWriter(e.stdout)
	_, err := s.Apply(inputs, stdout)
	if ferr := stdout.Flush(); ferr != nil && err == nil {
		fmt.Fprintf(e.stderr, "used: couldn't flush stdout: %v\n", ferr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(e.stderr, "used: %v\n", err)
	}
	return s.ExitCode()
}

// newLogger returns a development console logger on w, or a no-op logger
// when debugging is off.
func newLogger(w io.Writer, debug int) *zap.Logger {
	if debug <= 0 {
		return zap.NewNop()
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core, zap.Development())
}

// boolShorts are the shorthand flags that take no value and may precede
// -i in a cluster.
const boolShorts = "nsEr"

// expandInPlace rewrites every form of -i, alone or ending a cluster such
// as -ni.bak, to --in-place=SUFFIX. The suffix is optional and must be
// attached, which pflag only supports for long flags given with '='.
func expandInPlace(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if arg == "--in-place" {
			out = append(out, "--in-place=")
			continue
		}
		if len(arg) < 2 || arg[0] != '-' || arg[1] == '-' {
			out = append(out, arg)
			continue
		}
		j := 1
		for j < len(arg) && strings.IndexByte(boolShorts, arg[j]) >= 0 {
			j++
		}
		if j == len(arg) || arg[j] != 'i' {
			out = append(out, arg)
			continue
		}
		if j > 1 {
			out = append(out, arg[:j])
		}
		out = append(out, "--in-place="+strings.TrimPrefix(arg[j+1:], "="))
	}
	return out
}
