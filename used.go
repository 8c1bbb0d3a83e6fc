package used

import (
	"io"
	"strings"
)

// Version is the used version string.
const Version = "0.1.0"

// Run executes a sed script with the given input.
// This is a convenience function for one-off execution.
// For repeated execution of the same script, use Compile followed by
// Program.Run.
//
// Example:
//
//	output, err := used.Run(`s/world/gopher/`, strings.NewReader("hello world\n"), nil)
//	// output: "hello gopher\n"
func Run(script string, input io.Reader, config *Config) (string, error) {
	prog, err := Compile(script, config)
	if err != nil {
		return "", err
	}
	return prog.Run(input, config)
}

// Compile parses a sed script. The config supplies the regex dialect; it
// may be nil.
//
// Example:
//
//	prog, err := used.Compile(`/^#/d`, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	output1, _ := prog.Run(file1, nil)
//	output2, _ := prog.Run(file2, nil)
func Compile(script string, config *Config) (*Program, error) {
	dialect := Basic
	if config != nil {
		dialect = config.Dialect
	}
	prog, err := compile(script, dialect)
	if err != nil {
		return nil, compileError(err)
	}
	return prog, nil
}

// Exec runs a sed script from input to output.
//
// Example:
//
//	err := used.Exec(`s/^/> /`, os.Stdin, os.Stdout, nil)
func Exec(script string, input io.Reader, output io.Writer, config *Config) error {
	prog, err := Compile(script, config)
	if err != nil {
		return err
	}
	return prog.Exec([]Input{Reader(input)}, output, config)
}

// MustCompile is like Compile but panics if the script cannot be compiled.
// It simplifies initialization of global program variables.
//
// Example:
//
//	var stripComments = used.MustCompile(`/^[[:space:]]*#/d`, nil)
func MustCompile(script string, config *Config) *Program {
	prog, err := Compile(script, config)
	if err != nil {
		panic(err)
	}
	return prog
}

// splitLines splits s after each newline. A final line without a newline
// is kept as is.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
