package used

import (
	"io"
	"strings"

	"github.com/kolkov/used/internal/vm"
)

// Input is one input source of a run: a file, standard input or in-memory
// text.
type Input struct {
	src vm.Source
}

// File returns the input for a file path, read through Config.Fs.
// The path "-" is standard input.
func File(path string) Input {
	return Input{src: vm.FileSource(path)}
}

// Files returns the inputs for several paths.
func Files(paths ...string) []Input {
	inputs := make([]Input, len(paths))
	for i, p := range paths {
		inputs[i] = File(p)
	}
	return inputs
}

// Stdin returns the input for Config.Stdin.
func Stdin() Input {
	return File(vm.StdinName)
}

// Lines returns an in-memory input. A line without a trailing newline gets
// one, except that the last line keeps its form, so Lines("a", "b") reads
// as "a\nb" and Lines("a\n", "b\n") as "a\nb\n".
func Lines(lines ...string) Input {
	var b strings.Builder
	for i, l := range lines {
		b.WriteString(l)
		if i < len(lines)-1 && !strings.HasSuffix(l, "\n") {
			b.WriteByte('\n')
		}
	}
	return Reader(strings.NewReader(b.String()))
}

// Reader returns an input reading from r. F reports it as "-".
func Reader(r io.Reader) Input {
	return Input{src: vm.ReaderSource(r)}
}

// String returns the name of the input.
func (in Input) String() string {
	return in.src.Name
}

func sources(inputs []Input) []vm.Source {
	srcs := make([]vm.Source, len(inputs))
	for i, in := range inputs {
		srcs[i] = in.src
	}
	return srcs
}
