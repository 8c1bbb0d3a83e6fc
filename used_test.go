package used_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kolkov/used"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		input   string
		config  *used.Config
		want    string
		wantErr bool
	}{
		{
			name:   "substitute first",
			script: `s/x/y/`,
			input:  "axb\n",
			want:   "ayb\n",
		},
		{
			name:   "substitute global",
			script: `s/x/y/g`,
			input:  "axaxa\n",
			want:   "ayaya\n",
		},
		{
			name:   "delete comments",
			script: `/^#/d`,
			input:  "# header\nkeep\n#x\n",
			want:   "keep\n",
		},
		{
			name:   "print matching only",
			script: `/b/p`,
			input:  "a\nb\nc\n",
			config: &used.Config{NoAutoprint: true},
			want:   "b\n",
		},
		{
			name:   "extended dialect",
			script: `s/(a|b)+/X/`,
			input:  "abba!\n",
			config: &used.Config{Dialect: used.Extended},
			want:   "X!\n",
		},
		{
			name:   "basic dialect treats parens literally",
			script: `s/(a)/X/`,
			input:  "(a)a\n",
			want:   "Xa\n",
		},
		{
			name:   "native dialect",
			script: `s/\d+/N/g`,
			input:  "a1b22\n",
			config: &used.Config{Dialect: used.Native},
			want:   "aNbN\n",
		},
		{
			name:   "hold restores pattern space",
			script: "h\ns/./Z/\ng",
			input:  "abc\n",
			want:   "abc\n",
		},
		{
			name:   "test loop converges",
			script: ":a\ns/a/b/\nta",
			input:  "aaa\n",
			want:   "bbb\n",
		},
		{
			name:   "join all lines",
			script: ":a;N;$!ba;s/\\n/,/g",
			input:  "a\nb\nc\n",
			want:   "a,b,c\n",
		},
		{
			name:   "number lines",
			script: "=",
			input:  "x\ny\n",
			want:   "1\nx\n2\ny\n",
		},
		{
			name:   "list with configured width",
			script: "l;d",
			input:  "abcdef\n",
			config: &used.Config{LineWrap: 4},
			want:   "abc\\\ndef$\n",
		},
		{
			name:   "latin1 encoding",
			script: "y/é/e/",
			input:  "caf\xe9\n",
			config: &used.Config{Encoding: "latin1"},
			want:   "cafe\n",
		},
		{
			name:    "unknown command",
			script:  `k`,
			input:   "a\n",
			wantErr: true,
		},
		{
			name:    "unknown encoding",
			script:  `p`,
			input:   "a\n",
			config:  &used.Config{Encoding: "no-such-charset"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := used.Run(tt.script, strings.NewReader(tt.input), tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Run() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompile(t *testing.T) {
	// A compiled program is reusable, including its range state.
	prog, err := used.Compile(`/start/,/end/d`, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	inputs := []string{"a\nstart\nb\n", "end\nc\n"}
	wants := []string{"a\n", "end\nc\n"}

	for i, input := range inputs {
		got, err := prog.Run(strings.NewReader(input), nil)
		if err != nil {
			t.Errorf("Run(%d) error = %v", i, err)
			continue
		}
		if got != wants[i] {
			t.Errorf("Run(%d) = %q, want %q", i, got, wants[i])
		}
	}
}

func TestMustCompile(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustCompile() should panic on invalid script")
		}
	}()

	_ = used.MustCompile(`s/a/b`, nil) // Unterminated s command
}

func TestMustCompileValid(t *testing.T) {
	prog := used.MustCompile(`s/a/b/`, nil)
	if prog == nil {
		t.Error("MustCompile() returned nil for valid script")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		check   func(error) bool
		message string
	}{
		{
			name:    "y length mismatch",
			script:  `y/ab/c/`,
			check:   isCompileError,
			message: "strings for `y' command are different lengths",
		},
		{
			name:    "unknown command",
			script:  "p\nk",
			check:   isCompileError,
			message: "compile error at 2:1: unknown command: `k'",
		},
		{
			name:    "unmatched brace",
			script:  `/a/{p`,
			check:   isCompileError,
			message: "unmatched `{'",
		},
		{
			name:    "non-positive multiple",
			script:  `1,~0p`,
			check:   isCompileError,
			message: "invalid ~N end address",
		},
		{
			name:    "undefined label",
			script:  `b nowhere`,
			check:   isLabelError,
			message: "can't find label for jump to `nowhere'",
		},
		{
			name:    "unmatched group",
			script:  `s/\(a/b/`,
			check:   isPatternError,
			message: "pattern error",
		},
		{
			name:    "reference beyond groups",
			script:  `s/\(a\)/\2/`,
			check:   isPatternError,
			message: "invalid reference \\2 on `s' command's RHS",
		},
		{
			name:    "back-reference in pattern",
			script:  `/\(a\)\1/p`,
			check:   isPatternError,
			message: "pattern error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := used.Compile(tt.script, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.message)
			}
			if got := used.ExitCode(err); got != 1 {
				t.Errorf("ExitCode() = %d, want 1", got)
			}
			if p, ok := err.(interface{ Phase() used.Phase }); !ok || p.Phase() != used.PhaseCompile {
				t.Errorf("error %v does not report the compile phase", err)
			}
		})
	}
}

func isCompileError(err error) bool {
	var e *used.CompileError
	return errors.As(err, &e)
}

func isLabelError(err error) bool {
	var e *used.LabelError
	return errors.As(err, &e)
}

func isPatternError(err error) bool {
	var e *used.PatternError
	return errors.As(err, &e)
}

func TestLabelErrorNamesLabel(t *testing.T) {
	_, err := used.Compile("b one\n:two", nil)
	var le *used.LabelError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LabelError, got %T", err)
	}
	if le.Label != "one" {
		t.Errorf("Label = %q, want %q", le.Label, "one")
	}
	if le.Line != 1 {
		t.Errorf("Line = %d, want 1", le.Line)
	}
}

func TestExitError(t *testing.T) {
	out, err := used.Run(`2q42`, strings.NewReader("a\nb\nc\n"), nil)
	if err == nil {
		t.Fatal("expected error for q42")
	}
	if out != "a\nb\n" {
		t.Errorf("output = %q, want %q", out, "a\nb\n")
	}

	code, ok := used.IsExitError(err)
	if !ok {
		t.Errorf("expected ExitError, got %T", err)
	}
	if code != 42 {
		t.Errorf("exit code = %d, want 42", code)
	}
	if used.ExitCode(err) != 42 {
		t.Errorf("ExitCode() = %d, want 42", used.ExitCode(err))
	}
}

func TestExitZero(t *testing.T) {
	// q without a code is not an error
	_, err := used.Run(`q`, strings.NewReader("a\n"), nil)
	if err != nil {
		t.Errorf("q should not return error, got %v", err)
	}
	if used.ExitCode(nil) != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", used.ExitCode(nil))
	}
}

func TestRuntimeError(t *testing.T) {
	_, err := used.Run(`//d`, strings.NewReader("a\n"), nil)
	var re *used.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.Phase() != used.PhaseRun {
		t.Errorf("Phase() = %v, want run", re.Phase())
	}
	if used.ExitCode(err) != 1 {
		t.Errorf("ExitCode() = %d, want 1", used.ExitCode(err))
	}
}

func TestExec(t *testing.T) {
	var out strings.Builder
	err := used.Exec(`s/^/> /`, strings.NewReader("a\nb\n"), &out, nil)
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if out.String() != "> a\n> b\n" {
		t.Errorf("Exec() wrote %q", out.String())
	}
}

func TestProgramDisassemble(t *testing.T) {
	prog, err := used.Compile("/x/{\ns/a/b/g\nb end\n}\n:end", nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := "0000: /x/ {\n" +
		"0001:   s/a/b/g\n" +
		"0002:   b end -> 0004\n" +
		"0003: }\n" +
		"0004: :end\n"
	if got := prog.Disassemble(); got != want {
		t.Errorf("Disassemble() = %q, want %q", got, want)
	}
}

func TestProgramSource(t *testing.T) {
	source := `s/a/b/`
	prog, err := used.Compile(source, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if prog.Source() != source {
		t.Errorf("Source() = %q, want %q", prog.Source(), source)
	}
}

// FuzzAutoprintIdentity checks that a script which neither filters nor
// changes lines reproduces its input byte for byte.
func FuzzAutoprintIdentity(f *testing.F) {
	f.Add("", "a\nb\n")
	f.Add(":a", "a\nb")
	f.Add("b", "\n\n")
	f.Add("# comment", "no newline")
	f.Add("t", "x\r\ny\n")
	scripts := []string{"", ":a", "b", "# comment", "t", "s/^//;t"}

	f.Fuzz(func(t *testing.T, script, input string) {
		ok := false
		for _, s := range scripts {
			ok = ok || s == script
		}
		if !ok {
			t.Skip()
		}
		got, err := used.Run(script, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("Run(%q) error = %v", script, err)
		}
		if got != input {
			t.Errorf("Run(%q, %q) = %q", script, input, got)
		}
	})
}

// Benchmark tests
func BenchmarkRun(b *testing.B) {
	input := strings.NewReader("hello world\n")
	for i := 0; i < b.N; i++ {
		input.Reset("hello world\n")
		_, _ = used.Run(`s/world/gopher/`, input, nil)
	}
}

func BenchmarkCompiledRun(b *testing.B) {
	prog, _ := used.Compile(`s/[0-9]\+/N/g`, nil)
	input := strings.NewReader("1\n2\n3\n")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		input.Reset("1\n2\n3\n")
		_, _ = prog.Run(input, nil)
	}
}

// Example functions for documentation
func ExampleRun() {
	output, _ := used.Run(`s/world/gopher/`, strings.NewReader("hello world\n"), nil)
	fmt.Print(output)
	// Output: hello gopher
}

func ExampleCompile() {
	prog, _ := used.Compile(`1!G;h;$!d`, nil)
	output, _ := prog.Run(strings.NewReader("1\n2\n3\n"), nil)
	fmt.Print(output)
	// Output:
	// 3
	// 2
	// 1
}
