package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/used/internal/parser"
	"github.com/kolkov/used/internal/runtime"
	"github.com/kolkov/used/internal/semantic"
)

// compile parses and resolves a script.
func compile(t *testing.T, script string) *VM {
	t.Helper()
	return compileWith(t, script, Config{})
}

func compileWith(t *testing.T, script string, cfg Config) *VM {
	t.Helper()
	prog, err := parser.Parse(script, parser.Options{Dialect: runtime.Basic})
	require.NoError(t, err, "parse error")
	require.NoError(t, semantic.Resolve(prog), "resolve error")
	if cfg.Fs == nil {
		cfg.Fs = afero.NewMemMapFs()
	}
	if cfg.LineWrap == 0 {
		cfg.LineWrap = DefaultLineWrap
	}
	return New(prog, cfg)
}

// runSed runs script over input and returns the output.
func runSed(t *testing.T, script, input string) (string, error) {
	t.Helper()
	return runSedWith(t, script, Config{}, input)
}

func runSedWith(t *testing.T, script string, cfg Config, inputs ...string) (string, error) {
	t.Helper()
	vm := compileWith(t, script, cfg)
	sources := make([]Source, len(inputs))
	for i, in := range inputs {
		sources[i] = ReaderSource(strings.NewReader(in))
	}
	var out bytes.Buffer
	err := vm.Run(sources, &out)
	return out.String(), err
}

type sedTest struct {
	name   string
	script string
	input  string
	want   string
}

func runTests(t *testing.T, cfg Config, tests []sedTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runSedWith(t, tt.script, cfg, tt.input)
			if err != nil {
				t.Fatalf("run error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVMAutoprint(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"empty script", "", "a\nb\n", "a\nb\n"},
		{"missing final newline", "", "a\nb", "a\nb"},
		{"comment only", "# nothing", "a\n", "a\n"},
		{"print twice", "p", "a\n", "a\na\n"},
		{"print without newline", "p", "a\nb", "a\na\nb\nb"},
		{"empty lines", "", "\n\n", "\n\n"},
		{"no input", "p", "", ""},
	})
}

func TestVMNoAutoprint(t *testing.T) {
	runTests(t, Config{NoAutoprint: true}, []sedTest{
		{"print line", "2p", "a\nb\nc\n", "b\n"},
		{"nothing", "", "a\nb\n", ""},
		{"last", "$p", "a\nb\nc\n", "c\n"},
	})

	got, err := runSed(t, "#n\n1p", "a\nb\n")
	require.NoError(t, err)
	assert.Equal(t, "a\n", got, "#n directive")
}

func TestVMSubstitute(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"first", "s/x/y/", "axb\n", "ayb\n"},
		{"global", "s/x/y/g", "axaxa\n", "ayaya\n"},
		{"first only", "s/a/b/", "aaa\n", "baa\n"},
		{"nth", "s/a/b/2", "aaa\n", "aba\n"},
		{"nth and global", "s/a/b/2g", "aaaa\n", "abbb\n"},
		{"nth missing", "s/a/b/3", "aa\n", "aa\n"},
		{"no match", "s/z/y/", "abc\n", "abc\n"},
		{"groups", `s/\(a\)\(b\)/\2\1/`, "ab\n", "ba\n"},
		{"ampersand", `s/b/[&]/`, "abc\n", "a[b]c\n"},
		{"escaped ampersand", `s/b/\&/`, "abc\n", "a&c\n"},
		{"extended via directive", "#r\ns/(a+)/<\\1>/", "caat\n", "c<aa>t\n"},
		{"ignore case", "s/A/x/Ig", "aAa\n", "xxx\n"},
		{"upper", `s/\w\+/\U&/`, "hello world\n", "HELLO world\n"},
		{"upper next", `s/h/\u&/`, "hello\n", "Hello\n"},
		{"print flag", "s/a/b/p", "a\nc\n", "b\nb\nc\n"},
		{"newline in replacement", `s/ /\n/`, "a b\n", "a\nb\n"},
		{"other delimiter", "s|/|_|g", "/a/b\n", "_a_b\n"},
		{"empty regex reuses address", "/b/s//X/", "abc\n", "aXc\n"},
		{"empty regex reuses s", "s/b/B/;s//X/", "abbc\n", "aBXc\n"},
		{"multiline flag", "N;s/^b/X/M", "a\nb\n", "a\nX\n"},
		{"anchor without multiline", "N;s/^b/X/", "a\nb\n", "a\nb\n"},
		{"dot matches embedded newline", "N;s/a.b/X/", "a\nb\n", "X\n"},
		{"empty match after match", "s/x*/-/g", "xab\n", "-a-b-\n"},
		{"empty match at end after match", "s/b*/-/g", "xab\n", "-x-a-\n"},
		{"nth counts kept matches", "s/b*/-/3", "xab\n", "xa-\n"},
		{"multiline global start", "N;s/^/>/Mg", "one\ntwo\n", ">one\n>two\n"},
		{"multiline global end", "N;s/$/</Mg", "one\ntwo\n", "one<\ntwo<\n"},
	})
}

func TestVMSubstituteWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	got, err := runSedWith(t, "s/a/X/w /out.txt", Config{Fs: fs}, "a\nb\nca\n")
	require.NoError(t, err)
	assert.Equal(t, "X\nb\ncX\n", got)

	data, err := afero.ReadFile(fs, "/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "X\ncX\n", string(data))
}

func TestVMTransliterate(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"simple", "y/abc/xyz/", "aabbcc\n", "xxyyzz\n"},
		{"newline", `N;y/\n/,/`, "a\nb\n", "a,b\n"},
		{"unicode", "y/äö/ao/", "bär öl\n", "bar ol\n"},
	})
}

func TestVMDelete(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"line", "2d", "a\nb\nc\n", "a\nc\n"},
		{"all", "d", "a\nb\n", ""},
		{"last", "$d", "a\nb\nc\n", "a\nb\n"},
		{"not last", "$!d", "a\nb\nc\n", "c\n"},
		{"regex", "/b/d", "a\nb\nc\n", "a\nc\n"},
		{"skips rest of script", "d;s/a/X/", "a\n", ""},
		{"head without newline", "D", "a\nb\n", ""},
		{"join pairs", "$!N;P;D", "a\nb\nc\n", "a\nb\nc\n"},
		{"blank lines", "/^$/d", "a\n\nb\n", "a\nb\n"},
		{"ignore case upper pattern", "/ONE/Id", "one\ntwo\n", "two\n"},
		{"ignore case single letter", "/o/Id", "one\ntwo\nxyz\n", "xyz\n"},
		{"ignore case range", "/T/I,/F/Id", "one\ntwo\nthree\nfour\nfive\n", "one\nfive\n"},
	})
}

func TestVMHoldSpace(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"restore", "h;s/./Z/g;g", "abc\n", "abc\n"},
		{"append empty hold", "G", "a\n", "a\n\n"},
		{"exchange", "x", "a\nb\n", "\na\n"},
		{"reverse lines", "1!G;h;$!d", "a\nb\nc\n", "c\nb\na\n"},
		{"append to hold", "H;$!d;x", "a\nb\n", "\na\nb\n"},
		{"zap", "z", "abc\n", "\n"},
		{"exchange keeps terminator", "x", "a\nb", "\na\n"},
		{"get keeps terminator", "1h;$g", "a\nb", "a\na\n"},
		{"hold keeps missing terminator", "$!d;h;s/.*/X/;x", "a\nb", "b"},
	})

	vm := compile(t, "h;s/./Z/")
	var out bytes.Buffer
	require.NoError(t, vm.Run([]Source{ReaderSource(strings.NewReader("abc\n"))}, &out))
	assert.Equal(t, "Zbc\n", out.String())
	assert.Equal(t, "abc", vm.Hold(), "hold space must not follow pattern space")
}

func TestVMBranches(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"test loop", ":a;s/a/b/;ta", "aaa\n", "bbb\n"},
		{"branch to end", "b;s/a/X/", "a\n", "a\n"},
		{"branch to label", "bskip;s/a/X/;:skip;s/a/Y/", "a\n", "Y\n"},
		{"test without substitution", "s/z/Z/;tend;s/a/X/;:end", "a\n", "X\n"},
		{"test resets flag", "s/a/A/;ta;:a;tb;s/$/!/;:b", "a\n", "A!\n"},
		{"test not", "s/x/X/;Tz;s/$/!/;:z", "x\ny\n", "X!\ny\n"},
		{"join continuation lines", ":a;/\\\\$/{N;s/\\\\\\n//;ba\n}", "a\\\nb\nc\n", "ab\nc\n"},
	})
}

func TestVMTestFlagCountsSubstitutions(t *testing.T) {
	// One line per successful substitution; the fourth t falls through.
	got, err := runSedWith(t, ":a;s/a/b/p;ta", Config{NoAutoprint: true}, "aaa\n")
	require.NoError(t, err)
	assert.Equal(t, "baa\nbba\nbbb\n", got)
}

func TestVMText(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"insert", "1i hello", "a\nb\n", "hello\na\nb\n"},
		{"append", "1a hello", "a\nb\n", "a\nhello\nb\n"},
		{"append classic", "1a\\\nhello", "a\n", "a\nhello\n"},
		{"append two lines", "a\\\none\\\ntwo", "x\n", "x\none\ntwo\n"},
		{"append after missing newline", "$a end", "a", "a\nend\n"},
		{"append order", "a A\na B", "x\n", "x\nA\nB\n"},
		{"append when deleted", "a A\nd", "x\n", "A\n"},
		{"change", "2c changed", "a\nb\nc\n", "a\nchanged\nc\n"},
		{"change range", "2,3c X", "a\nb\nc\nd\n", "a\nX\nd\n"},
		{"change negated range", "2,3!c X", "a\nb\nc\nd\n", "X\nb\nc\nX\n"},
		{"change single-line range", "2,1c X", "a\nb\nc\n", "a\nX\nc\n"},
		{"insert then delete", "i X\nd", "a\n", "X\n"},
	})
}

func TestVMNext(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"next", "n;d", "a\nb\nc\nd\ne\n", "a\nc\ne\n"},
		{"next at end", "$!n;s/^/>/", "a\n", ">a\n"},
		{"next append", `N;s/\n/-/`, "a\nb\nc\nd\ne\n", "a-b\nc-d\ne\n"},
		{"next append flushes queue", "a X\nN", "a\nb\n", "X\na\nb\n"},
		{"next prints before append queue", "a X\nn", "a\nb\n", "a\nX\nb\n"},
	})

	got, err := runSedWith(t, "n;d", Config{NoAutoprint: true}, "a\nb\nc\n")
	require.NoError(t, err)
	assert.Equal(t, "", got, "n does not print with -n")
}

func TestVMLineNumber(t *testing.T) {
	runTests(t, Config{}, []sedTest{
		{"each line", "=", "a\nb\n", "1\na\n2\nb\n"},
		{"last", "$=", "a\nb\nc\n", "a\nb\n3\nc\n"},
	})
}

func TestVMList(t *testing.T) {
	runTests(t, Config{NoAutoprint: true}, []sedTest{
		{"tab", "l", "a\tb\n", "a\\tb$\n"},
		{"embedded newline", "N;l", "a\nb\n", "a\\nb$\n"},
		{"wrap", "l 5", "abcdefgh\n", "abcd\\\nefgh$\n"},
		{"no wrap", "l 0", "abcdefgh\n", "abcdefgh$\n"},
		{"wrap at one", "l 1", "ab\n", "\\\na\\\nb$\n"},
	})

	got, err := runSedWith(t, "l", Config{NoAutoprint: true, LineWrap: 4}, "abcdef\n")
	require.NoError(t, err)
	assert.Equal(t, "abc\\\ndef$\n", got, "configured wrap")

	got, err = runSedWith(t, "l", Config{NoAutoprint: true, LineWrap: -1}, "abcdef\n")
	require.NoError(t, err)
	assert.Equal(t, "abcdef$\n", got, "wrapping disabled")
}

func TestVMQuit(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
		code   int
	}{
		{"quit", "2q", "a\nb\n", 0},
		{"quit with code", "2q5", "a\nb\n", 5},
		{"quit silent", "2Q", "a\n", 0},
		{"quit silent with code", "2Q3", "a\n", 3},
		{"quit flushes append queue", "1{a X\nq}", "a\nX\n", 0},
		{"quit silent drops append queue", "1{a X\nQ}", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runSed(t, tt.script, "a\nb\nc\n")
			assert.Equal(t, tt.want, got)
			if tt.code == 0 {
				require.NoError(t, err)
				return
			}
			var exit *ExitError
			require.True(t, errors.As(err, &exit), "want ExitError, got %v", err)
			assert.Equal(t, tt.code, exit.Code)
		})
	}
}

func TestVMFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.txt", []byte("R1\nR2\n"), 0o644))

	t.Run("read file", func(t *testing.T) {
		got, err := runSedWith(t, "r /in.txt", Config{Fs: fs}, "a\nb\n")
		require.NoError(t, err)
		assert.Equal(t, "a\nR1\nR2\nb\nR1\nR2\n", got)
	})

	t.Run("read missing file", func(t *testing.T) {
		got, err := runSedWith(t, "r /missing.txt", Config{Fs: fs}, "a\n")
		require.NoError(t, err)
		assert.Equal(t, "a\n", got)
	})

	t.Run("read lines", func(t *testing.T) {
		got, err := runSedWith(t, "R /in.txt", Config{Fs: fs}, "a\nb\nc\n")
		require.NoError(t, err)
		assert.Equal(t, "a\nR1\nb\nR2\nc\n", got)
	})

	t.Run("write shared by name", func(t *testing.T) {
		got, err := runSedWith(t, "/a/w /out.txt\n/b/W /out.txt", Config{Fs: fs}, "a\nb\nc\n")
		require.NoError(t, err)
		assert.Equal(t, "a\nb\nc\n", got)
		data, err := afero.ReadFile(fs, "/out.txt")
		require.NoError(t, err)
		assert.Equal(t, "a\nb\n", string(data))
	})

	t.Run("write file created without matches", func(t *testing.T) {
		_, err := runSedWith(t, "/zzz/w /empty.txt", Config{Fs: fs}, "a\n")
		require.NoError(t, err)
		exists, err := afero.Exists(fs, "/empty.txt")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("write to stdout", func(t *testing.T) {
		got, err := runSedWith(t, "w /dev/stdout", Config{Fs: fs}, "a\n")
		require.NoError(t, err)
		assert.Equal(t, "a\na\n", got)
	})

	t.Run("write to stderr", func(t *testing.T) {
		var stderr bytes.Buffer
		got, err := runSedWith(t, "w /dev/stderr", Config{Fs: fs, Stderr: &stderr}, "a\n")
		require.NoError(t, err)
		assert.Equal(t, "a\n", got)
		assert.Equal(t, "a\n", stderr.String())
	})

	t.Run("write file cannot be opened", func(t *testing.T) {
		ro := afero.NewReadOnlyFs(fs)
		_, err := runSedWith(t, "w /new.txt", Config{Fs: ro}, "a\n")
		var rerr *RuntimeError
		require.True(t, errors.As(err, &rerr), "want RuntimeError, got %v", err)
		assert.Equal(t, 2, rerr.Code)
	})
}

func TestVMSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/one.txt", []byte("a\nb\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/two.txt", []byte("c\n"), 0o644))
	files := []Source{FileSource("/one.txt"), FileSource("/two.txt")}

	run := func(t *testing.T, script string, cfg Config, sources []Source) string {
		t.Helper()
		cfg.Fs = fs
		vm := compileWith(t, script, cfg)
		var out bytes.Buffer
		require.NoError(t, vm.Run(sources, &out))
		return out.String()
	}

	assert.Equal(t, "3\n", run(t, "$=", Config{NoAutoprint: true}, files), "continuous")
	assert.Equal(t, "2\n1\n", run(t, "$=", Config{NoAutoprint: true, Separate: true}, files), "separate")
	assert.Equal(t, "/one.txt\n/one.txt\n/two.txt\n", run(t, "F", Config{NoAutoprint: true}, files), "file names")
	assert.Equal(t, "b\n", run(t, "2p", Config{NoAutoprint: true, Separate: true}, files), "separate line numbers")
	assert.Equal(t, "a\nb\n", run(t, "1,2p", Config{NoAutoprint: true}, files), "continuous range")
	assert.Equal(t, "\na\nb\n", run(t, "x", Config{Separate: true}, files), "hold persists across sources")

	empty := []Source{ReaderSource(strings.NewReader("")), FileSource("/two.txt")}
	assert.Equal(t, "c\n", run(t, "$p", Config{NoAutoprint: true}, empty), "empty source")

	stdin := Config{NoAutoprint: true, Stdin: strings.NewReader("s\n")}
	assert.Equal(t, "-\n", run(t, "F", stdin, []Source{FileSource("-")}), "stdin name")

	t.Run("missing file", func(t *testing.T) {
		vm := compileWith(t, "p", Config{Fs: fs})
		var out bytes.Buffer
		err := vm.Run([]Source{FileSource("/one.txt"), FileSource("/nope.txt")}, &out)
		var rerr *RuntimeError
		require.True(t, errors.As(err, &rerr), "want RuntimeError, got %v", err)
		assert.Equal(t, 2, rerr.Code)
		assert.Contains(t, rerr.Error(), "can't read /nope.txt")
	})
}

func TestVMNoPreviousRegex(t *testing.T) {
	_, err := runSed(t, "//p", "a\n")
	var rerr *RuntimeError
	require.True(t, errors.As(err, &rerr), "want RuntimeError, got %v", err)
	assert.Equal(t, 1, rerr.Code)
	assert.Equal(t, "no previous regular expression", rerr.Message)
}

func TestVMCharset(t *testing.T) {
	cs, err := runtime.LookupCharset("latin1")
	require.NoError(t, err)
	got, err := runSedWith(t, "s/é/e/", Config{Charset: cs}, "caf\xe9\n")
	require.NoError(t, err)
	assert.Equal(t, "cafe\n", got)

	got, err = runSedWith(t, "s/e/é/", Config{Charset: cs}, "e\n")
	require.NoError(t, err)
	assert.Equal(t, "\xe9\n", got)
}

func TestVMRunTwice(t *testing.T) {
	vm := compile(t, "/b/,/c/d;x")
	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		require.NoError(t, vm.Run([]Source{ReaderSource(strings.NewReader("a\nb\nx\nc\nd\n"))}, &out))
		assert.Equal(t, "\na\n", out.String(), "run %d", i)
	}
}
