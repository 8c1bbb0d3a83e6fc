package lexer

import (
	"testing"

	"github.com/kolkov/used/internal/token"
)

func TestNextAndPosition(t *testing.T) {
	l := New("ab\nc")
	want := []struct {
		ch   byte
		line int
		col  int
	}{
		{'a', 1, 1},
		{'b', 1, 2},
		{'\n', 1, 3},
		{'c', 2, 1},
	}
	for _, w := range want {
		pos := l.Pos()
		if pos.Line != w.line || pos.Column != w.col {
			t.Errorf("Pos() before %q = %d:%d, want %d:%d", w.ch, pos.Line, pos.Column, w.line, w.col)
		}
		if got := l.Next(); got != w.ch {
			t.Errorf("Next() = %q, want %q", got, w.ch)
		}
	}
	if !l.AtEOF() {
		t.Error("AtEOF() = false, want true")
	}
	if got := l.Next(); got != 0 {
		t.Errorf("Next() at EOF = %q, want 0", got)
	}
	if got := l.Pos().Offset; got != 4 {
		t.Errorf("Offset = %d, want 4", got)
	}
}

func TestNewFile(t *testing.T) {
	l := NewFile("script.sed", "p")
	want := token.Position{Filename: "script.sed", Line: 1, Column: 1}
	if l.Pos() != want {
		t.Errorf("Pos() = %v, want %v", l.Pos(), want)
	}
}

func TestSkip(t *testing.T) {
	l := New(" \t;\n ;p")
	l.SkipSeparators()
	if got := l.Peek(); got != 'p' {
		t.Errorf("after SkipSeparators Peek() = %q, want 'p'", got)
	}

	l = New("  x")
	l.SkipSpace()
	if got := l.Peek(); got != 'x' {
		t.Errorf("after SkipSpace Peek() = %q, want 'x'", got)
	}

	l = New(" \nx")
	l.SkipSpace()
	if got := l.Peek(); got != '\n' {
		t.Errorf("SkipSpace crossed a newline: Peek() = %q", got)
	}

	l = New("comment here\nnext")
	l.SkipLine()
	if got := l.Rest(); got != "next" {
		t.Errorf("after SkipLine Rest() = %q, want %q", got, "next")
	}
}

func TestReadNumber(t *testing.T) {
	tests := []struct {
		src  string
		n    int
		ok   bool
		rest string
	}{
		{"42p", 42, true, "p"},
		{"0", 0, true, ""},
		{"p", 0, false, "p"},
		{"", 0, false, ""},
	}
	for _, tt := range tests {
		l := New(tt.src)
		n, ok := l.ReadNumber()
		if n != tt.n || ok != tt.ok || l.Rest() != tt.rest {
			t.Errorf("ReadNumber(%q) = %d, %v rest %q; want %d, %v rest %q",
				tt.src, n, ok, l.Rest(), tt.n, tt.ok, tt.rest)
		}
	}
}

func TestReadDelimited(t *testing.T) {
	tests := []struct {
		src   string
		delim rune
		want  string
		ok    bool
		rest  string
	}{
		{"abc/def", '/', "abc", true, "def"},
		{`a\/b/`, '/', "a/b", true, ""},
		{`a\nb/`, '/', `a\nb`, true, ""},
		{`a\\/x`, '/', `a\\`, true, "x"},
		{`a\%b%`, '%', "a%b", true, ""},
		{`a\/b%`, '%', `a\/b`, true, ""},
		{"a\\\nb/", '/', "a\\\nb", true, ""},
		{"ab\ncd/", '/', "ab", false, "cd/"},
		{"abc", '/', "abc", false, ""},
		{`abc\`, '/', `abc\`, false, ""},
		{"xéy", 'é', "x", true, "y"},
	}
	for _, tt := range tests {
		l := New(tt.src)
		got, ok := l.ReadDelimited(tt.delim)
		if got != tt.want || ok != tt.ok || l.Rest() != tt.rest {
			t.Errorf("ReadDelimited(%q, %q) = %q, %v rest %q; want %q, %v rest %q",
				tt.src, tt.delim, got, ok, l.Rest(), tt.want, tt.ok, tt.rest)
		}
	}
}

func TestReadLabel(t *testing.T) {
	tests := []struct {
		src  string
		want string
		rest string
	}{
		{"loop\np", "loop", "\np"},
		{"  loop  ;p", "loop", ";p"},
		{"end", "end", ""},
		{"\n", "", "\n"},
		{"a b\n", "a b", "\n"},
	}
	for _, tt := range tests {
		l := New(tt.src)
		got := l.ReadLabel()
		if got != tt.want || l.Rest() != tt.rest {
			t.Errorf("ReadLabel(%q) = %q rest %q; want %q rest %q", tt.src, got, l.Rest(), tt.want, tt.rest)
		}
	}
}

func TestReadFileName(t *testing.T) {
	l := New(" out file.txt; p\nq")
	if got := l.ReadFileName(); got != "out file.txt; p" {
		t.Errorf("ReadFileName() = %q", got)
	}
	if got := l.Rest(); got != "\nq" {
		t.Errorf("Rest() = %q, want %q", got, "\nq")
	}
}

func TestReadText(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		ok   bool
		rest string
	}{
		{"one-liner", " hello world\np", "hello world", true, "p"},
		{"classic", "\\\nhello\np", "hello", true, "p"},
		{"classic continued", "\\\nline1\\\nline2\np", "line1\nline2", true, "p"},
		{"leading space kept", "\\\n  indented\n", "  indented", true, ""},
		{"backslash one-liner", `\text`, "text", true, ""},
		{"escaped backslash", `\` + "\n" + `a\\b`, `a\b`, true, ""},
		{"escape removed", " a\\tb", "atb", true, ""},
		{"at end", " last", "last", true, ""},
		{"empty", "", "", false, ""},
		{"only backslash", "\\\n", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.src)
			got, ok := l.ReadText()
			if got != tt.want || ok != tt.ok || l.Rest() != tt.rest {
				t.Errorf("ReadText(%q) = %q, %v rest %q; want %q, %v rest %q",
					tt.src, got, ok, l.Rest(), tt.want, tt.ok, tt.rest)
			}
		})
	}
}
