// Package lexer scans sed script text.
//
// Sed has no context-free token stream: what follows a command letter
// decides how the next characters are read (a regex up to a delimiter, a
// label up to the end of the line, a block of text). The lexer is therefore
// a character scanner with one reader per kind of operand, driven by the
// parser.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/kolkov/used/internal/token"
)

// Lexer scans a sed script.
type Lexer struct {
	src    string
	offset int            // byte offset of the next unread character
	pos    token.Position // position of the next unread character
}

// New creates a Lexer over the concatenated script text.
func New(src string) *Lexer {
	return &Lexer{
		src: src,
		pos: token.Position{Line: 1, Column: 1},
	}
}

// NewFile creates a Lexer whose positions carry filename.
func NewFile(filename, src string) *Lexer {
	l := New(src)
	l.pos.Filename = filename
	return l
}

// Pos returns the position of the next unread character.
func (l *Lexer) Pos() token.Position {
	return l.pos
}

// AtEOF reports whether the whole script has been consumed.
func (l *Lexer) AtEOF() bool {
	return l.offset >= len(l.src)
}

// Peek returns the next byte without consuming it, or 0 at end of script.
func (l *Lexer) Peek() byte {
	if l.AtEOF() {
		return 0
	}
	return l.src[l.offset]
}

// Next consumes and returns the next byte, or 0 at end of script.
func (l *Lexer) Next() byte {
	if l.AtEOF() {
		return 0
	}
	ch := l.src[l.offset]
	l.advance(1)
	return ch
}

// NextRune consumes and returns the next character.
func (l *Lexer) NextRune() rune {
	if l.AtEOF() {
		return utf8.RuneError
	}
	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.advance(size)
	return r
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.src[l.offset] == '\n' {
			l.pos.Line++
			l.pos.Column = 1
		} else {
			l.pos.Column++
		}
		l.offset++
	}
	l.pos.Offset = l.offset
}

// SkipSpace skips blanks on the current line.
func (l *Lexer) SkipSpace() {
	for ch := l.Peek(); ch == ' ' || ch == '\t'; ch = l.Peek() {
		l.Next()
	}
}

// SkipSeparators skips blanks, newlines and semicolons between commands.
func (l *Lexer) SkipSeparators() {
	for {
		switch l.Peek() {
		case ' ', '\t', '\n', ';':
			l.Next()
		default:
			return
		}
	}
}

// SkipLine consumes the rest of the line, including the newline.
func (l *Lexer) SkipLine() {
	for !l.AtEOF() {
		if l.Next() == '\n' {
			return
		}
	}
}

// ReadNumber reads a run of decimal digits.
func (l *Lexer) ReadNumber() (int, bool) {
	n, digits := 0, 0
	for ch := l.Peek(); ch >= '0' && ch <= '9'; ch = l.Peek() {
		if n < 1<<30 {
			n = n*10 + int(ch-'0')
		}
		l.Next()
		digits++
	}
	return n, digits > 0
}

// ReadDelimited reads up to the next unescaped delim and consumes the
// delimiter. An escaped delimiter is unescaped; every other escape,
// including backslash-newline, is kept for the regex translator or the
// replacement compiler. It reports false if a bare newline or the end of
// the script comes first.
func (l *Lexer) ReadDelimited(delim rune) (string, bool) {
	var b strings.Builder
	for !l.AtEOF() {
		r := l.NextRune()
		switch {
		case r == delim:
			return b.String(), true
		case r == '\n':
			return b.String(), false
		case r == '\\':
			if l.AtEOF() {
				b.WriteByte('\\')
				return b.String(), false
			}
			next := l.NextRune()
			if next == delim {
				b.WriteRune(next)
			} else {
				b.WriteByte('\\')
				b.WriteRune(next)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), false
}

// ReadLabel reads a label name: leading blanks are skipped and the name
// ends at a newline or semicolon. Trailing blanks are dropped.
func (l *Lexer) ReadLabel() string {
	l.SkipSpace()
	start := l.offset
	for ch := l.Peek(); ch != 0 && ch != '\n' && ch != ';'; ch = l.Peek() {
		l.Next()
	}
	return strings.TrimRight(l.src[start:l.offset], " \t")
}

// ReadFileName reads a file name running to the end of the line.
// The newline is not consumed.
func (l *Lexer) ReadFileName() string {
	l.SkipSpace()
	start := l.offset
	for ch := l.Peek(); ch != 0 && ch != '\n'; ch = l.Peek() {
		l.Next()
	}
	return l.src[start:l.offset]
}

// ReadText reads the text of an a, i or c command, positioned just after
// the command letter. Both the classic form (a backslash, a newline, then
// the text) and the one-line form (a text) are accepted. A backslash
// removes itself from before the next character, so a backslash at the end
// of a line continues the text onto the next one. It reports false if the
// script ends before any text.
func (l *Lexer) ReadText() (string, bool) {
	l.SkipSpace()
	if l.AtEOF() {
		return "", false
	}
	if l.Peek() == '\\' {
		l.Next()
		l.SkipSpace()
		if l.Peek() == '\n' {
			l.Next()
		}
		if l.AtEOF() {
			return "", false
		}
	}
	var b strings.Builder
	for !l.AtEOF() {
		ch := l.Next()
		switch ch {
		case '\n':
			return b.String(), true
		case '\\':
			if !l.AtEOF() {
				b.WriteByte(l.Next())
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), true
}

// Rest returns the unread part of the script.
func (l *Lexer) Rest() string {
	return l.src[l.offset:]
}
