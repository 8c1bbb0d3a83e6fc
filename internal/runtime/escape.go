package runtime

import (
	"fmt"
	"strings"
)

var cEscapes = map[byte]string{
	'\\': `\\`,
	'\a': `\a`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
	'\v': `\v`,
}

// Escape renders s the way the l command shows it: backslashes and control
// characters escaped, other non-printable bytes as three-digit octal, lines
// folded with a trailing backslash so none exceeds width characters, and a
// final $. A width of 0 or less disables folding. The result ends in a
// newline.
func Escape(s string, width int) string {
	var b strings.Builder
	col := 0
	emit := func(piece string) {
		if width > 0 && col+len(piece) > width-1 {
			b.WriteString("\\\n")
			col = 0
		}
		b.WriteString(piece)
		col += len(piece)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch esc, ok := cEscapes[c]; {
		case ok:
			emit(esc)
		case c < 0x20 || c >= 0x7f:
			emit(fmt.Sprintf("\\%03o", c))
		default:
			emit(string(c))
		}
	}
	b.WriteString("$\n")
	return b.String()
}
