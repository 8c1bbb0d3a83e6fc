package runtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coregx/coregex"
)

// Dialect selects the syntax a sed pattern is written in.
type Dialect int

const (
	// Basic is POSIX BRE with GNU extensions (\+, \?, \|).
	Basic Dialect = iota
	// Extended is POSIX ERE (sed -E).
	Extended
	// Native passes the pattern to the regex engine untranslated.
	Native
)

func (d Dialect) String() string {
	switch d {
	case Basic:
		return "basic"
	case Extended:
		return "extended"
	case Native:
		return "native"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// PatternError reports a pattern or replacement that cannot be translated.
type PatternError struct {
	Pattern string
	Message string
}

func (e *PatternError) Error() string {
	if e.Pattern == "" {
		return e.Message
	}
	return fmt.Sprintf("%s in %q", e.Message, e.Pattern)
}

func patternErrorf(pattern, format string, args ...any) *PatternError {
	return &PatternError{Pattern: pattern, Message: fmt.Sprintf(format, args...)}
}

// posixClasses lists the class names accepted inside [: :].
var posixClasses = map[string]bool{
	"alnum": true, "alpha": true, "blank": true, "cntrl": true,
	"digit": true, "graph": true, "lower": true, "print": true,
	"punct": true, "space": true, "upper": true, "xdigit": true,
}

// translator rewrites a sed pattern into coregex syntax.
type translator struct {
	src     string
	dialect Dialect
	out     strings.Builder
	pos     int
	groups  int
	depth   int
	atStart bool // an operator here would have nothing to apply to
}

// Translate converts a BRE or ERE pattern into the engine's syntax.
// It returns the translated pattern and its number of capture groups.
func Translate(pattern string, dialect Dialect) (string, int, error) {
	if dialect == Native {
		re, err := coregex.Compile(pattern)
		if err != nil {
			return "", 0, patternErrorf(pattern, "%v", err)
		}
		return pattern, re.NumSubexp(), nil
	}
	t := &translator{src: pattern, dialect: dialect, atStart: true}
	if err := t.run(); err != nil {
		return "", 0, err
	}
	return t.out.String(), t.groups, nil
}

func (t *translator) errorf(format string, args ...any) error {
	return patternErrorf(t.src, format, args...)
}

func (t *translator) run() error {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		var err error
		switch {
		case c == '\\':
			err = t.escape()
		case c == '[':
			err = t.bracket()
		case t.dialect == Basic:
			err = t.basic(c)
		default:
			err = t.extended(c)
		}
		if err != nil {
			return err
		}
	}
	if t.depth > 0 {
		return t.errorf("unmatched ( or \\(")
	}
	return nil
}

// literal emits s so that it matches itself.
func (t *translator) literal(s string) {
	t.out.WriteString(regexp.QuoteMeta(s))
	t.atStart = false
}

func (t *translator) basic(c byte) error {
	t.pos++
	switch c {
	case '*':
		if t.atStart {
			t.literal("*")
			return nil
		}
		t.out.WriteByte('*')
	case '^':
		if t.atStart {
			t.out.WriteByte('^')
			return nil // a following * is still literal
		}
		t.literal("^")
		return nil
	case '$':
		if t.atEnd() {
			t.out.WriteByte('$')
		} else {
			t.literal("$")
		}
	case '(', ')', '{', '}', '+', '?', '|':
		t.literal(string(c))
	default:
		t.out.WriteByte(c)
	}
	t.atStart = false
	return nil
}

// atEnd reports whether a BRE $ at the current position is an anchor.
func (t *translator) atEnd() bool {
	rest := t.src[t.pos:]
	return rest == "" || strings.HasPrefix(rest, `\)`) || strings.HasPrefix(rest, `\|`)
}

func (t *translator) extended(c byte) error {
	t.pos++
	switch c {
	case '(':
		t.open()
		return nil
	case ')':
		return t.close()
	case '|':
		t.out.WriteByte('|')
		t.atStart = true
		return nil
	case '*', '+', '?':
		if t.atStart {
			t.literal(string(c))
			return nil
		}
		t.out.WriteByte(c)
	case '{':
		if t.atStart {
			t.literal("{")
			return nil
		}
		return t.interval("}")
	case '^':
		t.out.WriteByte('^')
		t.atStart = true
		return nil
	default:
		t.out.WriteByte(c)
	}
	t.atStart = false
	return nil
}

func (t *translator) open() {
	t.groups++
	t.depth++
	t.out.WriteByte('(')
	t.atStart = true
}

func (t *translator) close() error {
	if t.depth == 0 {
		return t.errorf("unmatched ) or \\)")
	}
	t.depth--
	t.out.WriteByte(')')
	t.atStart = false
	return nil
}

// interval copies an {m,n} bound whose opening brace was consumed.
func (t *translator) interval(closer string) error {
	end := strings.Index(t.src[t.pos:], closer)
	if end < 0 {
		return t.errorf("unmatched { or \\{")
	}
	body := t.src[t.pos : t.pos+end]
	lo, hi, comma := strings.Cut(body, ",")
	if comma && lo == "" {
		// GNU reads {,n} as {0,n}.
		lo = "0"
		body = lo + body
	}
	if !isDigits(lo) || (comma && hi != "" && !isDigits(hi)) {
		return t.errorf("invalid content of \\{\\}")
	}
	if comma && hi != "" {
		l, _ := strconv.Atoi(lo)
		h, _ := strconv.Atoi(hi)
		if l > h {
			return t.errorf("invalid range end in \\{\\}")
		}
	}
	t.out.WriteByte('{')
	t.out.WriteString(body)
	t.out.WriteByte('}')
	t.pos += end + len(closer)
	t.atStart = false
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (t *translator) escape() error {
	if t.pos+1 >= len(t.src) {
		return t.errorf("trailing backslash (\\)")
	}
	d := t.src[t.pos+1]
	t.pos += 2

	if t.dialect == Basic {
		switch d {
		case '(':
			t.open()
			return nil
		case ')':
			return t.close()
		case '|':
			t.out.WriteByte('|')
			t.atStart = true
			return nil
		case '{':
			if t.atStart {
				return t.errorf("invalid preceding regular expression")
			}
			return t.interval(`\}`)
		case '}':
			return t.errorf("unmatched \\}")
		case '+', '?':
			if t.atStart {
				t.literal(string(d))
				return nil
			}
			t.out.WriteByte(d)
			t.atStart = false
			return nil
		}
	}

	switch {
	case d >= '1' && d <= '9':
		n := int(d - '0')
		if n > t.groups {
			return t.errorf("invalid reference \\%d", n)
		}
		return t.errorf("back-reference \\%d is not supported in patterns", n)
	case d == 'w' || d == 'W' || d == 's' || d == 'S' || d == 'b' || d == 'B':
		t.out.WriteByte('\\')
		t.out.WriteByte(d)
	case d == '<' || d == '>':
		t.out.WriteString(`\b`)
	case d == '`':
		t.out.WriteString(`\A`)
	case d == '\'':
		t.out.WriteString(`\z`)
	default:
		s, err := t.charEscape(d)
		if err != nil {
			return err
		}
		t.literal(s)
		return nil
	}
	t.atStart = false
	return nil
}

// charEscape decodes an escape that stands for one literal character.
// The backslash and d have already been consumed.
func (t *translator) charEscape(d byte) (string, error) {
	s, n, ok := decodeCharEscape(d, t.src[t.pos:])
	if !ok {
		return "", t.errorf("invalid escape \\%c", d)
	}
	t.pos += n
	return s, nil
}

// decodeCharEscape decodes the character escapes shared by patterns,
// replacements and y commands. rest is the text after \d. It returns the
// decoded text and how many bytes of rest were used.
func decodeCharEscape(d byte, rest string) (string, int, bool) {
	switch d {
	case 'n':
		return "\n", 0, true
	case 't':
		return "\t", 0, true
	case 'r':
		return "\r", 0, true
	case 'f':
		return "\f", 0, true
	case 'v':
		return "\v", 0, true
	case 'a':
		return "\a", 0, true
	case '\n':
		return "\n", 0, true
	case 'c':
		if rest == "" {
			return "", 0, false
		}
		ch := rest[0]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		return string(rune(ch ^ 0x40)), 1, true
	case 'd':
		return numericEscape(rest, 10, 3)
	case 'o':
		return numericEscape(rest, 8, 3)
	case 'x':
		return numericEscape(rest, 16, 2)
	default:
		return string(d), 0, true
	}
}

func numericEscape(rest string, base, max int) (string, int, bool) {
	n := 0
	for n < len(rest) && n < max && isBaseDigit(rest[n], base) {
		n++
	}
	if n == 0 {
		return "", 0, false
	}
	v, err := strconv.ParseUint(rest[:n], base, 8)
	if err != nil {
		return "", 0, false
	}
	return string(rune(v)), n, true
}

func isBaseDigit(c byte, base int) bool {
	switch base {
	case 8:
		return c >= '0' && c <= '7'
	case 10:
		return c >= '0' && c <= '9'
	default:
		return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
}

// bracket copies a bracket expression starting at '['.
func (t *translator) bracket() error {
	i := t.pos + 1
	var b strings.Builder
	b.WriteByte('[')
	if i < len(t.src) && t.src[i] == '^' {
		b.WriteByte('^')
		i++
	}
	if i < len(t.src) && t.src[i] == ']' {
		b.WriteString(`\]`)
		i++
	}
	for {
		if i >= len(t.src) {
			return t.errorf("unterminated [")
		}
		c := t.src[i]
		switch {
		case c == ']':
			b.WriteByte(']')
			t.out.WriteString(b.String())
			t.pos = i + 1
			t.atStart = false
			return nil
		case c == '[' && i+1 < len(t.src) && strings.IndexByte(":=.", t.src[i+1]) >= 0:
			kind := t.src[i+1]
			end := strings.Index(t.src[i+2:], string(kind)+"]")
			if end < 0 {
				return t.errorf("unterminated [%c", kind)
			}
			name := t.src[i+2 : i+2+end]
			if kind == ':' {
				if !posixClasses[name] {
					return t.errorf("invalid character class %q", name)
				}
				b.WriteString("[:" + name + ":]")
			} else {
				if name == "" {
					return t.errorf("invalid collation character")
				}
				b.WriteString(regexp.QuoteMeta(name))
			}
			i += end + 4
		case c == '\\' && i+1 < len(t.src):
			switch t.src[i+1] {
			case 'n':
				b.WriteString(`\n`)
				i += 2
			case 't':
				b.WriteString(`\t`)
				i += 2
			case '\\':
				b.WriteString(`\\`)
				i += 2
			default:
				b.WriteString(`\\`)
				i++
			}
		case c == '\\':
			b.WriteString(`\\`)
			i++
		case c == '[':
			b.WriteString(`\[`)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
}

// Unescape decodes the character escapes of y command strings. A
// backslash before any other character yields that character.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		d, n, ok := decodeCharEscape(s[i], s[i+1:])
		if !ok {
			d, n = s[i:i+1], 0
		}
		b.WriteString(d)
		i += n
	}
	return b.String()
}
