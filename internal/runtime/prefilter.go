package runtime

import (
	"strings"
	"unicode/utf8"
)

// minRequired is the shortest unanchored literal worth a substring scan.
const minRequired = 3

// literals are substrings every match of a pattern contains. A line
// lacking one of them cannot match, so the engine is not run for it.
type literals struct {
	prefix   string // ^prefix, unless M is set
	suffix   string // suffix$, unless M is set
	required []string
}

// run is a literal stretch of a pattern. end is the offset of the token
// that ended it, or -1 when a quantifier cut it short.
type run struct {
	text       string
	start, end int
}

// extractLiterals finds literals in expr, a translated pattern. It may
// miss literals but never reports one that some match lacks. It returns
// nil when there is nothing to check.
func extractLiterals(expr string, flags Flags) *literals {
	if expr == "" || flags.IgnoreCase || strings.Contains(expr, "(?") || hasTopLevelAlternation(expr) {
		return nil
	}
	runs := literalRuns(expr)
	lits := &literals{}
	anchored := !flags.Multiline
	for i, r := range runs {
		switch {
		case anchored && i == 0 && expr[0] == '^' && r.start == 1:
			lits.prefix = r.text
		case anchored && i == len(runs)-1 && r.end == len(expr)-1 && expr[r.end] == '$':
			lits.suffix = r.text
		case len(r.text) >= minRequired:
			lits.required = append(lits.required, r.text)
		}
	}
	if lits.prefix == "" && lits.suffix == "" && len(lits.required) == 0 {
		return nil
	}
	return lits
}

// reject reports whether s cannot match.
func (l *literals) reject(s string) bool {
	if l.prefix != "" && !strings.HasPrefix(s, l.prefix) {
		return true
	}
	if l.suffix != "" && !strings.HasSuffix(s, l.suffix) {
		return true
	}
	for _, req := range l.required {
		if !strings.Contains(s, req) {
			return true
		}
	}
	return false
}

// literalRuns splits p into its literal stretches. Classes, groups and
// escapes other than quoted punctuation end a stretch.
func literalRuns(p string) []run {
	var (
		runs  []run
		cur   strings.Builder
		start int
	)
	flush := func(end int) {
		if cur.Len() > 0 {
			runs = append(runs, run{text: cur.String(), start: start, end: end})
		}
		cur.Reset()
	}
	add := func(at int, c byte) {
		if cur.Len() == 0 {
			start = at
		}
		cur.WriteByte(c)
	}

	for i := 0; i < len(p); {
		c := p[i]
		switch {
		case c == '*' || c == '+' || c == '?' || c == '{':
			// The quantifier applies to the last rune only.
			if cur.Len() > 0 {
				s := cur.String()
				_, size := utf8.DecodeLastRuneInString(s)
				cur.Reset()
				cur.WriteString(s[:len(s)-size])
				flush(-1)
			}
			if c == '{' {
				i = skipBrace(p, i)
			} else {
				i++
			}
		case c == '[':
			flush(i)
			i = skipClass(p, i)
		case c == '(':
			flush(i)
			i = skipGroup(p, i)
		case c == '\\' && i+1 < len(p):
			if isPunct(p[i+1]) {
				add(i, p[i+1])
				i += 2
				continue
			}
			// \x41, \pL, \123 and the like: skip the operand too.
			flush(i)
			i += 2
			for i < len(p) && isAlnum(p[i]) {
				i++
			}
			if i < len(p) && p[i] == '{' {
				i = skipBrace(p, i)
			}
		case strings.IndexByte(".^$|)]}\\", c) >= 0:
			flush(i)
			i++
		default:
			add(i, c)
			i++
		}
	}
	flush(len(p))
	return runs
}

// hasTopLevelAlternation reports whether p has a | outside groups and
// classes.
func hasTopLevelAlternation(p string) bool {
	for i := 0; i < len(p); {
		switch p[i] {
		case '\\':
			i += 2
		case '[':
			i = skipClass(p, i)
		case '(':
			i = skipGroup(p, i)
		case '|':
			return true
		default:
			i++
		}
	}
	return false
}

// skipClass returns the offset after the bracket expression at start.
func skipClass(p string, start int) int {
	i := start + 1
	if i < len(p) && p[i] == '^' {
		i++
	}
	if i < len(p) && p[i] == ']' {
		i++
	}
	for i < len(p) {
		switch {
		case p[i] == '\\':
			i += 2
		case p[i] == '[' && i+1 < len(p) && p[i+1] == ':':
			if end := strings.Index(p[i+2:], ":]"); end >= 0 {
				i += end + 4
			} else {
				i++
			}
		case p[i] == ']':
			return i + 1
		default:
			i++
		}
	}
	return len(p)
}

// skipGroup returns the offset after the group at start.
func skipGroup(p string, start int) int {
	depth := 0
	for i := start; i < len(p); {
		switch p[i] {
		case '\\':
			i += 2
			continue
		case '[':
			i = skipClass(p, i)
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(p)
}

// skipBrace returns the offset after the {...} at start.
func skipBrace(p string, start int) int {
	if end := strings.IndexByte(p[start:], '}'); end >= 0 {
		return start + end + 1
	}
	return len(p)
}

func isPunct(c byte) bool {
	return c < utf8.RuneSelf && c > ' ' && c != 0x7f && !isAlnum(c)
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}
