// Package runtime provides the pieces the sed engine needs at run time:
// regex translation and matching, replacement expansion, the l command
// escaper, character set conversion and side-file management.
package runtime

import (
	"regexp"

	"github.com/coregx/coregex"
)

// dotallPrefix makes . match the newlines that N and G embed.
const dotallPrefix = "(?s"

// Flags are the per-pattern modifiers of addresses and s commands.
type Flags struct {
	// IgnoreCase is the I modifier.
	IgnoreCase bool
	// Multiline is the M modifier: ^ and $ also match around embedded newlines.
	Multiline bool
}

func (f Flags) prefix() string {
	p := dotallPrefix
	if f.IgnoreCase {
		p += "i"
	}
	if f.Multiline {
		p += "m"
	}
	return p + ")"
}

// engine is the part of the regexp API the sed commands use. Both
// *coregex.Regexp and *regexp.Regexp implement it.
type engine interface {
	MatchString(s string) bool
	FindAllStringSubmatchIndex(s string, n int) [][]int
}

// Regex is a translated, compiled sed pattern.
// Matching is POSIX leftmost-longest.
type Regex struct {
	source  string
	dialect Dialect
	flags   Flags
	expr    string
	groups  int
	re      engine
	lits    *literals
}

// newEngine compiles expr in leftmost-longest mode. Patterns with M use
// the standard library: coregex reports ^ and $ matches away from line
// boundaries under (?m).
func newEngine(expr string, flags Flags) (engine, error) {
	if flags.Multiline {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		re.Longest()
		return re, nil
	}
	re, err := coregex.Compile(expr)
	if err != nil {
		return nil, err
	}
	re.Longest()
	return re, nil
}

// Compile translates pattern from dialect and compiles it.
func Compile(pattern string, dialect Dialect, flags Flags) (*Regex, error) {
	expr, groups, err := Translate(pattern, dialect)
	if err != nil {
		return nil, err
	}
	re, err := newEngine(flags.prefix()+expr, flags)
	if err != nil {
		return nil, patternErrorf(pattern, "%v", err)
	}
	return &Regex{
		source:  pattern,
		dialect: dialect,
		flags:   flags,
		expr:    expr,
		groups:  groups,
		re:      re,
		lits:    extractLiterals(expr, flags),
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string, dialect Dialect, flags Flags) *Regex {
	re, err := Compile(pattern, dialect, flags)
	if err != nil {
		panic(err)
	}
	return re
}

// Source returns the pattern as written in the script.
func (r *Regex) Source() string {
	return r.source
}

// Expr returns the translated pattern handed to the engine.
func (r *Regex) Expr() string {
	return r.expr
}

// Flags returns the modifiers the regex was compiled with.
func (r *Regex) Flags() Flags {
	return r.flags
}

// NumGroups returns the number of capture groups.
func (r *Regex) NumGroups() int {
	return r.groups
}

// MatchString reports whether s contains a match.
func (r *Regex) MatchString(s string) bool {
	if r.lits != nil && r.lits.reject(s) {
		return false
	}
	if r.flags.IgnoreCase {
		// coregex's MatchString misses (?i) matches its index search finds.
		return r.re.FindAllStringSubmatchIndex(s, 1) != nil
	}
	return r.re.MatchString(s)
}

// FindAllSubmatchIndex returns the submatch index pairs of up to n
// non-overlapping matches; n < 0 means all. An empty match right after the
// previous match is not reported.
func (r *Regex) FindAllSubmatchIndex(s string, n int) [][]int {
	if r.lits != nil && r.lits.reject(s) {
		return nil
	}
	found := r.re.FindAllStringSubmatchIndex(s, n)
	matches, dropped := dropAbutting(found)
	if dropped && n >= 0 && len(found) == n {
		// The limit counted a dropped match; search again for the rest.
		matches, _ = dropAbutting(r.re.FindAllStringSubmatchIndex(s, -1))
		if len(matches) > n {
			matches = matches[:n]
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return matches
}

// dropAbutting removes empty matches that start where the previous match
// ended, and reports whether it removed any.
func dropAbutting(found [][]int) ([][]int, bool) {
	for i := 1; i < len(found); i++ {
		if isAbutting(found[i], found[i-1]) {
			out := append([][]int(nil), found[:i]...)
			prev := found[i]
			for _, m := range found[i+1:] {
				if !isAbutting(m, prev) {
					out = append(out, m)
				}
				prev = m
			}
			return out, true
		}
	}
	return found, false
}

func isAbutting(m, prev []int) bool {
	return m[0] == m[1] && m[0] == prev[1]
}

// String returns the pattern as written.
func (r *Regex) String() string {
	return r.source
}

type cacheKey struct {
	pattern string
	dialect Dialect
	flags   Flags
}

// RegexCache shares compiled regexes between identical patterns of one
// script. It is used from a single goroutine.
type RegexCache struct {
	entries map[cacheKey]*Regex
}

// NewRegexCache creates an empty cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{entries: make(map[cacheKey]*Regex)}
}

// Get returns the compiled regex for pattern, compiling it on first use.
func (c *RegexCache) Get(pattern string, dialect Dialect, flags Flags) (*Regex, error) {
	key := cacheKey{pattern, dialect, flags}
	if re, ok := c.entries[key]; ok {
		return re, nil
	}
	re, err := Compile(pattern, dialect, flags)
	if err != nil {
		return nil, err
	}
	c.entries[key] = re
	return re, nil
}

// Len returns the number of cached regexes.
func (c *RegexCache) Len() int {
	return len(c.entries)
}
