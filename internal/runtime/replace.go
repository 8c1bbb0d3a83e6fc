package runtime

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a replacement token.
type TokenKind uint8

const (
	// Literal text.
	Literal TokenKind = iota
	// Group inserts a capture group; group 0 is the whole match.
	Group
	// Case changes the case of what follows.
	Case
)

// CaseOp is a case conversion operator of a replacement.
type CaseOp uint8

const (
	// LowerNext is \l.
	LowerNext CaseOp = iota + 1
	// UpperNext is \u.
	UpperNext
	// LowerAll is \L.
	LowerAll
	// UpperAll is \U.
	UpperAll
	// EndCase is \E.
	EndCase
)

// ReplToken is one element of a compiled replacement.
type ReplToken struct {
	Kind  TokenKind
	Text  string
	Group int
	Case  CaseOp
}

// Replacement is the compiled right-hand side of an s command.
type Replacement struct {
	Source string
	Tokens []ReplToken
}

// CompileReplacement parses the replacement text of an s command. groups is
// the capture group count of the pattern; a reference beyond it fails.
// The delimiter escape has already been removed by the script reader.
func CompileReplacement(text string, groups int) (*Replacement, error) {
	r := &Replacement{Source: text}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			r.Tokens = append(r.Tokens, ReplToken{Kind: Literal, Text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '&' {
			flush()
			r.Tokens = append(r.Tokens, ReplToken{Kind: Group, Group: 0})
			continue
		}
		if c != '\\' {
			lit.WriteByte(c)
			continue
		}
		if i+1 >= len(text) {
			lit.WriteByte('\\')
			break
		}
		i++
		d := text[i]
		switch {
		case d >= '0' && d <= '9':
			n := int(d - '0')
			if n > groups {
				return nil, &PatternError{Message: "invalid reference \\" + string(d) + " on `s' command's RHS"}
			}
			flush()
			r.Tokens = append(r.Tokens, ReplToken{Kind: Group, Group: n})
		case d == '&':
			lit.WriteByte('&')
		case d == 'l' || d == 'u' || d == 'L' || d == 'U' || d == 'E':
			flush()
			r.Tokens = append(r.Tokens, ReplToken{Kind: Case, Case: caseOps[d]})
		default:
			s, n, ok := decodeCharEscape(d, text[i+1:])
			if !ok {
				s, n = string(d), 0
			}
			lit.WriteString(s)
			i += n
		}
	}
	flush()
	return r, nil
}

var caseOps = map[byte]CaseOp{
	'l': LowerNext,
	'u': UpperNext,
	'L': LowerAll,
	'U': UpperAll,
	'E': EndCase,
}

// caseWriter applies the active case conversion to text written through it.
type caseWriter struct {
	b       *strings.Builder
	mode    CaseOp // LowerAll, UpperAll or 0
	oneShot CaseOp // LowerNext, UpperNext or 0
}

func (w *caseWriter) set(op CaseOp) {
	switch op {
	case LowerNext, UpperNext:
		w.oneShot = op
	case LowerAll, UpperAll:
		w.mode = op
	case EndCase:
		w.mode = 0
		w.oneShot = 0
	}
}

func (w *caseWriter) write(s string) {
	if s == "" {
		return
	}
	if w.oneShot != 0 {
		r, size := utf8.DecodeRuneInString(s)
		if w.oneShot == UpperNext {
			w.b.WriteRune(unicode.ToUpper(r))
		} else {
			w.b.WriteRune(unicode.ToLower(r))
		}
		w.oneShot = 0
		s = s[size:]
	}
	switch w.mode {
	case UpperAll:
		w.b.WriteString(strings.ToUpper(s))
	case LowerAll:
		w.b.WriteString(strings.ToLower(s))
	default:
		w.b.WriteString(s)
	}
}

// Expand appends the replacement for one match to b. subject is the
// string matched against and match its submatch index pairs.
func (r *Replacement) Expand(b *strings.Builder, subject string, match []int) {
	w := caseWriter{b: b}
	for _, tok := range r.Tokens {
		switch tok.Kind {
		case Literal:
			w.write(tok.Text)
		case Group:
			if 2*tok.Group+1 < len(match) && match[2*tok.Group] >= 0 {
				w.write(subject[match[2*tok.Group]:match[2*tok.Group+1]])
			}
		case Case:
			w.set(tok.Case)
		}
	}
}

// HasCase reports whether the replacement uses case operators.
func (r *Replacement) HasCase() bool {
	for _, tok := range r.Tokens {
		if tok.Kind == Case {
			return true
		}
	}
	return false
}
