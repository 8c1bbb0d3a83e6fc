package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kolkov/used/internal/runtime"
	"github.com/kolkov/used/internal/token"
)

// Op is the operation of a command. The set of variants is closed.
type Op interface {
	// Token returns the command letter.
	Token() token.Token
	String() string
	opNode()
}

// Block is {. End is the index of the matching }.
type Block struct {
	End int
}

// BlockEnd is }.
type BlockEnd struct{}

// Subst is s/regex/replacement/flags.
type Subst struct {
	// Regex is nil for an empty pattern, which reuses the last regex.
	Regex       *runtime.Regex
	Replacement *runtime.Replacement
	Global      bool
	Print       bool
	// Occurrence is the match to replace (1 when no number is given).
	// With Global, every match from Occurrence on is replaced.
	Occurrence int
	// WFile names the w flag's file; empty if there is none.
	WFile string
}

// Translit is y/src/dst/.
type Translit struct {
	Src, Dst string
	Map      map[rune]rune
}

// Apply transliterates s.
func (y *Translit) Apply(s string) string {
	return strings.Map(func(r rune) rune {
		if to, ok := y.Map[r]; ok {
			return to
		}
		return r
	}, s)
}

// Branch is b, t or T.
type Branch struct {
	Kind  token.Token
	Label string
	// Target is the index to continue at; len(Commands) means the end of
	// the script. It is set by the semantic pass.
	Target int
}

// Label is :name.
type Label struct {
	Name string
}

// Text is a, i or c.
type Text struct {
	Kind token.Token
	Text string
}

// File is r, R, w or W.
type File struct {
	Kind token.Token
	Name string
}

// Quit is q or Q.
type Quit struct {
	Kind token.Token
	Code int
}

// List is l with an optional line width.
type List struct {
	Width    int
	HasWidth bool
}

// Simple is a command without operands.
type Simple struct {
	Kind token.Token
}

func (*Block) Token() token.Token    { return token.LBRACE }
func (*BlockEnd) Token() token.Token { return token.RBRACE }
func (*Subst) Token() token.Token    { return token.SUBST }
func (*Translit) Token() token.Token { return token.TRANSLIT }
func (o *Branch) Token() token.Token { return o.Kind }
func (*Label) Token() token.Token    { return token.LABEL }
func (o *Text) Token() token.Token   { return o.Kind }
func (o *File) Token() token.Token   { return o.Kind }
func (o *Quit) Token() token.Token   { return o.Kind }
func (*List) Token() token.Token     { return token.LIST }
func (o *Simple) Token() token.Token { return o.Kind }
func (*Block) opNode()               {}
func (*BlockEnd) opNode()            {}
func (*Subst) opNode()               {}
func (*Translit) opNode()            {}
func (*Branch) opNode()              {}
func (*Label) opNode()               {}
func (*Text) opNode()                {}
func (*File) opNode()                {}
func (*Quit) opNode()                {}
func (*List) opNode()                {}
func (*Simple) opNode()              {}
func (o *Block) String() string      { return "{" }
func (o *BlockEnd) String() string   { return "}" }
func (o *Label) String() string      { return ":" + o.Name }
func (o *Simple) String() string     { return o.Kind.String() }
func (o *File) String() string       { return o.Kind.String() + " " + o.Name }
func (o *Translit) String() string   { return "y/" + o.Src + "/" + o.Dst + "/" }

func (o *Subst) String() string {
	var b strings.Builder
	b.WriteString("s/")
	if o.Regex != nil {
		b.WriteString(strings.ReplaceAll(o.Regex.Source(), "/", `\/`))
	}
	b.WriteByte('/')
	if o.Replacement != nil {
		b.WriteString(strings.ReplaceAll(o.Replacement.Source, "/", `\/`))
	}
	b.WriteByte('/')
	if o.Global {
		b.WriteByte('g')
	}
	if o.Occurrence > 1 {
		b.WriteString(strconv.Itoa(o.Occurrence))
	}
	if o.Print {
		b.WriteByte('p')
	}
	if o.Regex != nil {
		if o.Regex.Flags().IgnoreCase {
			b.WriteByte('I')
		}
		if o.Regex.Flags().Multiline {
			b.WriteByte('M')
		}
	}
	if o.WFile != "" {
		b.WriteString("w " + o.WFile)
	}
	return b.String()
}

func (o *Branch) String() string {
	if o.Label == "" {
		return fmt.Sprintf("%s -> %04d", o.Kind, o.Target)
	}
	return fmt.Sprintf("%s %s -> %04d", o.Kind, o.Label, o.Target)
}

func (o *Text) String() string {
	return fmt.Sprintf("%s %q", o.Kind, o.Text)
}

func (o *Quit) String() string {
	if o.Code == 0 {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s %d", o.Kind, o.Code)
}

func (o *List) String() string {
	if !o.HasWidth {
		return "l"
	}
	return fmt.Sprintf("l %d", o.Width)
}
