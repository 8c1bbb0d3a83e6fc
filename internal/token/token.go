// Package token defines the command vocabulary of sed scripts.
package token

// Token identifies a sed command.
type Token uint8

const (
	ILLEGAL Token = iota

	// Structure
	LBRACE  // {
	RBRACE  // }
	LABEL   // :
	COMMENT // #

	// Text commands
	textStart
	APPEND // a
	INSERT // i
	CHANGE // c
	textEnd

	// File commands
	fileStart
	READ      // r
	READLINE  // R
	WRITE     // w
	WRITEHEAD // W
	fileEnd

	// Branches
	branchStart
	BRANCH  // b
	TEST    // t
	TESTNOT // T
	branchEnd

	// Pattern and hold space
	DELETE     // d
	DELETEHEAD // D
	GET        // g
	GETAPPEND  // G
	HOLD       // h
	HOLDAPPEND // H
	EXCHANGE   // x
	ZAP        // z

	// Input and output
	NEXT       // n
	NEXTAPPEND // N
	PRINT      // p
	PRINTHEAD  // P
	LIST       // l
	LINENUM    // =
	FILENAME   // F
	QUIT       // q
	QUITSILENT // Q

	// Editing
	SUBST    // s
	TRANSLIT // y
)

var letters = [...]byte{
	LBRACE:     '{',
	RBRACE:     '}',
	LABEL:      ':',
	COMMENT:    '#',
	APPEND:     'a',
	INSERT:     'i',
	CHANGE:     'c',
	READ:       'r',
	READLINE:   'R',
	WRITE:      'w',
	WRITEHEAD:  'W',
	BRANCH:     'b',
	TEST:       't',
	TESTNOT:    'T',
	DELETE:     'd',
	DELETEHEAD: 'D',
	GET:        'g',
	GETAPPEND:  'G',
	HOLD:       'h',
	HOLDAPPEND: 'H',
	EXCHANGE:   'x',
	ZAP:        'z',
	NEXT:       'n',
	NEXTAPPEND: 'N',
	PRINT:      'p',
	PRINTHEAD:  'P',
	LIST:       'l',
	LINENUM:    '=',
	FILENAME:   'F',
	QUIT:       'q',
	QUITSILENT: 'Q',
	SUBST:      's',
	TRANSLIT:   'y',
}

var commands [256]Token

func init() {
	for tok, ch := range letters {
		if ch != 0 {
			commands[ch] = Token(tok)
		}
	}
}

// Lookup returns the command for a script character, or ILLEGAL.
func Lookup(ch byte) Token {
	return commands[ch]
}

// Letter returns the script character of the command.
func (t Token) Letter() byte {
	if int(t) < len(letters) {
		return letters[t]
	}
	return 0
}

// String returns the command letter, or "<illegal>".
func (t Token) String() string {
	if ch := t.Letter(); ch != 0 {
		return string(ch)
	}
	return "<illegal>"
}

// IsText returns true for a, i and c.
func (t Token) IsText() bool {
	return t > textStart && t < textEnd
}

// IsFile returns true for commands taking a file name argument.
func (t Token) IsFile() bool {
	return t > fileStart && t < fileEnd
}

// IsBranch returns true for b, t and T.
func (t Token) IsBranch() bool {
	return t > branchStart && t < branchEnd
}

// MaxAddresses returns how many addresses the command accepts.
func (t Token) MaxAddresses() int {
	switch t {
	case LABEL, RBRACE, COMMENT:
		return 0
	case QUIT, QUITSILENT:
		return 1
	default:
		return 2
	}
}
