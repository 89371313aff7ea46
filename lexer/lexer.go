package lexer

import (
	"github.com/phi-lang/phi/token"
	"github.com/phi-lang/phi/types"
)

type Lexer struct {
	fileName     string
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
}

func New(fileName, input string) *Lexer {
	l := &Lexer{fileName: fileName, input: []rune(input), line: 1}
	l.readRune()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	tok := token.Token{FileName: l.fileName, Line: l.line, Column: l.column}
	switch {
	case l.curr == 0:
		tok.Type = token.EOF
		return tok
	case l.curr == '-' && l.peekRune() == '>':
		l.readRune()
		l.readRune()
		tok.Type = token.ARROW
		tok.Literal = "->"
		return tok
	case isLetter(l.curr):
		tok.Literal = l.readIdentifier()
		if types.IsReservedTypeName(tok.Literal) {
			tok.Type = token.TYPENAME
		} else {
			tok.Type = token.LookupIdent(tok.Literal)
		}
		return tok
	case isDigit(l.curr) || l.curr == '.' && isDigit(l.peekRune()):
		tok.Type = token.NUMBER
		tok.Literal = l.readNumber()
		return tok
	case l.curr > 0x7f:
		tok.Type = token.ILLEGAL
	default:
		tok.Type = token.CHAR
	}

	tok.Literal = string(l.curr)
	l.readRune()
	return tok
}

// skipWhitespaceAndComments skips blanks and '#' comments up to end of line.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.curr {
		case ' ', '\t', '\n', '\r':
			l.readRune()
		case '#':
			for l.curr != '\n' && l.curr != 0 {
				l.readRune()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

// readNumber consumes digits and dots; validation of the literal is left to
// the parser.
func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.curr) || l.curr == '.' {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
