package token

import "strconv"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	keyword_beg
	DEF    // def
	EXTERN // extern
	keyword_end

	literal_beg
	IDENT    // x, square, store
	NUMBER   // 12, 1.5
	TYPENAME // Real, Int, Bool, Any
	literal_end

	ARROW // ->
	CHAR  // any single punctuation or operator character
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	DEF:    "def",
	EXTERN: "extern",

	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	TYPENAME: "TYPENAME",

	ARROW: "->",
	CHAR:  "CHAR",
}

var keywords = map[string]TokenType{
	"def":    DEF,
	"extern": EXTERN,
}

// LookupIdent maps a word to its keyword token type, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	FileName string
	Type     TokenType
	Literal  string
	Line     int
	Column   int
}

// Is reports whether t is the single character token ch.
func (t Token) Is(ch byte) bool {
	return t.Type == CHAR && len(t.Literal) == 1 && t.Literal[0] == ch
}

func (t Token) IsKeyword() bool {
	return keyword_beg < t.Type && t.Type < keyword_end
}

func (t Token) Pos() string {
	if t.FileName == "" {
		return strconv.Itoa(t.Line) + ":" + strconv.Itoa(t.Column)
	}
	return t.FileName + ":" + strconv.Itoa(t.Line) + ":" + strconv.Itoa(t.Column)
}

func (t Token) String() string {
	if t.Type == CHAR || t.Literal != "" && t.Type != EOF {
		return strconv.Quote(t.Literal)
	}
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}
