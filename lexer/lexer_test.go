package lexer

import (
	"testing"

	"github.com/phi-lang/phi/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Test struct {
	expectedType    token.TokenType
	expectedLiteral string
}

func checkInput(t *testing.T, input string, tests []Test) {
	t.Helper()
	l := New("test.phi", input)

	for i, tt := range tests {
		tok := l.NextToken()
		require.Equalf(t, tt.expectedType, tok.Type, "tests[%d] - tokentype wrong, literal %q", i, tok.Literal)
		require.Equalf(t, tt.expectedLiteral, tok.Literal, "tests[%d] - literal wrong", i)
	}
}

func TestNextToken(t *testing.T) {
	input := `# a comment line
def Real:x Int:n -> f -> Real:c   # trailing comment
    x * 2.5 + n;
extern Real -> sin -> Real
v!<4> a![8] $x g() t<Real>
`

	tests := []Test{
		{token.DEF, "def"},
		{token.TYPENAME, "Real"},
		{token.CHAR, ":"},
		{token.IDENT, "x"},
		{token.TYPENAME, "Int"},
		{token.CHAR, ":"},
		{token.IDENT, "n"},
		{token.ARROW, "->"},
		{token.IDENT, "f"},
		{token.ARROW, "->"},
		{token.TYPENAME, "Real"},
		{token.CHAR, ":"},
		{token.IDENT, "c"},
		{token.IDENT, "x"},
		{token.CHAR, "*"},
		{token.NUMBER, "2.5"},
		{token.CHAR, "+"},
		{token.IDENT, "n"},
		{token.CHAR, ";"},
		{token.EXTERN, "extern"},
		{token.TYPENAME, "Real"},
		{token.ARROW, "->"},
		{token.IDENT, "sin"},
		{token.ARROW, "->"},
		{token.TYPENAME, "Real"},
		{token.IDENT, "v"},
		{token.CHAR, "!"},
		{token.CHAR, "<"},
		{token.NUMBER, "4"},
		{token.CHAR, ">"},
		{token.IDENT, "a"},
		{token.CHAR, "!"},
		{token.CHAR, "["},
		{token.NUMBER, "8"},
		{token.CHAR, "]"},
		{token.CHAR, "$"},
		{token.IDENT, "x"},
		{token.IDENT, "g"},
		{token.CHAR, "("},
		{token.CHAR, ")"},
		{token.IDENT, "t"},
		{token.CHAR, "<"},
		{token.TYPENAME, "Real"},
		{token.CHAR, ">"},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestMinusIsNotArrow(t *testing.T) {
	checkInput(t, "a - b -> c", []Test{
		{token.IDENT, "a"},
		{token.CHAR, "-"},
		{token.IDENT, "b"},
		{token.ARROW, "->"},
		{token.IDENT, "c"},
		{token.EOF, ""},
	})
}

func TestNumbers(t *testing.T) {
	checkInput(t, "12 .5 3. 1.2.3", []Test{
		{token.NUMBER, "12"},
		{token.NUMBER, ".5"},
		{token.NUMBER, "3."},
		{token.NUMBER, "1.2.3"},
		{token.EOF, ""},
	})
}

func TestPositions(t *testing.T) {
	l := New("pos.phi", "a\n  b # c\n#d\n   e")

	a := l.NextToken()
	b := l.NextToken()
	e := l.NextToken()

	assert.Equal(t, 1, a.Line)
	assert.Equal(t, 1, a.Column)
	assert.Equal(t, 2, b.Line)
	assert.Equal(t, 3, b.Column)
	assert.Equal(t, 4, e.Line)
	assert.Equal(t, 4, e.Column)
	assert.Equal(t, "pos.phi:4:4", e.Pos())
	assert.Equal(t, token.EOF, l.NextToken().Type)
}
