package parser

import (
	"testing"

	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/lexer"
	"github.com/phi-lang/phi/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(t.Name(), src))
	program := p.ParseProgram()
	require.Empty(t, p.Errors())
	return program
}

// anonBody returns the body of the single anonymous top-level expression in src.
func anonBody(t *testing.T, src string) ast.Expr {
	t.Helper()
	program := mustParse(t, src)
	require.Len(t, program.Statements, 1)
	fn, ok := program.Statements[0].(*ast.Func)
	require.True(t, ok, "expected *ast.Func, got %T", program.Statements[0])
	assert.Equal(t, "", fn.Proto.Name)
	return fn.Body
}

func parseErrors(t *testing.T, src string) []*token.CompileError {
	t.Helper()
	p := New(lexer.New(t.Name(), src))
	p.ParseProgram()
	require.NotEmpty(t, p.Errors())
	return p.Errors()
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"1 + 2 + 3", "((1 + 2) + 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"a < b + c * d", "(a < (b + (c * d)))"},
		{"a * b % c", "((a * b) % c)"},
		{"a = b < c", "((a = b) < c)"},
		{"a + b * c - d", "((a + (b * c)) - d)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"2.5 / x", "(2.5 / x)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, anonBody(t, tt.input).String())
		})
	}
}

func TestLiterals(t *testing.T) {
	body := anonBody(t, "7")
	lit, ok := body.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.Int, lit.Type)
	assert.EqualValues(t, 7, lit.Int)

	lit = anonBody(t, "0.25").(*ast.Literal)
	assert.Equal(t, ast.Real, lit.Type)
	assert.Equal(t, 0.25, lit.Real)

	lit = anonBody(t, "true").(*ast.Literal)
	assert.Equal(t, ast.Bool, lit.Type)
	assert.True(t, lit.Bool())
}

func TestIdentifierFlags(t *testing.T) {
	tests := []struct {
		input string
		flag  ast.IdFlag
		size  int
	}{
		{"x", ast.IdAny, 0},
		{"$x", ast.IdVar, 0},
		{"x()", ast.IdFunc, 0},
		{"x!", ast.IdNew, 0},
		{"x!<4>", ast.IdVec, 4},
		{"x![16]", ast.IdArray, 16},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, ok := anonBody(t, tt.input).(*ast.Ident)
			require.True(t, ok)
			assert.Equal(t, "x", id.Name)
			assert.Equal(t, tt.flag, id.Flag)
			assert.Equal(t, tt.size, id.Size)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestCommand(t *testing.T) {
	body := anonBody(t, "a b + 1 f")
	cmd, ok := body.(*ast.Command)
	require.True(t, ok, "got %T", body)
	require.Len(t, cmd.Items, 3)
	assert.Equal(t, "a", cmd.Items[0].String())
	assert.Equal(t, "(b + 1)", cmd.Items[1].String())
	assert.Equal(t, "f", cmd.Items[2].String())

	// A parenthesised command stays one item.
	cmd = anonBody(t, "(a b g) c f").(*ast.Command)
	require.Len(t, cmd.Items, 3)
	_, nested := cmd.Items[0].(*ast.Command)
	assert.True(t, nested)
}

func TestCommandMustEndWithIdentifier(t *testing.T) {
	errs := parseErrors(t, "a b 1")
	assert.Equal(t, token.ErrCommandEnd, errs[0].Code)
	assert.Contains(t, errs[0].Msg, "must end with a function call or an assignment")
}

func TestSequence(t *testing.T) {
	body := anonBody(t, "5 x! : x + 1 y! : y")
	assert.Equal(t, "((5 x! : (x + 1) y!) : y)", body.String())
	seq := body.(*ast.Binary)
	assert.Equal(t, ast.OpSeq, seq.Op)
}

func TestConditionalAndLoop(t *testing.T) {
	cond, ok := anonBody(t, "x < 0 ? { 0 - x } | { x }").(*ast.Cond)
	require.True(t, ok)
	assert.Equal(t, "(x < 0)", cond.Cond.String())
	assert.Equal(t, "(0 - x)", cond.True.String())
	assert.Equal(t, "x", cond.False.String())

	cond = anonBody(t, "c ? { 1 }").(*ast.Cond)
	assert.Nil(t, cond.False)

	loop, ok := anonBody(t, "i < n @ { i + 1 store i } | {}").(*ast.Loop)
	require.True(t, ok)
	assert.Equal(t, "(i < n)", loop.Cond.String())
	assert.Equal(t, "(i + 1) store i", loop.Body.String())
	assert.Nil(t, loop.Else)
}

func TestAccess(t *testing.T) {
	a, ok := anonBody(t, "v[i + 1]").(*ast.Access)
	require.True(t, ok)
	assert.Equal(t, "v", a.Name)
	assert.Equal(t, ast.IdAny, a.Flag)
	assert.Equal(t, "(i + 1)", a.Index.String())

	a = anonBody(t, "$v[2]").(*ast.Access)
	assert.Equal(t, ast.IdVar, a.Flag)

	cmd := anonBody(t, "1.5 store v[0]").(*ast.Command)
	_, ok = cmd.Last().(*ast.Access)
	assert.True(t, ok)
}

func TestTemplateRequest(t *testing.T) {
	cmd := anonBody(t, "2.0 sq<Real>").(*ast.Command)
	tpl, ok := cmd.Last().(*ast.Template)
	require.True(t, ok)
	assert.Equal(t, "sq", tpl.Name)
	assert.Equal(t, "Real", tpl.Type.String())

	// Without a type name after '<' it is a comparison.
	assert.Equal(t, "(sq < x)", anonBody(t, "sq < x").String())
}

func TestPrototype(t *testing.T) {
	program := mustParse(t, `def Real:a Int:b -> f -> Real:c a + b;`)
	require.Len(t, program.Statements, 1)
	fn := program.Statements[0].(*ast.Func)
	p := fn.Proto

	assert.Equal(t, "f", p.Name)
	require.Len(t, p.Inputs, 2)
	assert.Equal(t, "a", p.Inputs[0].Name)
	assert.Equal(t, ast.Real, p.Inputs[0].Type.Base())
	assert.Equal(t, "b", p.Inputs[1].Name)
	assert.Equal(t, ast.Int, p.Inputs[1].Type.Base())
	require.Len(t, p.Outputs, 1)
	assert.Equal(t, "c", p.Outputs[0].Name)
	assert.False(t, p.IsTemplate)
	assert.Equal(t, "(a + b)", fn.Body.String())
}

func TestPrototypeModifiersAndOutputs(t *testing.T) {
	program := mustParse(t, `def Real<4>:v Int[8]:xs -> g -> Real Int  v xs h;`)
	p := program.Statements[0].(*ast.Func).Proto
	assert.Equal(t, 4, p.Inputs[0].Type.VecSize())
	assert.Equal(t, 8, p.Inputs[1].Type.ArrayLen())
	require.Len(t, p.Outputs, 2)
	assert.Equal(t, "", p.Outputs[0].Name)
}

func TestExtern(t *testing.T) {
	program := mustParse(t, "extern Real Real -> pow -> Real\nextern -> now -> Int")
	require.Len(t, program.Statements, 2)

	pow, ok := program.Statements[0].(*ast.Proto)
	require.True(t, ok)
	assert.Equal(t, "pow", pow.Name)
	assert.Len(t, pow.Inputs, 2)
	assert.Equal(t, "", pow.Inputs[0].Name)

	now := program.Statements[1].(*ast.Proto)
	assert.Empty(t, now.Inputs)
}

func TestTemplatePrototype(t *testing.T) {
	program := mustParse(t, "def Any:x -> twice -> Any x + x; extern Any -> neg -> Any")
	assert.True(t, program.Statements[0].(*ast.Func).Proto.IsTemplate)
	assert.True(t, program.Statements[1].(*ast.Proto).IsTemplate)
}

func TestPrototypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  token.Code
	}{
		{"input without arrow", "def Real:a f -> Real a;", token.ErrProtoNoArrow},
		{"missing name", "def Real:a -> -> Real a;", token.ErrProtoNoName},
		{"missing second arrow", "def Real:a -> f Real a;", token.ErrProtoNoArrow2},
		{"no outputs", "def Real:a -> f -> a;", token.ErrProtoNoOutputs},
		{"unnamed input", "def Real -> f -> Real 1.0;", token.ErrProtoArgName},
		{"vector and array", "extern Real<2>[3] -> f -> Real;", token.ErrProtoVecAndArray},
		{"vector too wide", "extern Real<16> -> f -> Real;", token.ErrBadTypeSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseErrors(t, tt.input)
			assert.Equal(t, tt.code, errs[0].Code, errs[0].Error())
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	errs := parseErrors(t, "(1 + 2;")
	assert.Equal(t, token.ErrExpectedRParen, errs[0].Code)

	errs = parseErrors(t, "v[1;")
	assert.Equal(t, token.ErrExpectedRBrack, errs[0].Code)

	errs = parseErrors(t, "c ? 1;")
	assert.Equal(t, token.ErrExpectedBlock, errs[0].Code)

	errs = parseErrors(t, "1.2.3;")
	assert.Equal(t, token.ErrBadNumber, errs[0].Code)

	errs = parseErrors(t, "$ 1;")
	assert.Equal(t, token.ErrExpectedIdent, errs[0].Code)
	assert.Equal(t, "Error 0x1006: expected identifier after '$', got \"1\" (TestSyntaxErrors:1:3)", errs[0].Error())
}

func TestUnexpectedEndOfInput(t *testing.T) {
	p := New(lexer.New("eof", "def Real:x -> f -> Real x +"))
	p.ParseProgram()
	require.NotEmpty(t, p.Errors())
	assert.Equal(t, token.ErrUnexpectedEOF, p.Errors()[0].Code)
	assert.True(t, IsIncomplete(p.Errors()))

	p = New(lexer.New("eof", "(1 + )"))
	p.ParseProgram()
	assert.False(t, IsIncomplete(p.Errors()))
}

func TestRecoveryAfterError(t *testing.T) {
	src := `def Real:a -> -> Real a;
def Real:x -> sq -> Real x * x;
) ) ;
2.0 sq`
	p := New(lexer.New("recover", src))
	program := p.ParseProgram()

	require.Len(t, p.Errors(), 2)
	assert.Equal(t, token.ErrProtoNoName, p.Errors()[0].Code)
	assert.Equal(t, token.ErrUnexpectedToken, p.Errors()[1].Code)

	require.Len(t, program.Statements, 2)
	assert.Equal(t, "sq", program.Statements[0].(*ast.Func).Proto.Name)
	assert.Equal(t, "2 sq", program.Statements[1].(*ast.Func).Body.String())
}

func TestEmptyStatements(t *testing.T) {
	program := mustParse(t, ";;; 1 ;;")
	assert.Len(t, program.Statements, 1)
}
