package compiler

import (
	"strings"
	"testing"

	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

func TestMangle(t *testing.T) {
	vec, err := ast.Scalar(ast.Real).WithVector(4)
	require.NoError(t, err)

	assert.Equal(t, "twice.Real", Mangle("twice", ast.Scalar(ast.Real)))
	assert.Equal(t, "twice.Int", Mangle("twice", ast.Scalar(ast.Int)))
	assert.Equal(t, "dot.Real<4>", Mangle("dot", vec))
}

// instances counts the functions of mod instantiated from template name.
func instances(mod llvm.Module, name string) int {
	n := 0
	for fn := mod.FirstFunction(); !fn.IsNil(); fn = llvm.NextFunction(fn) {
		if strings.HasPrefix(fn.Name(), name+PREFIX) {
			n++
		}
	}
	return n
}

func TestTemplateMemoization(t *testing.T) {
	c := mustCompile(t, `def Any:x -> twice -> Any x + x;`)
	assert.Equal(t, 1, c.Templates.Len())
	assert.True(t, c.Module.NamedFunction("twice").IsNil())

	first, err := c.TryGetTemplate("twice", ast.Scalar(ast.Real))
	require.NoError(t, err)
	require.False(t, first.IsNil())
	ir := c.GenerateIR()
	assert.Equal(t, 1, strings.Count(ir, "define double @twice.Real(double %x)"))
	assert.True(t, first.C == c.Module.NamedFunction(Mangle("twice", ast.Scalar(ast.Real))).C)
	assert.Equal(t, 1, instances(c.Module, "twice"))

	second, err := c.TryGetTemplate("twice", ast.Scalar(ast.Real))
	require.NoError(t, err)
	assert.True(t, first.C == second.C)
	assert.Equal(t, ir, c.GenerateIR(), "a repeated request must not emit anything")
	assert.Equal(t, 1, instances(c.Module, "twice"))

	other, err := c.TryGetTemplate("twice", ast.Scalar(ast.Int))
	require.NoError(t, err)
	assert.True(t, first.C != other.C)
	assert.Contains(t, c.GenerateIR(), "define i32 @twice.Int(i32 %x)")
	assert.Equal(t, 2, instances(c.Module, "twice"))

	miss, err := c.TryGetTemplate("nope", ast.Scalar(ast.Real))
	require.NoError(t, err)
	assert.True(t, miss.IsNil())
}

func TestTemplateInstantiationFromSource(t *testing.T) {
	c := mustCompile(t, `
def Any:x -> twice -> Any x + x;
def Real:y -> quad -> Real  y twice<Real> twice<Real>;
def Any:x -> quad2 -> Any  x twice<Any> twice<Any>;
2 quad2<Int>;
`)
	ir := c.GenerateIR()
	assert.Equal(t, 1, strings.Count(ir, "define double @twice.Real("))
	assert.Equal(t, 2, strings.Count(ir, "call double @twice.Real("))
	assert.Contains(t, ir, "define i32 @quad2.Int(i32 %x)")
	assert.Equal(t, 2, strings.Count(ir, "call i32 @twice.Int("))
	assert.Contains(t, ir, "call i32 @quad2.Int(i32 2)")
}

func TestTemplateVectorInstance(t *testing.T) {
	c := mustCompile(t, `
def Any<2>:v -> swapsum -> Any  v[0] + v[1];
def Real<2>:p -> s -> Real  p swapsum<Real>;
`)
	ir := c.GenerateIR()
	assert.Contains(t, ir, "define double @swapsum.Real(<2 x double> %v)")
}

func TestTemplateDeclareAndDefine(t *testing.T) {
	c, errs := compileSrc(t, `
extern Any -> id -> Any;
extern Any Any -> id -> Any;
def Any:x -> id -> Any x;
def Any:x -> id -> Any x + x;
`)
	require.Equal(t, []token.Code{token.ErrTemplateRedefined}, codes(errs))
	assert.Equal(t, 1, c.Templates.Len())
	assert.True(t, c.Templates.IsDefined("id"))

	fn, err := c.TryGetTemplate("id", ast.Scalar(ast.Bool))
	require.NoError(t, err)
	assert.Contains(t, fn.String(), "ret i1")
	assert.NotContains(t, fn.String(), "xor")
}

func TestTemplateDeclarationOnly(t *testing.T) {
	c := mustCompile(t, `extern Any -> neg -> Any;`)
	fn, err := c.TryGetTemplate("neg", ast.Scalar(ast.Real))
	require.NoError(t, err)
	assert.Equal(t, 0, fn.BasicBlocksCount())
	assert.Contains(t, c.GenerateIR(), "declare double @neg.Real(double)")
}

func TestTemplateErrors(t *testing.T) {
	_, errs := compileSrc(t, `def Real:x -> bad -> Real  x twice<Any>;`)
	assert.Equal(t, []token.Code{token.ErrUnknownType}, codes(errs))

	_, errs = compileSrc(t, `def Real:x -> bad -> Real  x missing<Real>;`)
	assert.Equal(t, []token.Code{token.ErrUnresolved}, codes(errs))

	// A failing instance is reported where it is requested and leaves no
	// function behind.
	c, errs := compileSrc(t, `
def Any:x -> broken -> Any  x nope;
def Real:y -> user -> Real  y broken<Real>;
`)
	assert.Equal(t, []token.Code{token.ErrUnresolved}, codes(errs))
	assert.True(t, c.Module.NamedFunction("broken.Real").IsNil())
	assert.True(t, c.Module.NamedFunction("user").IsNil())
	require.NoError(t, llvm.VerifyModule(c.Module, llvm.ReturnStatusAction))
}

func TestTemplatesClear(t *testing.T) {
	reg := NewTemplates()
	body := &ast.Ident{Name: "x"}
	f := &ast.Func{Proto: &ast.Proto{Name: "t", IsTemplate: true}, Body: body}

	assert.True(t, reg.Declare(&ast.Proto{Name: "t", IsTemplate: true}))
	assert.False(t, reg.Declare(&ast.Proto{Name: "t", IsTemplate: true}))
	require.NoError(t, reg.Define(f))
	assert.True(t, reg.IsDefined("t"))

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, f.Body)
}
