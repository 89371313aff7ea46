package compiler

import (
	"errors"
	"fmt"
	"io"

	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/config"
	"github.com/phi-lang/phi/token"
	"tinygo.org/x/go-llvm"
)

// StoreKeyword commits every pending value so that the identifiers after it
// assign instead of read.
const StoreKeyword = "store"

type Compiler struct {
	Context   llvm.Context
	Module    llvm.Module
	builder   llvm.Builder
	Templates *Templates
	Errors    []*token.CompileError
	// Diag receives one line per reported error. Nil discards them.
	Diag io.Writer

	scopes       *ScopeTable
	values       *ValueStack
	templateType ast.TypeTag // concrete type of the template instance being lowered
	anonCounter  int
}

func NewCompiler(ctx llvm.Context, moduleName string) *Compiler {
	if moduleName == "" {
		moduleName = config.DefaultModule
	}
	return &Compiler{
		Context:   ctx,
		Module:    ctx.NewModule(moduleName),
		builder:   ctx.NewBuilder(),
		Templates: NewTemplates(),
		Errors:    []*token.CompileError{},
		scopes:    NewScopeTable(),
		values:    NewValueStack(),
	}
}

// Compile lowers every top-level item of program and returns the errors it
// reported. A failing item does not stop the ones after it.
func (c *Compiler) Compile(program *ast.Program) []*token.CompileError {
	start := len(c.Errors)
	for _, stmt := range program.Statements {
		c.CompileTopLevel(stmt)
	}
	return c.Errors[start:]
}

// CompileTopLevel lowers one definition, declaration or anonymous expression
// and returns the function it produced. Template definitions and
// declarations are only registered, and return a nil value.
func (c *Compiler) CompileTopLevel(e ast.Expr) (llvm.Value, error) {
	var (
		sym *Symbol
		err error
	)
	switch n := e.(type) {
	case *ast.Func:
		if n.Proto.IsTemplate {
			err = c.Templates.Define(n)
		} else {
			sym, err = c.codegen(n, false)
		}
	case *ast.Proto:
		if n.IsTemplate {
			c.Templates.Declare(n)
		} else {
			sym, err = c.codegen(n, false)
		}
	default:
		err = token.Errorf(e.Tok(), token.ErrUnknownNode, "expected a definition, declaration or expression at top level, got %T", e)
	}

	c.builder.ClearInsertionPoint()
	c.scopes.Reset()
	c.values.Clear()

	if err != nil {
		c.report(err)
		return llvm.Value{}, err
	}
	if sym == nil {
		return llvm.Value{}, nil
	}
	return sym.Val, nil
}

func (c *Compiler) report(err error) {
	var ce *token.CompileError
	if !errors.As(err, &ce) {
		ce = &token.CompileError{Code: token.ErrUnknownNode, Msg: err.Error()}
	}
	c.Errors = append(c.Errors, ce)
	if c.Diag != nil {
		fmt.Fprintln(c.Diag, ce.Error())
	}
}

// codegen lowers e and returns its value, or a unit symbol for constructs
// that produce none. With newScope set, names declared while lowering e are
// forgotten afterwards.
func (c *Compiler) codegen(e ast.Expr, newScope bool) (*Symbol, error) {
	if newScope {
		c.scopes.Enter()
		defer c.scopes.Exit()
	}

	switch n := e.(type) {
	case nil:
		return unit(), nil
	case *ast.Literal:
		return c.compileLiteral(n), nil
	case *ast.Ident:
		return c.compileIdent(n)
	case *ast.Access:
		return c.compileAccess(n)
	case *ast.Binary:
		return c.compileBinary(n)
	case *ast.Proto:
		return c.compileProto(n)
	case *ast.Func:
		return c.compileFunc(n)
	case *ast.Command:
		return c.compileCommand(n)
	case *ast.Cond:
		return c.compileCond(n)
	case *ast.Loop:
		return c.compileLoop(n)
	case *ast.Template:
		return c.compileTemplate(n)
	}
	return nil, token.Errorf(e.Tok(), token.ErrUnknownNode, "cannot lower %T", e)
}

// isolated lowers e against an empty value stack. Whatever e leaves behind is
// dropped and the enclosing stack is restored.
func (c *Compiler) isolated(e ast.Expr, newScope bool) (*Symbol, error) {
	saved := c.values
	c.values = NewValueStack()
	defer func() { c.values = saved }()
	return c.codegen(e, newScope)
}

func (c *Compiler) compileLiteral(l *ast.Literal) *Symbol {
	var s *Symbol
	switch l.Type {
	case ast.Bool:
		s = &Symbol{Val: llvm.ConstInt(c.Context.Int1Type(), uint64(l.Int), false), Type: I1}
	case ast.Int:
		s = &Symbol{Val: c.ConstI32(l.Int), Type: I32}
	default:
		s = &Symbol{Val: c.ConstF64(l.Real), Type: F64}
	}
	c.values.Push(s)
	return s
}

func (c *Compiler) compileBinary(b *ast.Binary) (*Symbol, error) {
	left, err := c.isolated(b.LHS, false)
	if err != nil {
		return nil, err
	}
	// The value of a sequence is its right side, lowered in place so that
	// whatever it leaves pending stays visible to the enclosing command.
	if b.Op == ast.OpSeq {
		return c.codegen(b.RHS, false)
	}

	right, err := c.isolated(b.RHS, false)
	if err != nil {
		return nil, err
	}
	if isUnit(left) || isUnit(right) {
		return nil, token.Errorf(b.Token, token.ErrOperandTypes, "operator %q needs a value on both sides", b.Op)
	}

	res, err := c.binaryOp(b.Token, b.Op, left, right)
	if err != nil {
		return nil, err
	}
	c.values.Push(res)
	return res, nil
}

func (c *Compiler) compileCommand(cmd *ast.Command) (*Symbol, error) {
	if !ast.EndsCommand(cmd.Last()) {
		return nil, token.Errorf(cmd.Token, token.ErrCommandNotCall, "a command must end with a function call or an assignment")
	}
	res := unit()
	for i := 0; i < len(cmd.Items); {
		var err error
		if run := newIdentRun(cmd.Items[i:]); len(run) > 1 {
			if res, err = c.declareVariables(run); err != nil {
				return nil, err
			}
			i += len(run)
			continue
		}
		if res, err = c.codegen(cmd.Items[i], false); err != nil {
			return nil, err
		}
		i++
	}
	return res, nil
}

// newIdentRun returns the leading identifiers of items that declare plain
// new variables.
func newIdentRun(items []ast.Expr) []*ast.Ident {
	var run []*ast.Ident
	for _, item := range items {
		id, ok := item.(*ast.Ident)
		if !ok || id.Flag != ast.IdNew {
			break
		}
		run = append(run, id)
	}
	return run
}

// createEntryBlockAlloca places a stack slot at the top of the current
// function so that it is allocated once per call, however often the code
// that declares it runs.
func (c *Compiler) createEntryBlockAlloca(ty llvm.Type, name string) (llvm.Value, error) {
	current := c.builder.GetInsertBlock()
	if current.IsNil() {
		return llvm.Value{}, fmt.Errorf("cannot declare %q outside a function", name)
	}
	entry := current.Parent().EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}

	alloca := c.builder.CreateAlloca(ty, name)
	c.builder.SetInsertPointAtEnd(current)
	return alloca, nil
}

func (c *Compiler) createStore(val llvm.Value, ptr llvm.Value, valType Type) llvm.Value {
	storeInst := c.builder.CreateStore(val, ptr)
	setInstAlignment(storeInst, valType)
	return storeInst
}

func (c *Compiler) createLoad(ptr llvm.Value, elemType Type, name string) llvm.Value {
	loadInst := c.builder.CreateLoad(c.mapToLLVMType(elemType), ptr, name)
	setInstAlignment(loadInst, elemType)
	return loadInst
}

// setInstAlignment sets the natural alignment of scalar loads and stores.
// Aggregates keep the target default.
func setInstAlignment(inst llvm.Value, t Type) {
	switch typ := t.(type) {
	case Int:
		if typ.Width == 1 {
			inst.SetAlignment(1)
			return
		}
		inst.SetAlignment(int(typ.Width >> 3))
	case Float:
		inst.SetAlignment(int(typ.Width >> 3))
	}
}

func (c *Compiler) ConstI32(v int64) llvm.Value {
	return llvm.ConstInt(c.Context.Int32Type(), uint64(v), true)
}

func (c *Compiler) ConstF64(v float64) llvm.Value {
	return llvm.ConstFloat(c.Context.DoubleType(), v)
}

// constSplat returns a constant of type t with every lane set to the
// scalar constant v.
func (c *Compiler) constSplat(t Type, v llvm.Value) llvm.Value {
	vec, ok := t.(Vector)
	if !ok {
		return v
	}
	lanes := make([]llvm.Value, vec.Size)
	for i := range lanes {
		lanes[i] = v
	}
	return llvm.ConstVector(lanes, false)
}

func (c *Compiler) constOne(t Type) llvm.Value {
	elem := elemOf(t)
	var one llvm.Value
	if isFloat(elem) {
		one = c.ConstF64(1)
	} else {
		one = llvm.ConstInt(c.mapToLLVMType(elem), 1, false)
	}
	return c.constSplat(t, one)
}

// CurrentScopeDepth is the nesting depth of the code being lowered.
func (c *Compiler) CurrentScopeDepth() int {
	return c.scopes.Depth()
}

func (c *Compiler) GenerateIR() string {
	return c.Module.String()
}

// Dispose releases the builder and the template registry. The module
// belongs to the context and goes away with it.
func (c *Compiler) Dispose() {
	c.builder.Dispose()
	c.Templates.Clear()
	c.scopes.Reset()
	c.values.Clear()
}
