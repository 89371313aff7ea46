package compiler

import (
	"fmt"

	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/token"
	"tinygo.org/x/go-llvm"
)

const anonPrefix = "__anon_expr"

func (c *Compiler) nextAnonName() string {
	name := fmt.Sprintf("%s%d", anonPrefix, c.anonCounter)
	c.anonCounter++
	return name
}

// signature resolves the parameter and output types of p.
func (c *Compiler) signature(p *ast.Proto) (Func, error) {
	sig := Func{Name: p.Name, Params: make([]Type, len(p.Inputs)), OutTypes: make([]Type, len(p.Outputs))}
	for i, in := range p.Inputs {
		t, err := c.fromTag(in.Type)
		if err != nil {
			return sig, token.Errorf(p.Token, token.ErrUnknownType, "input %d of %q: %v", i, p.Name, err)
		}
		sig.Params[i] = t
	}
	for i, out := range p.Outputs {
		t, err := c.fromTag(out.Type)
		if err != nil {
			return sig, token.Errorf(p.Token, token.ErrUnknownType, "output %d of %q: %v", i, p.Name, err)
		}
		sig.OutTypes[i] = t
	}
	return sig, nil
}

func (c *Compiler) getReturnStruct(name string, outputTypes []Type) llvm.Type {
	retName := name + "_ret"
	fields := make([]llvm.Type, len(outputTypes))
	for i, t := range outputTypes {
		fields[i] = c.mapToLLVMType(t)
	}

	if named := c.Module.GetTypeByName(retName); !named.IsNil() {
		if sameFields(named.StructElementTypes(), fields) {
			return named
		}
		return c.Context.StructType(fields, false)
	}
	st := c.Context.StructCreateNamed(retName)
	st.StructSetBody(fields, false)
	return st
}

func sameFields(a, b []llvm.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Compiler) getFuncType(sig Func) llvm.Type {
	params := make([]llvm.Type, len(sig.Params))
	for i, t := range sig.Params {
		params[i] = c.mapToLLVMType(t)
	}

	var ret llvm.Type
	switch len(sig.OutTypes) {
	case 0:
		ret = c.Context.VoidType()
	case 1:
		ret = c.mapToLLVMType(sig.OutTypes[0])
	default:
		ret = c.getReturnStruct(sig.Name, sig.OutTypes)
	}
	return llvm.FunctionType(ret, params, false)
}

// compileProto declares the function described by p, or returns the
// existing one when its signature agrees.
func (c *Compiler) compileProto(p *ast.Proto) (*Symbol, error) {
	sig, err := c.signature(p)
	if err != nil {
		return nil, err
	}

	if fn := c.Module.NamedFunction(p.Name); !fn.IsNil() {
		if fn.ParamsCount() != len(p.Inputs) {
			return nil, token.Errorf(p.Token, token.ErrArgCount, "%q is declared with %d inputs, not %d", p.Name, fn.ParamsCount(), len(p.Inputs))
		}
		if existing := typeFromLLVM(fn.GlobalValueType().ReturnType()); !TypeEqual(existing, returnType(sig)) ||
			!paramsMatch(fn, sig.Params) {
			return nil, token.Errorf(p.Token, token.ErrProtoConflict, "conflicting declaration of %q", p.Name)
		}
		return &Symbol{Val: fn, Type: sig}, nil
	}

	fn := llvm.AddFunction(c.Module, p.Name, c.getFuncType(sig))
	for i, in := range p.Inputs {
		if in.Name != "" {
			fn.Param(i).SetName(in.Name)
		}
	}
	return &Symbol{Val: fn, Type: sig}, nil
}

func returnType(sig Func) Type {
	switch len(sig.OutTypes) {
	case 0:
		return Unit{}
	case 1:
		return sig.OutTypes[0]
	}
	return Tuple{Elems: sig.OutTypes}
}

func paramsMatch(fn llvm.Value, params []Type) bool {
	for i, pt := range fn.GlobalValueType().ParamTypes() {
		if !TypeEqual(typeFromLLVM(pt), params[i]) {
			return false
		}
	}
	return true
}

// frame is the lowering state of an enclosing function, saved while a
// nested definition (a template instance) is lowered.
type frame struct {
	block  llvm.BasicBlock
	scopes *ScopeTable
	values *ValueStack
}

func (c *Compiler) enterFrame() frame {
	f := frame{block: c.builder.GetInsertBlock(), scopes: c.scopes, values: c.values}
	c.scopes = NewScopeTable()
	c.values = NewValueStack()
	return f
}

func (c *Compiler) leaveFrame(f frame) {
	c.scopes, c.values = f.scopes, f.values
	if f.block.IsNil() {
		c.builder.ClearInsertionPoint()
		return
	}
	c.builder.SetInsertPointAtEnd(f.block)
}

func (c *Compiler) compileFunc(f *ast.Func) (*Symbol, error) {
	proto := f.Proto
	if proto.Name == "" {
		anon := *proto
		anon.Name = c.nextAnonName()
		proto = &anon
	}

	existing := c.Module.NamedFunction(proto.Name)
	declared := !existing.IsNil()
	if declared && existing.BasicBlocksCount() != 0 {
		return nil, token.Errorf(proto.Token, token.ErrRedefinition, "redefinition of function %q", proto.Name)
	}

	sym, err := c.compileProto(proto)
	if err != nil {
		return nil, err
	}
	fn := sym.Val
	sig := sym.Type.(Func)

	saved := c.enterFrame()
	defer c.leaveFrame(saved)

	entry := c.Context.AddBasicBlock(fn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	if err = c.bindParams(fn, proto, sig); err == nil {
		var body *Symbol
		if body, err = c.codegen(f.Body, true); err == nil {
			err = c.emitReturn(proto, fn, body, sig.OutTypes)
		}
	}
	if err == nil && llvm.VerifyFunction(fn, llvm.ReturnStatusAction) != nil {
		err = token.Errorf(proto.Token, token.ErrVerify, "function %q failed verification", proto.Name)
	}
	if err != nil {
		c.discardFunction(fn, declared)
		return nil, err
	}
	return sym, nil
}

// bindParams copies every parameter into a local slot. The value stack hands
// arguments over last first, so parameters are bound in reverse.
func (c *Compiler) bindParams(fn llvm.Value, proto *ast.Proto, sig Func) error {
	for i := len(proto.Inputs) - 1; i >= 0; i-- {
		name, t := proto.Inputs[i].Name, sig.Params[i]
		ptr, err := c.createEntryBlockAlloca(c.mapToLLVMType(t), name)
		if err != nil {
			return token.Errorf(proto.Token, token.ErrNoEnclosingFunc, "%v", err)
		}
		c.createStore(fn.Param(i), ptr, t)
		c.scopes.Put(name, &Symbol{Val: ptr, Type: Ptr{Elem: t}})
	}
	return nil
}

// emitReturn returns the values left pending by the body. A single output
// falls back to the body's own value when nothing is pending.
func (c *Compiler) emitReturn(proto *ast.Proto, fn llvm.Value, body *Symbol, outs []Type) error {
	defer c.values.Clear()

	switch len(outs) {
	case 0:
		c.builder.CreateRetVoid()
		return nil
	case 1:
		v, ok := c.values.Pop()
		if !ok {
			if isUnit(body) || body.Type.Kind() == TupleKind {
				return token.Errorf(proto.Token, token.ErrNoReturnValue, "function %q produces no value to return", proto.Name)
			}
			v = body
		}
		rv, err := c.coerce(v, outs[0])
		if err != nil {
			return token.Errorf(proto.Token, token.ErrReturnType, "return value of %q: %v", proto.Name, err)
		}
		c.builder.CreateRet(rv.Val)
		return nil
	}

	if c.values.Len() < len(outs) {
		return token.Errorf(proto.Token, token.ErrReturnCount, "not enough return values specified for %q: want %d, have %d", proto.Name, len(outs), c.values.Len())
	}
	vals := make([]llvm.Value, len(outs))
	for i := len(outs) - 1; i >= 0; i-- {
		v, _ := c.values.Pop()
		rv, err := c.coerce(v, outs[i])
		if err != nil {
			return token.Errorf(proto.Token, token.ErrReturnType, "return value %d of %q: %v", i, proto.Name, err)
		}
		vals[i] = rv.Val
	}
	agg := llvm.Undef(fn.GlobalValueType().ReturnType())
	for i, v := range vals {
		agg = c.builder.CreateInsertValue(agg, v, i, "ret")
	}
	c.builder.CreateRet(agg)
	return nil
}

// discardFunction drops the body of a failed definition. A function that was
// only created for it goes as well, unless something already refers to it.
func (c *Compiler) discardFunction(fn llvm.Value, keepDeclaration bool) {
	c.builder.ClearInsertionPoint()

	var (
		insts  []llvm.Value
		blocks []llvm.BasicBlock
	)
	for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		blocks = append(blocks, bb)
		for inst := bb.FirstInstruction(); !inst.IsNil(); inst = llvm.NextInstruction(inst) {
			insts = append(insts, inst)
		}
	}
	for _, inst := range insts {
		if inst.Type().TypeKind() != llvm.VoidTypeKind {
			inst.ReplaceAllUsesWith(llvm.Undef(inst.Type()))
		}
	}
	for _, inst := range insts {
		inst.EraseFromParentAsInstruction()
	}
	for _, bb := range blocks {
		bb.EraseFromParent()
	}

	if !keepDeclaration && fn.FirstUse().IsNil() {
		fn.EraseFromParentAsFunction()
	}
}

// callFunction pops one argument per parameter, last parameter first, and
// pushes whatever the call returns. Several outputs are pushed one by one in
// declaration order.
func (c *Compiler) callFunction(tok token.Token, name string, fn llvm.Value) (*Symbol, error) {
	fnType := fn.GlobalValueType()
	params := fnType.ParamTypes()
	if c.values.Len() < len(params) {
		return nil, token.Errorf(tok, token.ErrInsufficientArgs, "insufficient number of arguments given to function %q: want %d, have %d", name, len(params), c.values.Len())
	}

	args := make([]llvm.Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		s, _ := c.values.Pop()
		v, err := c.coerce(s, typeFromLLVM(params[i]))
		if err != nil {
			return nil, token.Errorf(tok, token.ErrArgType, "argument %d of %q: %v", i, name, err)
		}
		args[i] = v.Val
	}

	retType := typeFromLLVM(fnType.ReturnType())
	if retType.Kind() == UnitKind {
		c.builder.CreateCall(fnType, fn, args, "")
		return unit(), nil
	}

	call := c.builder.CreateCall(fnType, fn, args, "calltmp")
	res := &Symbol{Val: call, Type: retType}
	if tup, ok := retType.(Tuple); ok {
		for i, et := range tup.Elems {
			c.values.Push(&Symbol{Val: c.builder.CreateExtractValue(call, i, "ret"), Type: et})
		}
		return res, nil
	}
	c.values.Push(res)
	return res, nil
}
