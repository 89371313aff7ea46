package compiler

import (
	"strings"

	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/token"
	"tinygo.org/x/go-llvm"
)

// identAction is what an identifier does at the point it is lowered. It
// depends on the flag, the visible variables and the state of the value
// stack, so it is decided during lowering rather than parsing.
type identAction int

const (
	actCommit identAction = iota
	actDeclare
	actDeclareContainer
	actLoad
	actAssign
	actCall
)

type identRef struct {
	action identAction
	slot   *Symbol    // for actLoad and actAssign
	fn     llvm.Value // for actCall
}

func (c *Compiler) resolveIdent(tok token.Token, name string, flag ast.IdFlag) (identRef, error) {
	switch {
	case name == StoreKeyword && flag == ast.IdAny:
		return identRef{action: actCommit}, nil
	case flag == ast.IdNew:
		return identRef{action: actDeclare}, nil
	case flag == ast.IdVec || flag == ast.IdArray:
		return identRef{action: actDeclareContainer}, nil
	}

	if flag != ast.IdFunc {
		if slot, ok := c.scopes.Get(name); ok {
			if flag == ast.IdVar || !c.values.TopCommitted() {
				return identRef{action: actLoad, slot: slot}, nil
			}
			return identRef{action: actAssign, slot: slot}, nil
		}
		if flag == ast.IdVar {
			return identRef{}, token.Errorf(tok, token.ErrUnknownVariable, "unknown variable %q", name)
		}
	}

	fn := c.lookupFunction(name)
	if fn.IsNil() {
		return identRef{}, token.Errorf(tok, token.ErrUnresolved, "unresolved identifier %q", name)
	}
	return identRef{action: actCall, fn: fn}, nil
}

// lookupFunction finds a callable by source name. Anonymous expressions are
// not callable.
func (c *Compiler) lookupFunction(name string) llvm.Value {
	if strings.HasPrefix(name, anonPrefix) {
		return llvm.Value{}
	}
	return c.Module.NamedFunction(name)
}

func (c *Compiler) compileIdent(id *ast.Ident) (*Symbol, error) {
	ref, err := c.resolveIdent(id.Token, id.Name, id.Flag)
	if err != nil {
		return nil, err
	}

	switch ref.action {
	case actCommit:
		top, ok := c.values.Top()
		if !ok {
			return nil, token.Errorf(id.Token, token.ErrStoreNoValue, "nothing to store")
		}
		c.values.CommitAll()
		return top, nil
	case actDeclare:
		return c.declareVariable(id)
	case actDeclareContainer:
		return c.declareContainer(id)
	case actLoad:
		elem := ref.slot.Type.(Ptr).Elem
		s := &Symbol{Val: c.createLoad(ref.slot.Val, elem, id.Name), Type: elem}
		c.values.Push(s)
		return s, nil
	case actAssign:
		elem := ref.slot.Type.(Ptr).Elem
		val, _ := c.values.Pop()
		v, err := c.coerce(val, elem)
		if err != nil {
			return nil, token.Errorf(id.Token, token.ErrArgType, "cannot assign to %q: %v", id.Name, err)
		}
		c.createStore(v.Val, ref.slot.Val, elem)
		return v, nil
	default:
		return c.callFunction(id.Token, id.Name, ref.fn)
	}
}

func (c *Compiler) declareVariable(id *ast.Ident) (*Symbol, error) {
	val, ok := c.values.Pop()
	if !ok {
		return nil, token.Errorf(id.Token, token.ErrNoValue, "cannot assign variable %q without value", id.Name)
	}
	if err := c.bindVariable(id, val); err != nil {
		return nil, err
	}
	return val, nil
}

// declareVariables binds several new variables at once in source order: the
// first name takes the deepest of the values, the last name the top one.
// `7 divmod q! r!` binds q to the first output of divmod.
func (c *Compiler) declareVariables(ids []*ast.Ident) (*Symbol, error) {
	if have := c.values.Len(); have < len(ids) {
		id := ids[len(ids)-have-1]
		return nil, token.Errorf(id.Token, token.ErrNoValue, "cannot assign variable %q without value: %d names, %d values", id.Name, len(ids), have)
	}
	vals := make([]*Symbol, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		vals[i], _ = c.values.Pop()
	}
	for i, id := range ids {
		if err := c.bindVariable(id, vals[i]); err != nil {
			return nil, err
		}
	}
	return vals[len(vals)-1], nil
}

func (c *Compiler) bindVariable(id *ast.Ident, val *Symbol) error {
	ptr, err := c.createEntryBlockAlloca(c.mapToLLVMType(val.Type), id.Name)
	if err != nil {
		return token.Errorf(id.Token, token.ErrNoEnclosingFunc, "%v", err)
	}
	c.createStore(val.Val, ptr, val.Type)
	c.scopes.Put(id.Name, &Symbol{Val: ptr, Type: Ptr{Elem: val.Type}})
	return nil
}

// declareContainer declares a vector or array whose lanes all start as the
// popped value.
func (c *Compiler) declareContainer(id *ast.Ident) (*Symbol, error) {
	val, ok := c.values.Pop()
	if !ok {
		return nil, token.Errorf(id.Token, token.ErrNoValue, "cannot assign variable %q without value", id.Name)
	}
	if !isScalar(val.Type) {
		return nil, token.Errorf(id.Token, token.ErrContainerElem, "cannot build %s from %s, need a scalar", id, val.Type)
	}

	var ct Type
	if id.Flag == ast.IdVec {
		ct = Vector{Elem: val.Type, Size: id.Size}
	} else {
		ct = Array{Elem: val.Type, Len: id.Size}
	}
	ptr, err := c.createEntryBlockAlloca(c.mapToLLVMType(ct), id.Name)
	if err != nil {
		return nil, token.Errorf(id.Token, token.ErrNoEnclosingFunc, "%v", err)
	}

	switch t := ct.(type) {
	case Vector:
		c.createStore(c.splat(val, t.Size), ptr, ct)
	case Array:
		c.fillArray(ptr, t, val.Val)
	}
	c.scopes.Put(id.Name, &Symbol{Val: ptr, Type: Ptr{Elem: ct}})
	return val, nil
}

// splat builds a vector with every lane set to s.
func (c *Compiler) splat(s *Symbol, n int) llvm.Value {
	vec := llvm.Undef(llvm.VectorType(c.mapToLLVMType(s.Type), n))
	for i := 0; i < n; i++ {
		vec = c.builder.CreateInsertElement(vec, s.Val, c.ConstI32(int64(i)), "splat")
	}
	return vec
}

func (c *Compiler) compileAccess(a *ast.Access) (*Symbol, error) {
	idx, err := c.isolated(a.Index, false)
	if err != nil {
		return nil, err
	}
	if isUnit(idx) || !isInt(idx.Type) {
		got := "nothing"
		if !isUnit(idx) {
			got = idx.Type.String()
		}
		return nil, token.Errorf(a.Token, token.ErrIndexType, "index of %q must be an int, got %s", a.Name, got)
	}

	slot, ok := c.scopes.Get(a.Name)
	if !ok {
		if a.Flag == ast.IdVar {
			return nil, token.Errorf(a.Token, token.ErrUnknownVariable, "unknown variable %q", a.Name)
		}
		return nil, token.Errorf(a.Token, token.ErrUnresolved, "unresolved identifier %q", a.Name)
	}

	ct := slot.Type.(Ptr).Elem
	var (
		elem Type
		size int
	)
	switch t := ct.(type) {
	case Vector:
		elem, size = t.Elem, t.Size
	case Array:
		elem, size = t.Elem, t.Len
	default:
		return nil, token.Errorf(a.Token, token.ErrNotIndexable, "%q is a %s, not a vector or array", a.Name, ct)
	}

	if ci := idx.Val.IsAConstantInt(); !ci.IsNil() {
		if n := ci.SExtValue(); n < 0 || n >= int64(size) {
			return nil, token.Errorf(a.Token, token.ErrIndexBounds, "index %d out of bounds for %q of size %d", n, a.Name, size)
		}
	}

	if a.Flag == ast.IdVar || !c.values.TopCommitted() {
		s := &Symbol{Val: c.loadElement(slot.Val, ct, idx.Val), Type: elem}
		c.values.Push(s)
		return s, nil
	}

	val, _ := c.values.Pop()
	v, err := c.coerce(val, elem)
	if err != nil {
		return nil, token.Errorf(a.Token, token.ErrArgType, "cannot assign to %s: %v", a, err)
	}
	c.storeElement(slot.Val, ct, idx.Val, v.Val)
	return v, nil
}

func (c *Compiler) elementPtr(ptr llvm.Value, arr Type, idx llvm.Value) llvm.Value {
	return c.builder.CreateInBoundsGEP(c.mapToLLVMType(arr), ptr, []llvm.Value{c.ConstI32(0), idx}, "elem_ptr")
}

func (c *Compiler) loadElement(ptr llvm.Value, ct Type, idx llvm.Value) llvm.Value {
	switch t := ct.(type) {
	case Vector:
		vec := c.createLoad(ptr, ct, "vec")
		return c.builder.CreateExtractElement(vec, idx, "elem")
	case Array:
		return c.createLoad(c.elementPtr(ptr, ct, idx), t.Elem, "elem")
	}
	panic("not indexable: " + ct.String())
}

func (c *Compiler) storeElement(ptr llvm.Value, ct Type, idx llvm.Value, val llvm.Value) {
	switch t := ct.(type) {
	case Vector:
		vec := c.createLoad(ptr, ct, "vec")
		c.createStore(c.builder.CreateInsertElement(vec, val, idx, "vec_upd"), ptr, ct)
	case Array:
		c.createStore(val, c.elementPtr(ptr, ct, idx), t.Elem)
	default:
		panic("not indexable: " + ct.String())
	}
}
