package compiler

import (
	"fmt"
	"strings"

	"github.com/phi-lang/phi/ast"
	"tinygo.org/x/go-llvm"
)

type Kind int

const (
	UnitKind Kind = iota
	IntKind
	FloatKind
	VectorKind
	ArrayKind
	TupleKind
	PtrKind
	FuncKind
)

// Type is the lowering-time view of a Phi value.
type Type interface {
	String() string
	Kind() Kind
}

// Bool is I1, int is I32 and real is F64.
var (
	I1  Type = Int{Width: 1}
	I32 Type = Int{Width: 32}
	F64 Type = Float{Width: 64}
)

// Unit is the type of constructs that produce no value.
type Unit struct{}

func (Unit) Kind() Kind     { return UnitKind }
func (Unit) String() string { return "Unit" }

type Int struct {
	Width uint32
}

func (i Int) String() string {
	return fmt.Sprintf("I%d", i.Width)
}

func (i Int) Kind() Kind {
	return IntKind
}

type Float struct {
	Width uint32
}

func (f Float) String() string {
	return fmt.Sprintf("F%d", f.Width)
}

func (f Float) Kind() Kind {
	return FloatKind
}

// Vector is a fixed number of scalar lanes held in a register.
type Vector struct {
	Elem Type
	Size int
}

func (v Vector) String() string {
	return fmt.Sprintf("%s<%d>", v.Elem, v.Size)
}

func (v Vector) Kind() Kind {
	return VectorKind
}

// Array is a fixed-length aggregate held in memory.
type Array struct {
	Elem Type
	Len  int
}

func (a Array) String() string {
	return fmt.Sprintf("%s[%d]", a.Elem, a.Len)
}

func (a Array) Kind() Kind {
	return ArrayKind
}

// Tuple is the packed result of a function with several outputs.
type Tuple struct {
	Elems []Type
}

func (t Tuple) String() string {
	return "(" + typesStr(t.Elems) + ")"
}

func (t Tuple) Kind() Kind {
	return TupleKind
}

// Ptr is the storage slot of a variable.
type Ptr struct {
	Elem Type
}

func (p Ptr) String() string {
	return fmt.Sprintf("Ptr_%s", p.Elem.String())
}

func (p Ptr) Kind() Kind {
	return PtrKind
}

type Func struct {
	Name     string
	Params   []Type
	OutTypes []Type
}

func (f Func) String() string {
	return fmt.Sprintf("%s = %s(%s)", typesStr(f.OutTypes), f.Name, typesStr(f.Params))
}

func (f Func) Kind() Kind {
	return FuncKind
}

func typesStr(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// TypeEqual compares types structurally.
func TypeEqual(a, b Type) bool {
	return a.String() == b.String()
}

// elemOf returns the lane type of a vector and t itself otherwise.
func elemOf(t Type) Type {
	if v, ok := t.(Vector); ok {
		return v.Elem
	}
	return t
}

func isBool(t Type) bool {
	i, ok := t.(Int)
	return ok && i.Width == 1
}

func isInt(t Type) bool {
	i, ok := t.(Int)
	return ok && i.Width > 1
}

func isFloat(t Type) bool {
	return t.Kind() == FloatKind
}

func isScalar(t Type) bool {
	return t.Kind() == IntKind || t.Kind() == FloatKind
}

// sameShape reports whether a and b are both scalars or both vectors of the
// same size.
func sameShape(a, b Type) bool {
	av, aok := a.(Vector)
	bv, bok := b.(Vector)
	if aok || bok {
		return aok && bok && av.Size == bv.Size
	}
	return isScalar(a) && isScalar(b)
}

// withElem rebuilds the shape of t around a new lane type.
func withElem(t Type, elem Type) Type {
	if v, ok := t.(Vector); ok {
		return Vector{Elem: elem, Size: v.Size}
	}
	return elem
}

func (c *Compiler) mapToLLVMType(t Type) llvm.Type {
	switch typ := t.(type) {
	case Int:
		switch typ.Width {
		case 1:
			return c.Context.Int1Type()
		case 32:
			return c.Context.Int32Type()
		default:
			panic(fmt.Sprintf("unsupported int width: %d", typ.Width))
		}
	case Float:
		return c.Context.DoubleType()
	case Vector:
		return llvm.VectorType(c.mapToLLVMType(typ.Elem), typ.Size)
	case Array:
		return llvm.ArrayType(c.mapToLLVMType(typ.Elem), typ.Len)
	case Tuple:
		fields := make([]llvm.Type, len(typ.Elems))
		for i, e := range typ.Elems {
			fields[i] = c.mapToLLVMType(e)
		}
		return c.Context.StructType(fields, false)
	case Ptr:
		return llvm.PointerType(c.mapToLLVMType(typ.Elem), 0)
	case Unit:
		return c.Context.VoidType()
	default:
		panic("unsupported type: " + t.String())
	}
}

// typeFromLLVM recovers the Phi type of an LLVM value type. Named return
// structs come back as tuples.
func typeFromLLVM(t llvm.Type) Type {
	switch t.TypeKind() {
	case llvm.VoidTypeKind:
		return Unit{}
	case llvm.IntegerTypeKind:
		return Int{Width: uint32(t.IntTypeWidth())}
	case llvm.DoubleTypeKind:
		return F64
	case llvm.VectorTypeKind:
		return Vector{Elem: typeFromLLVM(t.ElementType()), Size: t.VectorSize()}
	case llvm.ArrayTypeKind:
		return Array{Elem: typeFromLLVM(t.ElementType()), Len: t.ArrayLength()}
	case llvm.StructTypeKind:
		fields := t.StructElementTypes()
		elems := make([]Type, len(fields))
		for i, f := range fields {
			elems[i] = typeFromLLVM(f)
		}
		return Tuple{Elems: elems}
	}
	panic("unsupported llvm type: " + t.String())
}

// fromTag resolves a source type tag. The placeholder resolves to the type of
// the template instance currently being lowered.
func (c *Compiler) fromTag(tag ast.TypeTag) (Type, error) {
	if tag.IsTemplate() {
		if c.templateType == 0 {
			return nil, fmt.Errorf("placeholder type %s used outside a template instance", tag)
		}
		var err error
		if tag, err = tag.Substitute(c.templateType); err != nil {
			return nil, err
		}
	}

	var elem Type
	switch tag.Base() {
	case ast.Real:
		elem = F64
	case ast.Int:
		elem = I32
	case ast.Bool:
		elem = I1
	default:
		return nil, fmt.Errorf("unknown type %s", tag)
	}

	switch {
	case tag.IsVector():
		return Vector{Elem: elem, Size: tag.VecSize()}, nil
	case tag.IsArray():
		return Array{Elem: elem, Len: tag.ArrayLen()}, nil
	}
	return elem, nil
}

// coerce converts s to want, widening bool to int to real lane by lane.
// Anything else that differs is an error.
func (c *Compiler) coerce(s *Symbol, want Type) (*Symbol, error) {
	if TypeEqual(s.Type, want) {
		return s, nil
	}
	if !sameShape(s.Type, want) {
		return nil, fmt.Errorf("cannot convert %s to %s", s.Type, want)
	}

	from, to := elemOf(s.Type), elemOf(want)
	target := c.mapToLLVMType(want)
	var v llvm.Value
	switch {
	case isBool(from) && isInt(to):
		v = c.builder.CreateZExt(s.Val, target, "widen")
	case isBool(from) && isFloat(to):
		v = c.builder.CreateUIToFP(s.Val, target, "widen")
	case isInt(from) && isFloat(to):
		v = c.builder.CreateSIToFP(s.Val, target, "widen")
	default:
		return nil, fmt.Errorf("cannot convert %s to %s", s.Type, want)
	}
	return &Symbol{Val: v, Type: want}, nil
}
