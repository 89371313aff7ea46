package ast

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/phi-lang/phi/types"
)

type BaseType uint8

const (
	Invalid BaseType = iota
	Real
	Int
	Bool
	Any // template placeholder
)

var baseNames = [...]string{
	Invalid: "Invalid",
	Real:    types.Real,
	Int:     types.Int,
	Bool:    types.Bool,
	Any:     types.Any,
}

func (b BaseType) String() string {
	if int(b) < len(baseNames) {
		return baseNames[b]
	}
	return "base(" + strconv.Itoa(int(b)) + ")"
}

// ParseBase maps a source type name to its base tag.
func ParseBase(name string) (BaseType, bool) {
	for b, n := range baseNames {
		if b != int(Invalid) && n == name {
			return BaseType(b), true
		}
	}
	return Invalid, false
}

// TypeTag packs a base type with an optional vector size or array length:
//
//	bits 0-3   base type
//	bits 4-7   vector size (0 = not a vector)
//	bits 8-31  array length (0 = not an array)
type TypeTag uint32

const (
	baseBits  = 4
	vecBits   = 4
	vecShift  = baseBits
	arrShift  = baseBits + vecBits
	baseMask  = 1<<baseBits - 1
	vecMask   = 1<<vecBits - 1
	MaxVecLen = vecMask
	MaxArrLen = 1<<(32-arrShift) - 1
)

var (
	ErrVecAndArray = errors.New("vector and array modifiers are mutually exclusive")
	ErrBadSize     = errors.New("container size out of range")
)

func Scalar(b BaseType) TypeTag {
	return TypeTag(b) & baseMask
}

func (t TypeTag) Base() BaseType { return BaseType(t & baseMask) }
func (t TypeTag) VecSize() int   { return int(t>>vecShift) & vecMask }
func (t TypeTag) ArrayLen() int  { return int(t >> arrShift) }
func (t TypeTag) IsVector() bool { return t.VecSize() != 0 }
func (t TypeTag) IsArray() bool  { return t.ArrayLen() != 0 }
func (t TypeTag) IsScalar() bool { return !t.IsVector() && !t.IsArray() }

// IsTemplate reports whether the tag mentions the placeholder type.
func (t TypeTag) IsTemplate() bool { return t.Base() == Any }

// WithVector returns t as a vector of n lanes.
func (t TypeTag) WithVector(n int) (TypeTag, error) {
	if t.IsArray() {
		return t, ErrVecAndArray
	}
	if n < 1 || n > MaxVecLen {
		return t, fmt.Errorf("%w: vector size %d not in 1..%d", ErrBadSize, n, MaxVecLen)
	}
	return t.Base().tag() | TypeTag(n)<<vecShift, nil
}

// WithArray returns t as an array of n elements.
func (t TypeTag) WithArray(n int) (TypeTag, error) {
	if t.IsVector() {
		return t, ErrVecAndArray
	}
	if n < 1 || n > MaxArrLen {
		return t, fmt.Errorf("%w: array length %d not in 1..%d", ErrBadSize, n, MaxArrLen)
	}
	return t.Base().tag() | TypeTag(n)<<arrShift, nil
}

// Substitute replaces the placeholder base of t with concrete, keeping t's
// modifiers. A concrete tag that carries its own modifier can only replace a
// bare placeholder.
func (t TypeTag) Substitute(concrete TypeTag) (TypeTag, error) {
	if !t.IsTemplate() {
		return t, nil
	}
	if concrete.IsTemplate() {
		return t, fmt.Errorf("cannot instantiate with placeholder type %s", concrete)
	}
	switch {
	case t.IsScalar():
		return concrete, nil
	case !concrete.IsScalar():
		return t, fmt.Errorf("cannot substitute %s into %s", concrete, t)
	case t.IsVector():
		return Scalar(concrete.Base()).WithVector(t.VecSize())
	default:
		return Scalar(concrete.Base()).WithArray(t.ArrayLen())
	}
}

func (t TypeTag) String() string {
	s := t.Base().String()
	if n := t.VecSize(); n != 0 {
		s += "<" + strconv.Itoa(n) + ">"
	}
	if n := t.ArrayLen(); n != 0 {
		s += "[" + strconv.Itoa(n) + "]"
	}
	return s
}

func (b BaseType) tag() TypeTag { return Scalar(b) }
