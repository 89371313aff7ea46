package compiler

import (
	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/token"
	"tinygo.org/x/go-llvm"
)

// opKey is used as the key for operator functions. Left and right are lane
// types, so one entry serves scalars and vectors alike.
type opKey struct {
	Operator  byte
	LeftType  string
	RightType string
}

// opFunc combines two operands of the same shape and lane type.
type opFunc func(c *Compiler, left, right *Symbol) *Symbol

func arith(left *Symbol, v llvm.Value) *Symbol {
	return &Symbol{Val: v, Type: left.Type}
}

// compare results are bool lanes in the shape of the operands.
func compare(left *Symbol, v llvm.Value) *Symbol {
	return &Symbol{Val: v, Type: withElem(left.Type, I1)}
}

var defaultOps = map[opKey]opFunc{
	// Bool: + is xor, * is and, false < true.
	{ast.OpAdd, "I1", "I1"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateXor(left.Val, right.Val, "xor_tmp"))
	},
	{ast.OpMul, "I1", "I1"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateAnd(left.Val, right.Val, "and_tmp"))
	},
	{ast.OpLT, "I1", "I1"}: func(c *Compiler, left, right *Symbol) *Symbol {
		notLeft := c.builder.CreateNot(left.Val, "not_tmp")
		return compare(left, c.builder.CreateAnd(notLeft, right.Val, "lt_bool"))
	},
	{ast.OpEQ, "I1", "I1"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return compare(left, c.builder.CreateICmp(llvm.IntEQ, left.Val, right.Val, "eq_bool"))
	},

	{ast.OpAdd, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateAdd(left.Val, right.Val, "add_tmp"))
	},
	{ast.OpAdd, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateFAdd(left.Val, right.Val, "fadd_tmp"))
	},
	{ast.OpSub, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateSub(left.Val, right.Val, "sub_tmp"))
	},
	{ast.OpSub, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateFSub(left.Val, right.Val, "fsub_tmp"))
	},
	{ast.OpMul, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateMul(left.Val, right.Val, "mul_tmp"))
	},
	{ast.OpMul, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateFMul(left.Val, right.Val, "fmul_tmp"))
	},
	{ast.OpDiv, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateSDiv(left.Val, right.Val, "div_tmp"))
	},
	{ast.OpDiv, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return arith(left, c.builder.CreateFDiv(left.Val, right.Val, "fdiv_tmp"))
	},
	{ast.OpMod, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return c.modulo(left, right)
	},
	{ast.OpMod, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return c.modulo(left, right)
	},
	{ast.OpLT, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return compare(left, c.builder.CreateICmp(llvm.IntSLT, left.Val, right.Val, "lt_tmp"))
	},
	{ast.OpLT, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return compare(left, c.builder.CreateFCmp(llvm.FloatOLT, left.Val, right.Val, "flt_tmp"))
	},
	{ast.OpEQ, "I32", "I32"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return compare(left, c.builder.CreateICmp(llvm.IntEQ, left.Val, right.Val, "eq_tmp"))
	},
	{ast.OpEQ, "F64", "F64"}: func(c *Compiler, left, right *Symbol) *Symbol {
		return compare(left, c.builder.CreateFCmp(llvm.FloatOEQ, left.Val, right.Val, "feq_tmp"))
	},
}

func knownOperator(op byte) bool {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpLT, ast.OpEQ, ast.OpMod, ast.OpSeq:
		return true
	}
	return false
}

// binaryOp combines two lowered operands. Bool operands act as masks under
// '*', ints widen to reals next to a real, and vectors combine lane by lane.
func (c *Compiler) binaryOp(tok token.Token, op byte, left, right *Symbol) (*Symbol, error) {
	if !knownOperator(op) {
		return nil, token.Errorf(tok, token.ErrUnknownOperator, "unknown operator %q", op)
	}
	if op == ast.OpSeq {
		return right, nil
	}

	lv, lvec := left.Type.(Vector)
	rv, rvec := right.Type.(Vector)
	switch {
	case lvec && rvec:
		if lv.Size != rv.Size {
			return nil, token.Errorf(tok, token.ErrVectorSize, "vectors of different size: %d and %d", lv.Size, rv.Size)
		}
	case lvec || rvec:
		vec, scalar := left, right
		if rvec {
			vec, scalar = right, left
		}
		if !isBool(scalar.Type) || op != ast.OpMul {
			return nil, token.Errorf(tok, token.ErrVectorScalar, "cannot apply %q to %s and %s", op, left.Type, right.Type)
		}
		return c.boolSelect(scalar, vec), nil
	}

	le, re := elemOf(left.Type), elemOf(right.Type)
	if !isScalar(le) || !isScalar(re) {
		return nil, token.Errorf(tok, token.ErrOperandTypes, "cannot apply %q to %s and %s", op, left.Type, right.Type)
	}

	lb, rb := isBool(le), isBool(re)
	switch {
	case lb && !rb, rb && !lb:
		if op != ast.OpMul {
			return nil, token.Errorf(tok, token.ErrBoolOperator, "operator %q is not defined for %s and %s", op, left.Type, right.Type)
		}
		if lb {
			return c.boolSelect(left, right), nil
		}
		return c.boolSelect(right, left), nil
	case isInt(le) && isFloat(re):
		left, _ = c.coerce(left, right.Type)
	case isFloat(le) && isInt(re):
		right, _ = c.coerce(right, left.Type)
	}

	fn, ok := defaultOps[opKey{op, elemOf(left.Type).String(), elemOf(right.Type).String()}]
	if !ok {
		if lb && rb {
			return nil, token.Errorf(tok, token.ErrBoolOperator, "operator %q is not defined for booleans", op)
		}
		return nil, token.Errorf(tok, token.ErrOperandTypes, "cannot apply %q to %s and %s", op, left.Type, right.Type)
	}
	return fn(c, left, right), nil
}

// boolSelect yields other where mask is true and other's zero where it is
// false. A constant scalar mask folds.
func (c *Compiler) boolSelect(mask, other *Symbol) *Symbol {
	zero := llvm.ConstNull(c.mapToLLVMType(other.Type))
	if ci := mask.Val.IsAConstantInt(); !ci.IsNil() {
		if ci.ZExtValue() != 0 {
			return other
		}
		return &Symbol{Val: zero, Type: other.Type}
	}
	return &Symbol{Val: c.builder.CreateSelect(mask.Val, other.Val, zero, "mask_tmp"), Type: other.Type}
}

// modulo returns the remainder of left by right, or left itself where right
// is zero.
func (c *Compiler) modulo(left, right *Symbol) *Symbol {
	if right.Val.IsNull() {
		return left
	}

	zero := llvm.ConstNull(c.mapToLLVMType(right.Type))
	var isZero, rem llvm.Value
	if isFloat(elemOf(right.Type)) {
		isZero = c.builder.CreateFCmp(llvm.FloatOEQ, right.Val, zero, "divisor_zero")
		divisor := c.builder.CreateSelect(isZero, c.constOne(right.Type), right.Val, "divisor")
		rem = c.builder.CreateFRem(left.Val, divisor, "frem_tmp")
	} else {
		isZero = c.builder.CreateICmp(llvm.IntEQ, right.Val, zero, "divisor_zero")
		divisor := c.builder.CreateSelect(isZero, c.constOne(right.Type), right.Val, "divisor")
		rem = c.builder.CreateSRem(left.Val, divisor, "rem_tmp")
	}
	return &Symbol{Val: c.builder.CreateSelect(isZero, left.Val, rem, "mod_tmp"), Type: left.Type}
}
