package compiler

import (
	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/token"
	"tinygo.org/x/go-llvm"
)

// toBool turns a condition value into an i1: numbers compare not-equal to
// zero.
func (c *Compiler) toBool(tok token.Token, s *Symbol) (llvm.Value, error) {
	if !isUnit(s) {
		switch t := s.Type.(type) {
		case Int:
			if t.Width == 1 {
				return s.Val, nil
			}
			return c.builder.CreateICmp(llvm.IntNE, s.Val, llvm.ConstInt(c.mapToLLVMType(t), 0, false), "cond"), nil
		case Float:
			return c.builder.CreateFCmp(llvm.FloatONE, s.Val, c.ConstF64(0), "cond"), nil
		}
	}
	got := "nothing"
	if !isUnit(s) {
		got = s.Type.String()
	}
	return llvm.Value{}, token.Errorf(tok, token.ErrCondType, "condition must be a bool or a number, got %s", got)
}

// createIfElseCont emits a conditional branch and creates if/else/cont blocks
// in the current function.
func (c *Compiler) createIfElseCont(cond llvm.Value, ifName, elseName, contName string) (llvm.BasicBlock, llvm.BasicBlock, llvm.BasicBlock) {
	fn := c.builder.GetInsertBlock().Parent()
	ifBlock := c.Context.AddBasicBlock(fn, ifName)
	elseBlock := c.Context.AddBasicBlock(fn, elseName)
	contBlock := c.Context.AddBasicBlock(fn, contName)
	c.builder.CreateCondBr(cond, ifBlock, elseBlock)
	return ifBlock, elseBlock, contBlock
}

// lowerArm lowers one branch body into block and falls through to cont. The
// branch value is whatever the body leaves on top of its own value stack,
// or unit when it leaves nothing. It also returns the block control leaves
// the branch from.
func (c *Compiler) lowerArm(body ast.Expr, block, cont llvm.BasicBlock) (*Symbol, llvm.BasicBlock, error) {
	c.builder.SetInsertPointAtEnd(block)

	saved := c.values
	c.values = NewValueStack()
	defer func() { c.values = saved }()

	if _, err := c.codegen(body, true); err != nil {
		return nil, block, err
	}
	val, ok := c.values.Top()
	if !ok {
		val = unit()
	}
	end := c.builder.GetInsertBlock()
	c.builder.CreateBr(cont)
	return val, end, nil
}

func (c *Compiler) compileCond(n *ast.Cond) (*Symbol, error) {
	condSym, err := c.isolated(n.Cond, false)
	if err != nil {
		return nil, err
	}
	flag, err := c.toBool(n.Token, condSym)
	if err != nil {
		return nil, err
	}

	thenBB, elseBB, contBB := c.createIfElseCont(flag, "then", "else", "ifcont")
	thenVal, thenEnd, err := c.lowerArm(n.True, thenBB, contBB)
	if err != nil {
		return nil, err
	}
	elseVal, elseEnd, err := c.lowerArm(n.False, elseBB, contBB)
	if err != nil {
		return nil, err
	}
	c.builder.SetInsertPointAtEnd(contBB)

	if n.False == nil || isUnit(thenVal) || isUnit(elseVal) {
		return unit(), nil
	}
	if !TypeEqual(thenVal.Type, elseVal.Type) {
		return nil, token.Errorf(n.Token, token.ErrBranchTypes, "incompatible types found in conditional blocks: %s and %s", thenVal.Type, elseVal.Type)
	}

	phi := c.builder.CreatePHI(c.mapToLLVMType(thenVal.Type), "iftmp")
	phi.AddIncoming([]llvm.Value{thenVal.Val, elseVal.Val}, []llvm.BasicBlock{thenEnd, elseEnd})
	res := &Symbol{Val: phi, Type: thenVal.Type}
	c.values.Push(res)
	return res, nil
}
