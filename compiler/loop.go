package compiler

import (
	"github.com/phi-lang/phi/ast"
	"tinygo.org/x/go-llvm"
)

// compileLoop lowers a guarded do-while. The condition is lowered again at
// the end of the body, so any side effect in it runs once more per
// iteration.
func (c *Compiler) compileLoop(n *ast.Loop) (*Symbol, error) {
	condSym, err := c.isolated(n.Cond, false)
	if err != nil {
		return nil, err
	}
	flag, err := c.toBool(n.Token, condSym)
	if err != nil {
		return nil, err
	}

	bodyBB, elseBB, contBB := c.createIfElseCont(flag, "loop", "loopelse", "loopcont")

	c.builder.SetInsertPointAtEnd(bodyBB)
	if _, err = c.isolated(n.Body, true); err != nil {
		return nil, err
	}
	if condSym, err = c.isolated(n.Cond, false); err != nil {
		return nil, err
	}
	if flag, err = c.toBool(n.Token, condSym); err != nil {
		return nil, err
	}
	c.builder.CreateCondBr(flag, bodyBB, contBB)

	if _, _, err = c.lowerArm(n.Else, elseBB, contBB); err != nil {
		return nil, err
	}
	c.builder.SetInsertPointAtEnd(contBB)
	return unit(), nil
}

// fillArray stores val into every element of the array at ptr with a
// counting loop.
func (c *Compiler) fillArray(ptr llvm.Value, arr Array, val llvm.Value) {
	curr := c.builder.GetInsertBlock()
	fn := curr.Parent()

	cond := c.Context.AddBasicBlock(fn, "fill_cond")
	body := c.Context.AddBasicBlock(fn, "fill_body")
	exit := c.Context.AddBasicBlock(fn, "fill_exit")

	c.builder.CreateBr(cond)
	c.builder.SetInsertPointAtEnd(cond)

	iter := c.builder.CreatePHI(c.Context.Int32Type(), "fill_iter")
	iter.AddIncoming([]llvm.Value{c.ConstI32(0)}, []llvm.BasicBlock{curr})

	loopCond := c.builder.CreateICmp(llvm.IntSLT, iter, c.ConstI32(int64(arr.Len)), "fill_cond")
	c.builder.CreateCondBr(loopCond, body, exit)

	c.builder.SetInsertPointAtEnd(body)
	c.createStore(val, c.elementPtr(ptr, arr, iter), arr.Elem)
	iterNext := c.builder.CreateAdd(iter, c.ConstI32(1), "fill_next")
	c.builder.CreateBr(cond)
	iter.AddIncoming([]llvm.Value{iterNext}, []llvm.BasicBlock{body})

	c.builder.SetInsertPointAtEnd(exit)
}
