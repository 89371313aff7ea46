package ast

// Clear detaches every child of e, recursively, so that the tree no longer
// keeps any sub-expression reachable. Clearing nil, or a node that was
// already cleared, does nothing.
func Clear(e Expr) {
	switch n := e.(type) {
	case *Binary:
		if n == nil {
			return
		}
		Clear(n.LHS)
		Clear(n.RHS)
		n.LHS, n.RHS = nil, nil
	case *Access:
		if n == nil {
			return
		}
		Clear(n.Index)
		n.Index = nil
	case *Proto:
		if n == nil {
			return
		}
		n.Inputs, n.Outputs = nil, nil
	case *Func:
		if n == nil {
			return
		}
		Clear(n.Proto)
		Clear(n.Body)
		n.Proto, n.Body = nil, nil
	case *Command:
		if n == nil {
			return
		}
		for _, it := range n.Items {
			Clear(it)
		}
		n.Items = nil
	case *Cond:
		if n == nil {
			return
		}
		Clear(n.Cond)
		Clear(n.True)
		Clear(n.False)
		n.Cond, n.True, n.False = nil, nil, nil
	case *Loop:
		if n == nil {
			return
		}
		Clear(n.Cond)
		Clear(n.Body)
		Clear(n.Else)
		n.Cond, n.Body, n.Else = nil, nil, nil
	}
}
