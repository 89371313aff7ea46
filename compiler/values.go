package compiler

type pending struct {
	sym       *Symbol
	committed bool
}

// ValueStack holds the values produced but not yet consumed by the current
// command. A committed value (see the store keyword) is one that the next
// plain identifier assigns instead of reading over.
type ValueStack struct {
	items []pending
}

func NewValueStack() *ValueStack {
	return &ValueStack{}
}

func (vs *ValueStack) Push(s *Symbol) {
	vs.items = append(vs.items, pending{sym: s})
}

func (vs *ValueStack) Pop() (*Symbol, bool) {
	n := len(vs.items)
	if n == 0 {
		return nil, false
	}
	top := vs.items[n-1]
	vs.items[n-1] = pending{}
	vs.items = vs.items[:n-1]
	return top.sym, true
}

func (vs *ValueStack) Top() (*Symbol, bool) {
	if len(vs.items) == 0 {
		return nil, false
	}
	return vs.items[len(vs.items)-1].sym, true
}

// TopCommitted reports whether the top value is waiting to be assigned.
func (vs *ValueStack) TopCommitted() bool {
	n := len(vs.items)
	return n > 0 && vs.items[n-1].committed
}

func (vs *ValueStack) CommitAll() {
	for i := range vs.items {
		vs.items[i].committed = true
	}
}

func (vs *ValueStack) Len() int {
	return len(vs.items)
}

func (vs *ValueStack) Clear() {
	clear(vs.items)
	vs.items = vs.items[:0]
}
