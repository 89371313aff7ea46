package compiler

type scopeEntry struct {
	name  string
	sym   *Symbol
	depth int
}

// ScopeTable maps variable names to their slots. Entries are tagged with the
// depth they were declared at and dropped when that depth is left, so a
// name is visible from its declaration to the end of the enclosing block,
// including nested blocks.
type ScopeTable struct {
	entries []scopeEntry
	depth   int
}

func NewScopeTable() *ScopeTable {
	return &ScopeTable{}
}

func (s *ScopeTable) Depth() int {
	return s.depth
}

func (s *ScopeTable) Enter() {
	s.depth++
}

// Exit leaves the current depth and forgets everything declared in it.
func (s *ScopeTable) Exit() {
	if s.depth == 0 {
		panic("cannot exit function scope")
	}
	s.depth--
	n := len(s.entries)
	for n > 0 && s.entries[n-1].depth > s.depth {
		n--
	}
	clear(s.entries[n:])
	s.entries = s.entries[:n]
}

// Put declares name at the current depth. A later declaration shadows an
// earlier one with the same name.
func (s *ScopeTable) Put(name string, sym *Symbol) {
	s.entries = append(s.entries, scopeEntry{name: name, sym: sym, depth: s.depth})
}

// Get searches from the innermost declaration outward.
func (s *ScopeTable) Get(name string) (*Symbol, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].name == name {
			return s.entries[i].sym, true
		}
	}
	return nil, false
}

func (s *ScopeTable) Len() int {
	return len(s.entries)
}

func (s *ScopeTable) Reset() {
	s.entries = nil
	s.depth = 0
}
