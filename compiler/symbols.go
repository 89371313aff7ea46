package compiler

import (
	"tinygo.org/x/go-llvm"
)

// Symbol is a lowered value together with its Phi type. Variables are
// stored as a Ptr symbol pointing at their entry-block slot.
type Symbol struct {
	Val  llvm.Value
	Type Type
}

func unit() *Symbol {
	return &Symbol{Type: Unit{}}
}

func isUnit(s *Symbol) bool {
	return s == nil || s.Type.Kind() == UnitKind
}
