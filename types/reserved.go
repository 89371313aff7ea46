package types

// Source-level scalar type names. Any is the template placeholder.
const (
	Real = "Real"
	Int  = "Int"
	Bool = "Bool"
	Any  = "Any"
)

var reservedTypeNames = []string{
	Real,
	Int,
	Bool,
	Any,
}

var reservedTypeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(reservedTypeNames))
	for _, t := range reservedTypeNames {
		m[t] = struct{}{}
	}
	return m
}()

// IsReservedTypeName reports whether name is scanned as a type name rather
// than an identifier.
func IsReservedTypeName(name string) bool {
	_, ok := reservedTypeSet[name]
	return ok
}
