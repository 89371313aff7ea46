package compiler

import (
	"github.com/phi-lang/phi/ast"
)

// PREFIX separates a template name from the type of one of its instances.
// Source identifiers cannot contain it, so instance names never collide
// with user functions.
const PREFIX = "."

// Mangle names the instance of template name for the concrete type tag,
// e.g. twice.Real or dot.Real<4>.
func Mangle(name string, tag ast.TypeTag) string {
	return name + PREFIX + tag.String()
}
