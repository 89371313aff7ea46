package compiler

import (
	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/token"
	"tinygo.org/x/go-llvm"
)

type templateEntry struct {
	proto *ast.Proto
	def   *ast.Func // nil while only declared
}

// Templates is the registry of type-polymorphic functions. Instances are
// lowered on demand by TryGetTemplate and live in the module under their
// mangled names.
type Templates struct {
	entries []*templateEntry
}

func NewTemplates() *Templates {
	return &Templates{}
}

func (t *Templates) lookup(name string) *templateEntry {
	for _, e := range t.entries {
		if e.proto.Name == name {
			return e
		}
	}
	return nil
}

// Declare registers p unless a template of that name exists already.
func (t *Templates) Declare(p *ast.Proto) bool {
	if t.lookup(p.Name) != nil {
		return false
	}
	t.entries = append(t.entries, &templateEntry{proto: p})
	return true
}

// Define registers f, upgrading an earlier declaration of the same name.
// A second definition is rejected and released.
func (t *Templates) Define(f *ast.Func) error {
	e := t.lookup(f.Proto.Name)
	switch {
	case e == nil:
		t.entries = append(t.entries, &templateEntry{proto: f.Proto, def: f})
	case e.def == nil:
		e.proto, e.def = f.Proto, f
	default:
		err := token.Errorf(f.Proto.Token, token.ErrTemplateRedefined, "cannot redefine template %q", f.Proto.Name)
		ast.Clear(f)
		return err
	}
	return nil
}

// IsDefined reports whether name has a body, not just a declaration.
func (t *Templates) IsDefined(name string) bool {
	e := t.lookup(name)
	return e != nil && e.def != nil
}

func (t *Templates) Len() int {
	return len(t.entries)
}

func (t *Templates) Clear() {
	for _, e := range t.entries {
		if e.def != nil {
			ast.Clear(e.def)
		} else {
			ast.Clear(e.proto)
		}
	}
	t.entries = nil
}

// instantiate copies the signature of p for one concrete type. The
// template's own prototype is left untouched.
func instantiate(p *ast.Proto, name string, tag ast.TypeTag) (*ast.Proto, error) {
	sub := func(args []ast.Arg) ([]ast.Arg, error) {
		out := make([]ast.Arg, len(args))
		for i, a := range args {
			t, err := a.Type.Substitute(tag)
			if err != nil {
				return nil, err
			}
			out[i] = ast.Arg{Type: t, Name: a.Name}
		}
		return out, nil
	}

	inputs, err := sub(p.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := sub(p.Outputs)
	if err != nil {
		return nil, err
	}
	return &ast.Proto{Token: p.Token, Name: name, Inputs: inputs, Outputs: outputs}, nil
}

// TryGetTemplate returns the instance of template name for tag, lowering it
// the first time it is asked for. A name with no template is a miss: the
// returned value is nil and so is the error.
func (c *Compiler) TryGetTemplate(name string, tag ast.TypeTag) (llvm.Value, error) {
	mangled := Mangle(name, tag)
	if fn := c.Module.NamedFunction(mangled); !fn.IsNil() {
		return fn, nil
	}

	e := c.Templates.lookup(name)
	if e == nil {
		return llvm.Value{}, nil
	}
	proto, err := instantiate(e.proto, mangled, tag)
	if err != nil {
		return llvm.Value{}, token.Errorf(e.proto.Token, token.ErrUnknownType, "cannot instantiate %q: %v", name, err)
	}

	saved := c.templateType
	c.templateType = tag
	defer func() { c.templateType = saved }()

	var sym *Symbol
	if e.def == nil {
		sym, err = c.compileProto(proto)
	} else {
		sym, err = c.compileFunc(&ast.Func{Token: e.def.Token, Proto: proto, Body: e.def.Body})
	}
	if err != nil {
		return llvm.Value{}, err
	}
	return sym.Val, nil
}

func (c *Compiler) compileTemplate(n *ast.Template) (*Symbol, error) {
	tag := n.Type
	if tag.IsTemplate() {
		if c.templateType == 0 {
			return nil, token.Errorf(n.Token, token.ErrUnknownType, "%s used outside a template instance", n)
		}
		var err error
		if tag, err = tag.Substitute(c.templateType); err != nil {
			return nil, token.Errorf(n.Token, token.ErrUnknownType, "%s: %v", n, err)
		}
	}

	fn, err := c.TryGetTemplate(n.Name, tag)
	if err != nil {
		return nil, err
	}
	if fn.IsNil() {
		return nil, token.Errorf(n.Token, token.ErrUnresolved, "unresolved template %q", n.Name)
	}
	return c.callFunction(n.Token, Mangle(n.Name, tag), fn)
}
