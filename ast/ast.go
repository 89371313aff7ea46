package ast

import (
	"strconv"
	"strings"

	"github.com/phi-lang/phi/token"
)

// Expr is the closed set of Phi syntax nodes: *Literal, *Binary, *Ident,
// *Access, *Proto, *Func, *Command, *Cond, *Loop and *Template.
type Expr interface {
	Tok() token.Token
	String() string
	exprNode()
}

type Program struct {
	Statements []Expr
}

func (p *Program) Tok() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Tok()
	}
	return token.Token{Type: token.EOF}
}

func (p *Program) String() string {
	parts := make([]string, len(p.Statements))
	for i, s := range p.Statements {
		parts[i] = s.String()
	}
	return strings.Join(parts, ";\n")
}

// Literal is a numeric or boolean constant. Int holds int and bool payloads
// (bool as 0 or 1); Real holds real payloads.
type Literal struct {
	Token token.Token
	Type  BaseType
	Int   int64
	Real  float64
}

func (l *Literal) exprNode()        {}
func (l *Literal) Tok() token.Token { return l.Token }
func (l *Literal) Bool() bool       { return l.Int != 0 }
func (l *Literal) String() string {
	switch l.Type {
	case Bool:
		return strconv.FormatBool(l.Bool())
	case Int:
		return strconv.FormatInt(l.Int, 10)
	default:
		return strconv.FormatFloat(l.Real, 'g', -1, 64)
	}
}

// IdFlag is the resolution hint attached to identifiers.
type IdFlag int

const (
	IdAny   IdFlag = iota // variable if one is visible, else function
	IdVar                 // existing variable, always loaded
	IdFunc                // function call
	IdNew                 // bind a fresh variable to the top pending value
	IdVec                 // fresh vector initialised from the top pending value
	IdArray               // fresh array initialised from the top pending value
)

var flagNames = [...]string{
	IdAny:   "any",
	IdVar:   "var",
	IdFunc:  "func",
	IdNew:   "new",
	IdVec:   "vec",
	IdArray: "array",
}

func (f IdFlag) String() string {
	if f >= 0 && int(f) < len(flagNames) {
		return flagNames[f]
	}
	return "flag(" + strconv.Itoa(int(f)) + ")"
}

// Ident names a variable or a function. Size is the declared element count
// for IdVec and IdArray.
type Ident struct {
	Token token.Token
	Name  string
	Flag  IdFlag
	Size  int
}

func (i *Ident) exprNode()        {}
func (i *Ident) Tok() token.Token { return i.Token }
func (i *Ident) String() string {
	switch i.Flag {
	case IdVar:
		return "$" + i.Name
	case IdFunc:
		return i.Name + "()"
	case IdNew:
		return i.Name + "!"
	case IdVec:
		return i.Name + "!<" + strconv.Itoa(i.Size) + ">"
	case IdArray:
		return i.Name + "![" + strconv.Itoa(i.Size) + "]"
	}
	return i.Name
}

// Access is an indexed read or write into a vector or array variable.
type Access struct {
	Token token.Token
	Name  string
	Flag  IdFlag
	Index Expr
}

// NewAccess moves the name, flag and position out of id into a new Access
// node. id is left empty and must not be used afterwards.
func NewAccess(id *Ident, index Expr) *Access {
	a := &Access{Token: id.Token, Name: id.Name, Flag: id.Flag, Index: index}
	*id = Ident{}
	return a
}

func (a *Access) exprNode()        {}
func (a *Access) Tok() token.Token { return a.Token }
func (a *Access) String() string {
	prefix := ""
	if a.Flag == IdVar {
		prefix = "$"
	}
	return prefix + a.Name + "[" + str(a.Index) + "]"
}

// Binary operator codes.
const (
	OpAdd byte = '+'
	OpSub byte = '-'
	OpMul byte = '*'
	OpDiv byte = '/'
	OpLT  byte = '<'
	OpEQ  byte = '='
	OpMod byte = '%'
	OpSeq byte = ':'
)

type Binary struct {
	Token token.Token
	Op    byte
	LHS   Expr
	RHS   Expr
}

func (b *Binary) exprNode()        {}
func (b *Binary) Tok() token.Token { return b.Token }
func (b *Binary) String() string {
	return "(" + str(b.LHS) + " " + string(b.Op) + " " + str(b.RHS) + ")"
}

// Arg is one entry of a prototype signature. Name may be empty for extern
// inputs and for outputs.
type Arg struct {
	Type TypeTag
	Name string
}

func (a Arg) String() string {
	if a.Name == "" {
		return a.Type.String()
	}
	return a.Type.String() + ":" + a.Name
}

// Proto is a function signature. Inputs and Outputs are in declaration order.
type Proto struct {
	Token      token.Token
	Name       string
	Inputs     []Arg
	Outputs    []Arg
	IsTemplate bool
}

func (p *Proto) exprNode()        {}
func (p *Proto) Tok() token.Token { return p.Token }
func (p *Proto) String() string {
	var out strings.Builder
	for _, in := range p.Inputs {
		out.WriteString(in.String())
		out.WriteByte(' ')
	}
	out.WriteString("-> ")
	out.WriteString(p.Name)
	out.WriteString(" ->")
	for _, o := range p.Outputs {
		out.WriteByte(' ')
		out.WriteString(o.String())
	}
	return out.String()
}

// Func is a function definition. The body's trailing pending values become
// the return values.
type Func struct {
	Token token.Token
	Proto *Proto
	Body  Expr
}

func (f *Func) exprNode()        {}
func (f *Func) Tok() token.Token { return f.Token }
func (f *Func) String() string {
	return "def " + f.Proto.String() + " " + str(f.Body)
}

// Command is a sequence of juxtaposed items evaluated left to right against
// a shared value stack.
type Command struct {
	Token token.Token
	Items []Expr
}

// NewCommand composes head and tail into one command, splicing the items of
// either side when it is itself a command.
func NewCommand(head, tail Expr) *Command {
	c := &Command{Token: head.Tok()}
	c.Items = append(c.Items, Flatten(head)...)
	c.Items = append(c.Items, Flatten(tail)...)
	return c
}

func (c *Command) exprNode()        {}
func (c *Command) Tok() token.Token { return c.Token }

// Head is the first item of the command.
func (c *Command) Head() Expr {
	if len(c.Items) == 0 {
		return nil
	}
	return c.Items[0]
}

// Last is the trailing item of the command, the one that must be a call or
// an assignment.
func (c *Command) Last() Expr {
	if len(c.Items) == 0 {
		return nil
	}
	return c.Items[len(c.Items)-1]
}

func (c *Command) String() string {
	parts := make([]string, len(c.Items))
	for i, it := range c.Items {
		parts[i] = str(it)
	}
	return strings.Join(parts, " ")
}

// EndsCommand reports whether e may be the trailing item of a command:
// something that consumes pending values.
func EndsCommand(e Expr) bool {
	switch e.(type) {
	case *Ident, *Access, *Template:
		return true
	}
	return false
}

// Flatten returns the items of a command in evaluation order, or e alone for
// any other node.
func Flatten(e Expr) []Expr {
	if c, ok := e.(*Command); ok {
		return append([]Expr(nil), c.Items...)
	}
	if e == nil {
		return nil
	}
	return []Expr{e}
}

// Breadth is the number of items e contributes to a command.
func Breadth(e Expr) int {
	if c, ok := e.(*Command); ok {
		return len(c.Items)
	}
	if e == nil {
		return 0
	}
	return 1
}

// Cond is `cond ? {True} | {False}`. False may be nil.
type Cond struct {
	Token token.Token
	Cond  Expr
	True  Expr
	False Expr
}

func (c *Cond) exprNode()        {}
func (c *Cond) Tok() token.Token { return c.Token }
func (c *Cond) String() string {
	s := str(c.Cond) + " ? {" + str(c.True) + "}"
	if c.False != nil {
		s += " | {" + str(c.False) + "}"
	}
	return s
}

// Loop is `cond @ {Body} | {Else}`: the guard runs once before the first
// iteration and the condition is re-evaluated after every body run.
type Loop struct {
	Token token.Token
	Cond  Expr
	Body  Expr
	Else  Expr
}

func (l *Loop) exprNode()        {}
func (l *Loop) Tok() token.Token { return l.Token }
func (l *Loop) String() string {
	s := str(l.Cond) + " @ {" + str(l.Body) + "}"
	if l.Else != nil {
		s += " | {" + str(l.Else) + "}"
	}
	return s
}

// Template requests the instantiation of a template function for Type.
type Template struct {
	Token token.Token
	Name  string
	Type  TypeTag
}

func (t *Template) exprNode()        {}
func (t *Template) Tok() token.Token { return t.Token }
func (t *Template) String() string {
	return t.Name + "<" + t.Type.String() + ">"
}

func str(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}
