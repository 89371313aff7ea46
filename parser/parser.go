package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phi-lang/phi/ast"
	"github.com/phi-lang/phi/lexer"
	"github.com/phi-lang/phi/token"
)

const (
	LOWEST  = 0
	COMPARE = 10 // < =
	SUM     = 20 // + -
	PRODUCT = 40 // * / %
)

var precedences = map[byte]int{
	ast.OpLT:  COMPARE,
	ast.OpEQ:  COMPARE,
	ast.OpAdd: SUM,
	ast.OpSub: SUM,
	ast.OpMul: PRODUCT,
	ast.OpDiv: PRODUCT,
	ast.OpMod: PRODUCT,
}

type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) Errors() []*token.CompileError {
	return p.errors
}

func (p *Parser) errorf(tok token.Token, code token.Code, format string, args ...any) *token.CompileError {
	msg := fmt.Sprintf(format, args...)
	if tok.Type == token.EOF {
		code = token.ErrUnexpectedEOF
		msg = "unexpected end of input: " + msg
	}
	err := &token.CompileError{Token: tok, Code: code, Msg: msg}
	p.errors = append(p.errors, err)
	return err
}

// expect consumes the single character ch or records an error.
func (p *Parser) expect(ch byte, code token.Code) bool {
	if p.curToken.Is(ch) {
		p.nextToken()
		return true
	}
	p.errorf(p.curToken, code, "expected %q, got %s", string(ch), p.curToken)
	return false
}

// IsIncomplete reports whether errs stop at the end of the input, meaning
// more text could still complete the construct.
func IsIncomplete(errs []*token.CompileError) bool {
	for _, e := range errs {
		if e.Code == token.ErrUnexpectedEOF {
			return true
		}
	}
	return false
}

// ParseProgram parses every top-level item, skipping to the next statement
// boundary after a syntax error.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.curTokenIs(token.EOF) {
		e, err := p.ParseTopLevel()
		if err != nil {
			p.Synchronize()
			continue
		}
		if e != nil {
			program.Statements = append(program.Statements, e)
		}
	}
	return program
}

// Done reports whether all input has been consumed.
func (p *Parser) Done() bool {
	return p.curTokenIs(token.EOF)
}

// ParseTopLevel parses one definition, extern declaration or anonymous
// expression. An empty statement yields (nil, nil).
func (p *Parser) ParseTopLevel() (ast.Expr, *token.CompileError) {
	before := len(p.errors)
	var e ast.Expr
	switch {
	case p.curTokenIs(token.DEF):
		if fn := p.ParseDefinition(); fn != nil {
			e = fn
		}
	case p.curTokenIs(token.EXTERN):
		if proto := p.ParseExtern(); proto != nil {
			e = proto
		}
	case p.curToken.Is(';'):
		p.nextToken()
		return nil, nil
	default:
		if fn := p.ParseTopLevelExpr(); fn != nil {
			e = fn
		}
	}

	if len(p.errors) > before {
		return nil, p.errors[len(p.errors)-1]
	}
	if p.curToken.Is(';') {
		p.nextToken()
	}
	return e, nil
}

// Synchronize drops tokens up to and including the next ';', or up to the
// next keyword.
func (p *Parser) Synchronize() {
	if !p.curTokenIs(token.EOF) && !p.curToken.IsKeyword() {
		p.nextToken()
	}
	for !p.curTokenIs(token.EOF) && !p.curToken.IsKeyword() {
		if p.curToken.Is(';') {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// ParseDefinition parses `def proto body`.
func (p *Parser) ParseDefinition() *ast.Func {
	tok := p.curToken
	p.nextToken()

	proto := p.ParsePrototype(false)
	if proto == nil {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &ast.Func{Token: tok, Proto: proto, Body: body}
}

// ParseExtern parses `extern proto`.
func (p *Parser) ParseExtern() *ast.Proto {
	p.nextToken()
	return p.ParsePrototype(true)
}

// ParseTopLevelExpr wraps a bare expression into an anonymous function with
// no inputs and one Real output.
func (p *Parser) ParseTopLevelExpr() *ast.Func {
	tok := p.curToken
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	proto := &ast.Proto{
		Token:   tok,
		Outputs: []ast.Arg{{Type: ast.Scalar(ast.Real)}},
	}
	return &ast.Func{Token: tok, Proto: proto, Body: body}
}

// ParsePrototype parses `{sig} -> name -> sig {sig}`. Input names are
// mandatory unless isExtern.
func (p *Parser) ParsePrototype(isExtern bool) *ast.Proto {
	proto := &ast.Proto{Token: p.curToken}

	for p.curTokenIs(token.TYPENAME) {
		arg, ok := p.parseSig(!isExtern)
		if !ok {
			return nil
		}
		proto.Inputs = append(proto.Inputs, arg)
	}

	if !p.curTokenIs(token.ARROW) {
		if len(proto.Inputs) > 0 {
			p.errorf(p.curToken, token.ErrProtoNoArrow, "expected '->' after input types, got %s", p.curToken)
		} else {
			p.errorf(p.curToken, token.ErrProtoNoArrow, "expected input types or '->' in prototype, got %s", p.curToken)
		}
		return nil
	}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorf(p.curToken, token.ErrProtoNoName, "expected function name in prototype, got %s", p.curToken)
		return nil
	}
	proto.Token = p.curToken
	proto.Name = p.curToken.Literal
	p.nextToken()

	if !p.curTokenIs(token.ARROW) {
		p.errorf(p.curToken, token.ErrProtoNoArrow2, "expected '->' after function name %q, got %s", proto.Name, p.curToken)
		return nil
	}
	p.nextToken()

	for p.curTokenIs(token.TYPENAME) {
		arg, ok := p.parseSig(false)
		if !ok {
			return nil
		}
		proto.Outputs = append(proto.Outputs, arg)
	}
	if len(proto.Outputs) == 0 {
		p.errorf(p.curToken, token.ErrProtoNoOutputs, "function %q must declare at least one output type, got %s", proto.Name, p.curToken)
		return nil
	}

	for _, a := range append(append([]ast.Arg(nil), proto.Inputs...), proto.Outputs...) {
		if a.Type.IsTemplate() {
			proto.IsTemplate = true
		}
	}
	return proto
}

// parseSig parses `Type[<N>|[N]][:Name]`.
func (p *Parser) parseSig(nameRequired bool) (ast.Arg, bool) {
	tok := p.curToken
	tag, ok := p.parseType()
	if !ok {
		return ast.Arg{}, false
	}

	arg := ast.Arg{Type: tag}
	if p.curToken.Is(':') {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorf(p.curToken, token.ErrExpectedIdent, "expected parameter name after ':', got %s", p.curToken)
			return ast.Arg{}, false
		}
		arg.Name = p.curToken.Literal
		p.nextToken()
	} else if nameRequired {
		p.errorf(tok, token.ErrProtoArgName, "input of type %s needs a name", tag)
		return ast.Arg{}, false
	}
	return arg, true
}

// parseType parses a type name with an optional vector or array modifier.
func (p *Parser) parseType() (ast.TypeTag, bool) {
	base, ok := ast.ParseBase(p.curToken.Literal)
	if !p.curTokenIs(token.TYPENAME) || !ok {
		p.errorf(p.curToken, token.ErrUnexpectedToken, "expected a type name, got %s", p.curToken)
		return 0, false
	}
	tag := ast.Scalar(base)
	p.nextToken()

	modified := false
	for p.curToken.Is('<') || p.curToken.Is('[') {
		tok := p.curToken
		if modified {
			p.errorf(tok, token.ErrProtoVecAndArray, "type %s: %v", tag, ast.ErrVecAndArray)
			return 0, false
		}
		modified = true

		var err error
		if tok.Is('<') {
			n, ok := p.parseSize('>')
			if !ok {
				return 0, false
			}
			tag, err = tag.WithVector(n)
		} else {
			n, ok := p.parseSize(']')
			if !ok {
				return 0, false
			}
			tag, err = tag.WithArray(n)
		}
		if err != nil {
			p.errorf(tok, token.ErrBadTypeSize, "type %s: %v", tag, err)
			return 0, false
		}
	}
	return tag, true
}

// parseSize parses `N close` with the opening character as the current
// token.
func (p *Parser) parseSize(close byte) (int, bool) {
	p.nextToken()
	tok := p.curToken
	if !p.curTokenIs(token.NUMBER) {
		p.errorf(tok, token.ErrBadTypeSize, "expected a size, got %s", tok)
		return 0, false
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		p.errorf(tok, token.ErrBadTypeSize, "invalid size %q", tok.Literal)
		return 0, false
	}
	p.nextToken()
	if !p.expect(close, token.ErrBadTypeSize) {
		return 0, false
	}
	return n, true
}

// parseStatement parses commands joined by ':'.
func (p *Parser) parseStatement() ast.Expr {
	lhs := p.parseCommand()
	if lhs == nil {
		return nil
	}
	for p.curToken.Is(ast.OpSeq) {
		tok := p.curToken
		p.nextToken()
		rhs := p.parseCommand()
		if rhs == nil {
			return nil
		}
		lhs = &ast.Binary{Token: tok, Op: ast.OpSeq, LHS: lhs, RHS: rhs}
	}
	return lhs
}

// parseCommand parses juxtaposed items. Two or more items form a Command,
// which must end with a call or an assignment target.
func (p *Parser) parseCommand() ast.Expr {
	first := p.parseItem()
	if first == nil {
		return nil
	}
	if !p.startsItem() {
		return first
	}

	cmd := &ast.Command{Token: first.Tok(), Items: []ast.Expr{first}}
	for p.startsItem() {
		item := p.parseItem()
		if item == nil {
			return nil
		}
		cmd.Items = append(cmd.Items, item)
	}

	if !ast.EndsCommand(cmd.Last()) {
		p.errorf(cmd.Last().Tok(), token.ErrCommandEnd, "a command must end with a function call or an assignment, got %s", cmd.Last())
		return nil
	}
	return cmd
}

func (p *Parser) startsItem() bool {
	switch p.curToken.Type {
	case token.NUMBER, token.IDENT:
		return true
	}
	return p.curToken.Is('(') || p.curToken.Is('$')
}

// parseItem parses an expression optionally followed by a conditional or
// loop suffix.
func (p *Parser) parseItem() ast.Expr {
	expr := p.ParseExpression()
	if expr == nil {
		return nil
	}

	tok := p.curToken
	if !tok.Is('?') && !tok.Is('@') {
		return expr
	}
	p.nextToken()

	first, ok := p.parseBlock()
	if !ok {
		return nil
	}
	var second ast.Expr
	if p.curToken.Is('|') {
		p.nextToken()
		if second, ok = p.parseBlock(); !ok {
			return nil
		}
	}

	if tok.Is('?') {
		return &ast.Cond{Token: tok, Cond: expr, True: first, False: second}
	}
	return &ast.Loop{Token: tok, Cond: expr, Body: first, Else: second}
}

// parseBlock parses `{ [stmt] }`. An empty block yields a nil expression.
func (p *Parser) parseBlock() (ast.Expr, bool) {
	if !p.expect('{', token.ErrExpectedBlock) {
		return nil, false
	}
	if p.curToken.Is('}') {
		p.nextToken()
		return nil, true
	}
	body := p.parseStatement()
	if body == nil {
		return nil, false
	}
	if !p.expect('}', token.ErrExpectedBlock) {
		return nil, false
	}
	return body, true
}

// ParseExpression parses a primary followed by any binary operator tail.
func (p *Parser) ParseExpression() ast.Expr {
	lhs := p.parsePrimary()
	if lhs == nil {
		return nil
	}
	return p.parseBinOpRHS(LOWEST, lhs)
}

func (p *Parser) curPrecedence() int {
	if p.curTokenIs(token.CHAR) {
		if prec, ok := precedences[p.curToken.Literal[0]]; ok {
			return prec
		}
	}
	return -1
}

// parseBinOpRHS folds operators binding at least minPrec into lhs. Equal
// precedence associates left; a tighter operator after the right operand is
// absorbed first.
func (p *Parser) parseBinOpRHS(minPrec int, lhs ast.Expr) ast.Expr {
	for {
		prec := p.curPrecedence()
		if prec < minPrec {
			return lhs
		}

		opTok := p.curToken
		p.nextToken()

		rhs := p.parsePrimary()
		if rhs == nil {
			return nil
		}

		if prec < p.curPrecedence() {
			rhs = p.parseBinOpRHS(prec+1, rhs)
			if rhs == nil {
				return nil
			}
		}

		lhs = &ast.Binary{Token: opTok, Op: opTok.Literal[0], LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curToken.Type {
	case token.NUMBER:
		return p.parseNumber()
	case token.IDENT:
		return p.parseIdentifier()
	case token.EOF:
		p.errorf(p.curToken, token.ErrUnexpectedEOF, "expected an expression")
		return nil
	}

	switch {
	case p.curToken.Is('('):
		p.nextToken()
		e := p.parseStatement()
		if e == nil {
			return nil
		}
		if !p.expect(')', token.ErrExpectedRParen) {
			return nil
		}
		return e
	case p.curToken.Is('$'):
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorf(p.curToken, token.ErrExpectedIdent, "expected identifier after '$', got %s", p.curToken)
			return nil
		}
		id := &ast.Ident{Token: p.curToken, Name: p.curToken.Literal, Flag: ast.IdVar}
		p.nextToken()
		if p.curToken.Is('[') {
			return p.parseAccess(id)
		}
		return id
	}

	p.errorf(p.curToken, token.ErrUnexpectedToken, "unexpected %s, expected an expression", p.curToken)
	return nil
}

func (p *Parser) parseNumber() ast.Expr {
	tok := p.curToken
	p.nextToken()

	if strings.Contains(tok.Literal, ".") {
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf(tok, token.ErrBadNumber, "malformed number %q", tok.Literal)
			return nil
		}
		return &ast.Literal{Token: tok, Type: ast.Real, Real: v}
	}

	v, err := strconv.ParseInt(tok.Literal, 10, 32)
	if err != nil {
		p.errorf(tok, token.ErrBadNumber, "integer %q out of range", tok.Literal)
		return nil
	}
	return &ast.Literal{Token: tok, Type: ast.Int, Int: v}
}

// parseIdentifier parses an identifier and its suffix: `!` with an optional
// size declares, `()` calls, `[i]` indexes and `<Type>` instantiates.
func (p *Parser) parseIdentifier() ast.Expr {
	tok := p.curToken
	switch tok.Literal {
	case "true", "false":
		p.nextToken()
		lit := &ast.Literal{Token: tok, Type: ast.Bool}
		if tok.Literal == "true" {
			lit.Int = 1
		}
		return lit
	}

	id := &ast.Ident{Token: tok, Name: tok.Literal}
	p.nextToken()

	switch {
	case p.curToken.Is('!'):
		p.nextToken()
		id.Flag = ast.IdNew
		return p.parseContainerDecl(id)
	case p.curToken.Is('(') && p.peekToken.Is(')'):
		p.nextToken()
		p.nextToken()
		id.Flag = ast.IdFunc
	case p.curToken.Is('['):
		return p.parseAccess(id)
	case p.curToken.Is('<') && p.peekToken.Type == token.TYPENAME:
		p.nextToken()
		tag, ok := p.parseType()
		if !ok {
			return nil
		}
		if !p.expect('>', token.ErrUnexpectedToken) {
			return nil
		}
		return &ast.Template{Token: tok, Name: id.Name, Type: tag}
	}
	return id
}

// parseContainerDecl turns `name!` into a vector or array declaration when a
// `<N>` or `[N]` size follows.
func (p *Parser) parseContainerDecl(id *ast.Ident) ast.Expr {
	var (
		n   int
		ok  bool
		err error
	)
	switch {
	case p.curToken.Is('<'):
		if n, ok = p.parseSize('>'); !ok {
			return nil
		}
		id.Flag = ast.IdVec
		_, err = ast.Scalar(ast.Real).WithVector(n)
	case p.curToken.Is('['):
		if n, ok = p.parseSize(']'); !ok {
			return nil
		}
		id.Flag = ast.IdArray
		_, err = ast.Scalar(ast.Real).WithArray(n)
	default:
		return id
	}
	if err != nil {
		p.errorf(id.Token, token.ErrBadTypeSize, "%s: %v", id.Name, err)
		return nil
	}
	id.Size = n
	return id
}

func (p *Parser) parseAccess(id *ast.Ident) ast.Expr {
	p.nextToken()
	index := p.parseStatement()
	if index == nil {
		return nil
	}
	if !p.expect(']', token.ErrExpectedRBrack) {
		return nil
	}
	return ast.NewAccess(id, index)
}
