package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/gospel/pkg/types"
)

// Parser implements a recursive descent parser for GoSpel expressions.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	arena   *types.NodeArena
}

// NewParser creates a new parser for the given input string.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		arena: types.NewNodeArena(),
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire expression and returns the compiled Expression.
func (p *Parser) Parse() (*types.Expression, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrUnexpectedToken, "Empty expression")
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenEOF {
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}

	return types.NewExpression(node, p.lexer.input, p.arena), nil
}

// Operator precedence table (binding power).
// Higher values bind more tightly.
var precedence = map[TokenType]int{
	TokenQuestion:     15, // ?: ternary
	TokenOr:           25, // or
	TokenAnd:          30, // and
	TokenEqual:        40, // ==
	TokenNotEqual:     40, // !=
	TokenLess:         40, // <
	TokenLessEqual:    40, // <=
	TokenGreater:      40, // >
	TokenGreaterEqual: 40, // >=
	TokenMatches:      40, // matches
	TokenPlus:         50, // +
	TokenMinus:        50, // -
	TokenMult:         60, // *
	TokenDiv:          60, // /
	TokenMod:          60, // %
	TokenDot:          75, // .
}

// unaryPrecedence is the binding power of prefix - and !.
// Tighter than multiplication, looser than navigation, so that
// "-a.b" parses as -(a.b) and "-2*3" as (-2)*3.
const unaryPrecedence = 70

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks that the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt.String(), p.current.Type.String()))
	}
	p.advance()
	return nil
}

// error creates a parser error at the current token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*types.ASTNode, error) {
	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
// These are expressions that don't require a left-hand side.
func (p *Parser) parsePrefix() (*types.ASTNode, error) {
	token := p.current

	switch token.Type {
	case TokenString:
		return p.parseString()
	case TokenNumber:
		return p.parseNumber()
	case TokenBoolean:
		return p.parseBoolean()
	case TokenNull:
		return p.parseNull()
	case TokenName:
		// T(name) is a type reference, any other name a property read
		if token.Value == "T" {
			return p.parseTypeRef()
		}
		return p.parseProperty()
	case TokenVariable:
		return p.parseVariableOrCall()
	case TokenMinus:
		return p.parseUnary("-")
	case TokenNot:
		return p.parseUnary("!")
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenError:
		return nil, p.lexer.Error()
	default:
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected token: %s", token.Type.String()))
	}
}

// parseInfix parses an infix expression (led - left denotation).
// These are expressions that require a left-hand side.
func (p *Parser) parseInfix(left *types.ASTNode) (*types.ASTNode, error) {
	token := p.current

	switch token.Type {
	case TokenDot:
		return p.parseNavigation(left)
	case TokenQuestion:
		return p.parseTernary(left)
	case TokenAnd, TokenOr,
		TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
		TokenMatches, TokenPlus, TokenMinus, TokenMult, TokenDiv, TokenMod:
		return p.parseBinary(left)
	default:
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected token: %s", token.Type.String()))
	}
}

// parseString parses a string literal, resolving escape sequences.
func (p *Parser) parseString() (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeString, p.current.Position)

	value, err := unescapeString(p.current.Value)
	if err != nil {
		return nil, p.error(types.ErrUnexpectedToken, err.Error())
	}
	node.Value = value
	node.StrValue = value

	p.advance()
	return node, nil
}

// parseNumber parses a number literal.
// Plain digit runs become int64, anything with a decimal point or
// exponent becomes float64.
func (p *Parser) parseNumber() (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeNumber, p.current.Position)
	raw := p.current.Value

	if strings.ContainsAny(raw, ".eE") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, p.error(types.ErrNumberMalformed, fmt.Sprintf("Invalid number literal %q", raw))
		}
		node.Value = f
	} else {
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, p.error(types.ErrNumberMalformed, fmt.Sprintf("Invalid number literal %q", raw))
		}
		node.Value = i
	}

	p.advance()
	return node, nil
}

// parseBoolean parses a true/false literal.
func (p *Parser) parseBoolean() (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeBoolean, p.current.Position)
	node.Value = p.current.Value == "true"
	p.advance()
	return node, nil
}

// parseNull parses the null literal.
func (p *Parser) parseNull() (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeNull, p.current.Position)
	p.advance()
	return node, nil
}

// parseProperty parses a bare name as a property read on the active
// context object.
func (p *Parser) parseProperty() (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeProperty, p.current.Position)
	node.StrValue = p.current.Value
	p.advance()
	return node, nil
}

// parseTypeRef parses a type reference: T(name).
func (p *Parser) parseTypeRef() (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeTypeRef, p.current.Position)
	p.advance() // consume T

	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	if p.current.Type != TokenName {
		return nil, p.error(types.ErrExpectedToken, "Expected type name inside T()")
	}
	node.StrValue = p.current.Value
	p.advance()
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	return node, nil
}

// parseVariableOrCall parses a variable reference #name, or a function
// invocation #name(args...) when the reference is immediately applied.
func (p *Parser) parseVariableOrCall() (*types.ASTNode, error) {
	token := p.current
	p.advance()

	if p.current.Type != TokenParenOpen {
		node := p.arena.Alloc(types.NodeVariable, token.Position)
		node.StrValue = token.Value
		return node, nil
	}

	node := p.arena.Alloc(types.NodeCall, token.Position)
	node.StrValue = token.Value
	p.advance() // consume (

	for p.current.Type != TokenParenClose {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)

		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	return node, nil
}

// parseUnary parses a prefix - or ! expression.
func (p *Parser) parseUnary(op string) (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeUnary, p.current.Position)
	node.StrValue = op
	p.advance()

	operand, err := p.parseExpression(unaryPrecedence)
	if err != nil {
		return nil, err
	}
	node.LHS = operand

	return node, nil
}

// parseGrouping parses a parenthesised subexpression.
func (p *Parser) parseGrouping() (*types.ASTNode, error) {
	p.advance() // consume (

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	return node, nil
}

// parseNavigation parses a dotted navigation step: left.name.
// Consecutive steps collapse into a single compound node so that the
// evaluator can manage the active-context-object stack per step.
func (p *Parser) parseNavigation(left *types.ASTNode) (*types.ASTNode, error) {
	p.advance() // consume .

	if p.current.Type != TokenName {
		return nil, p.error(types.ErrExpectedToken, "Expected property name after '.'")
	}

	step := p.arena.Alloc(types.NodeProperty, p.current.Position)
	step.StrValue = p.current.Value
	p.advance()

	if left.Type == types.NodeCompound {
		left.Steps = append(left.Steps, step)
		return left, nil
	}

	node := p.arena.Alloc(types.NodeCompound, left.Position)
	node.Steps = []*types.ASTNode{left, step}
	return node, nil
}

// parseTernary parses cond ? then : else. The else branch is parsed with a
// reduced binding power so that the operator is right-associative.
func (p *Parser) parseTernary(cond *types.ASTNode) (*types.ASTNode, error) {
	node := p.arena.Alloc(types.NodeTernary, p.current.Position)
	node.LHS = cond
	p.advance() // consume ?

	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	node.RHS = then

	if err := p.expect(TokenColon); err != nil {
		return nil, err
	}

	els, err := p.parseExpression(precedence[TokenQuestion] - 1)
	if err != nil {
		return nil, err
	}
	node.Else = els

	return node, nil
}

// parseBinary parses a binary operator expression (left-associative).
func (p *Parser) parseBinary(left *types.ASTNode) (*types.ASTNode, error) {
	token := p.current
	node := p.arena.Alloc(types.NodeBinary, token.Position)
	node.StrValue = opName(token.Type)
	node.LHS = left
	p.advance()

	right, err := p.parseExpression(p.getPrecedence(token.Type))
	if err != nil {
		return nil, err
	}
	node.RHS = right

	return node, nil
}

// opName returns the canonical operator name for a binary operator token.
func opName(tt TokenType) string {
	switch tt {
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenEqual:
		return "=="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenMatches:
		return "matches"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	case TokenMod:
		return "%"
	default:
		return tt.String()
	}
}

// unescapeString resolves backslash escape sequences in a string literal body.
func unescapeString(raw string) (string, error) {
	if !strings.ContainsRune(raw, '\\') {
		return raw, nil
	}

	var b strings.Builder
	b.Grow(len(raw))

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		i++
		if i >= len(raw) {
			return "", fmt.Errorf("dangling escape at end of string")
		}

		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'u':
			if i+4 >= len(raw) {
				return "", fmt.Errorf("truncated \\u escape")
			}
			code, err := strconv.ParseUint(raw[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid \\u escape %q", raw[i+1:i+5])
			}
			b.WriteRune(rune(code))
			i += 4
		default:
			return "", fmt.Errorf("unsupported escape \\%c", raw[i])
		}
	}

	return b.String(), nil
}
