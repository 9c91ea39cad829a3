package expression

import (
	"fmt"
	"strconv"
	"strings"
)

// precedence lists binary operators from loosest to tightest binding. The
// order is by operator category, not conventional arithmetic precedence:
// "a - b + c" groups as "(a - b) + c" and "a + b >= c" as "a + (b >= c)".
var precedence = []string{"+", "-", "*", "/", ">=", "<=", "!=", "=", ">", "<"}

type node interface {
	eval(vars map[string]any) (any, error)
}

type literalNode struct {
	value any
}

type identNode struct {
	name string
}

type callNode struct {
	name string
	args []node
}

type binaryNode struct {
	op          string
	left, right node
}

// Program is a parsed expression that can be evaluated repeatedly.
type Program struct {
	source string
	root   node
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// Compile parses an expression without evaluating it.
func Compile(expression string) (*Program, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseLevel(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
	}
	return &Program{source: trimmed, root: root}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseLevel(level int) (node, error) {
	if level >= len(precedence) {
		return p.parsePrimary()
	}
	left, err := p.parseLevel(level + 1)
	if err != nil {
		return nil, err
	}
	op := precedence[level]
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || tok.text != op {
			return left, nil
		}
		p.next()
		right, err := p.parseLevel(level + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %s", ErrSyntax, tok)
		}
		return &literalNode{value: n}, nil
	case tokenString:
		return &literalNode{value: tok.text}, nil
	case tokenIdent:
		if p.peek().kind == tokenLParen {
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &callNode{name: strings.ToUpper(tok.text), args: args}, nil
		}
		switch tok.text {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		case "null":
			return &literalNode{value: nil}, nil
		}
		return &identNode{name: tok.text}, nil
	case tokenLParen:
		inner, err := p.parseLevel(0)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, fmt.Errorf("%w: expected ) got %s", ErrSyntax, closing)
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
	}
}

func (p *parser) parseArgs() ([]node, error) {
	var args []node
	if p.peek().kind == tokenRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseLevel(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.next()
		switch tok.kind {
		case tokenComma:
			continue
		case tokenRParen:
			return args, nil
		default:
			return nil, fmt.Errorf("%w: expected , or ) got %s", ErrSyntax, tok)
		}
	}
}
