// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package trigger

import "fmt"

// Parse compiles a trigger expression into an Expr tree without evaluating
// it. This is exactly what verify_trigger (§4.2, §6) calls: a syntax-only
// check, so a job can be admitted with a trigger that currently refers to
// a key no monitor has written yet.
//
//	expr := conj ('or' conj)*
//	conj := atom ('and' atom)*
//	atom := ident cmp literal | '(' expr ')'
func Parse(expr string) (*Expr, error) {
	tokens, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("trigger: unexpected trailing input at token %d", p.pos)
	}
	return node, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (*Expr, error) {
	first, err := p.parseConj()
	if err != nil {
		return nil, err
	}
	ors := []*Expr{first}
	for p.peek().kind == tokenOr {
		p.next()
		next, err := p.parseConj()
		if err != nil {
			return nil, err
		}
		ors = append(ors, next)
	}
	if len(ors) == 1 {
		return ors[0], nil
	}
	return &Expr{Or: ors}, nil
}

func (p *parser) parseConj() (*Expr, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	ands := []*Expr{first}
	for p.peek().kind == tokenAnd {
		p.next()
		next, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		ands = append(ands, next)
	}
	if len(ands) == 1 {
		return ands[0], nil
	}
	return &Expr{And: ands}, nil
}

func (p *parser) parseAtom() (*Expr, error) {
	if p.peek().kind == tokenLParen {
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("trigger: expected ')' at token %d", p.pos)
		}
		p.next()
		return inner, nil
	}

	identTok := p.next()
	if identTok.kind != tokenIdent {
		return nil, fmt.Errorf("trigger: expected identifier at token %d", p.pos-1)
	}

	cmpTok := p.next()
	if cmpTok.kind != tokenCmp {
		return nil, fmt.Errorf("trigger: expected comparator after %q", identTok.text)
	}

	litTok := p.next()
	var lit Literal
	switch litTok.kind {
	case tokenNumber:
		lit = Literal{Number: litTok.num}
	case tokenString:
		lit = Literal{IsString: true, String: litTok.text}
	default:
		return nil, fmt.Errorf("trigger: expected literal after comparator %q", cmpTok.text)
	}

	return &Expr{Cmp: &Comparison{Ident: identTok.text, Op: cmpTok.text, Lit: lit}}, nil
}
