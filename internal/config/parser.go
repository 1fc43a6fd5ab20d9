package config

import (
	liberr "github.com/nabbar/webserv/internal/errors"
)

// Parser drives the lexer into a directive tree. It tracks nest_depth and
// current_context the way spec.md's grammar requires: only `server` blocks
// are legal at main context, and entering a `server`/`location` block
// updates current_context for everything nested inside it.
type Parser struct {
	lex *Lexer
	tok Token
	err error
}

// Parse lexes and parses the full config, returning the top-level
// directive list (the validator admits only `server` and `log` at main
// context) or the first *errors.ConfigError encountered.
func Parse(src []byte) ([]*Directive, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p.parseBlock(CtxMain, 0)
}

func (p *Parser) next() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// parseBlock parses directives until an RBRACE (if depth > 0) or EOF (if
// depth == 0), returning the parsed children. An unmatched RBRACE or EOF
// mid-block is a ParseError.
func (p *Parser) parseBlock(ctx Context, depth int) ([]*Directive, error) {
	var out []*Directive

	for {
		switch p.tok.Type {
		case TokenEOF:
			if depth > 0 {
				return nil, liberr.NewConfigError(liberr.ConfigParse, p.tok.Line, p.tok.Col, "unexpected end of file, expected \"}\"")
			}
			return out, nil
		case TokenRBrace:
			if depth == 0 {
				return nil, liberr.NewConfigError(liberr.ConfigParse, p.tok.Line, p.tok.Col, "unexpected \"}\"")
			}
			return out, nil
		case TokenWord:
			d, err := p.parseDirective(ctx, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		default:
			return nil, liberr.NewConfigError(liberr.ConfigParse, p.tok.Line, p.tok.Col, "expected a directive name")
		}
	}
}

// parseDirective reads one WORD (the name), accumulates argument tokens
// until a SEMICOLON or LBRACE, validates, then either recurses into a
// block or returns a leaf.
func (p *Parser) parseDirective(ctx Context, depth int) (*Directive, error) {
	d := &Directive{Name: p.tok.Value, Line: p.tok.Line, Col: p.tok.Col, Context: ctx}

	if err := p.next(); err != nil {
		return nil, err
	}

	for p.tok.Type == TokenWord || p.tok.Type == TokenQuoted {
		d.Args = append(d.Args, p.tok.Value)
		if err := p.next(); err != nil {
			return nil, err
		}
	}

	switch p.tok.Type {
	case TokenSemicolon:
		if err := Validate(d); err != nil {
			return nil, err
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return d, nil

	case TokenLBrace:
		d.Block = true
		if err := Validate(d); err != nil {
			return nil, err
		}

		childCtx := ctx
		switch d.Name {
		case "server":
			childCtx = CtxServer
		case "location":
			childCtx = CtxLocation
		}

		if err := p.next(); err != nil {
			return nil, err
		}

		children, err := p.parseBlock(childCtx, depth+1)
		if err != nil {
			return nil, err
		}
		d.Children = children

		if p.tok.Type != TokenRBrace {
			return nil, liberr.NewConfigError(liberr.ConfigParse, p.tok.Line, p.tok.Col, "expected \"}\"")
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return d, nil

	default:
		return nil, liberr.NewConfigError(liberr.ConfigParse, p.tok.Line, p.tok.Col, "expected \";\" or \"{\"")
	}
}
