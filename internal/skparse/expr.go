package skparse

import (
	"strconv"
	"strings"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/obserr"
	"github.com/naojsoft/oscript/internal/sklex"
	"github.com/naojsoft/oscript/internal/token"
)

// expr parses the same precedence chain as pparse's participle grammar
// (spec §4.4), but directly over the sklex token stream: SK statements
// are embedded inside a block structure that a pure text re-parse
// would have to reconstruct offsets for, so the statement parser below
// calls this recursive-descent expression parser inline instead of
// invoking the pparse package on a sliced substring.
func (p *Parser) expr() (*ast.Node, error) {
	return p.orExpr()
}

func (p *Parser) orExpr() (*ast.Node, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == sklex.OR {
		p.pos++
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = ast.New("or", left, right)
	}
	return left, nil
}

func (p *Parser) andExpr() (*ast.Node, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == sklex.AND {
		p.pos++
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		left = ast.New("and", left, right)
	}
	return left, nil
}

func (p *Parser) notExpr() (*ast.Node, error) {
	if p.peek().Kind == sklex.NOT {
		p.pos++
		inner, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return ast.New("not", inner), nil
	}
	return p.cmpExpr()
}

var cmpOps = map[token.Kind]string{
	sklex.EQ: "==", sklex.NE: "!=", sklex.LT: "<", sklex.LE: "<=", sklex.GT: ">", sklex.GE: ">=",
}

func (p *Parser) cmpExpr() (*ast.Node, error) {
	left, err := p.addExpr()
	if err != nil {
		return nil, err
	}
	if op, ok := cmpOps[p.peek().Kind]; ok {
		p.pos++
		right, err := p.addExpr()
		if err != nil {
			return nil, err
		}
		return ast.New("cmp", op, left, right), nil
	}
	return left, nil
}

func (p *Parser) addExpr() (*ast.Node, error) {
	left, err := p.mulExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == sklex.ADD || p.peek().Kind == sklex.SUB {
		op := "+"
		if p.peek().Kind == sklex.SUB {
			op = "-"
		}
		p.pos++
		right, err := p.mulExpr()
		if err != nil {
			return nil, err
		}
		left = ast.New("binop", op, left, right)
	}
	return left, nil
}

func (p *Parser) mulExpr() (*ast.Node, error) {
	left, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == sklex.MUL || p.peek().Kind == sklex.DIV {
		op := "*"
		if p.peek().Kind == sklex.DIV {
			op = "/"
		}
		p.pos++
		right, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		left = ast.New("binop", op, left, right)
	}
	return left, nil
}

func (p *Parser) unaryExpr() (*ast.Node, error) {
	if p.peek().Kind == sklex.SUB {
		p.pos++
		inner, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return ast.New("neg", inner), nil
	}
	if p.peek().Kind == sklex.ADD {
		p.pos++
		return p.unaryExpr()
	}
	return p.primary()
}

func (p *Parser) primary() (*ast.Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case sklex.NUM:
		p.pos++
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, obserr.Parse(tok.Line, "malformed number", tok.Value)
		}
		return ast.New("num", f), nil
	case sklex.QSTR:
		p.pos++
		return ast.New("str", tok.Value), nil
	case sklex.LSTR:
		p.pos++
		return ast.New("str", tok.Value), nil
	case sklex.IDREF:
		p.pos++
		return ast.New("varref", strings.ToUpper(tok.Value)), nil
	case sklex.REGREF:
		p.pos++
		return ast.New("regref", strings.ToUpper(tok.Value)), nil
	case sklex.ALIASREF:
		p.pos++
		return ast.New("statusref", strings.ToUpper(tok.Value)), nil
	case sklex.GETFNO:
		p.pos++
		idxTok := p.peek()
		if idxTok.Kind != sklex.LSTR {
			return nil, obserr.Parse(idxTok.Line, "expected [n] after &GET_F_NO", idxTok.Value)
		}
		p.pos++
		idx, err := strconv.Atoi(strings.TrimSpace(idxTok.Value))
		if err != nil {
			return nil, obserr.Parse(idxTok.Line, "malformed frame index", idxTok.Value)
		}
		return ast.New("getfno", int64(idx)), nil
	case sklex.LPAREN:
		p.pos++
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != sklex.RPAREN {
			return nil, obserr.Parse(p.peek().Line, "expected ')'", p.peek().Value)
		}
		p.pos++
		return inner, nil
	case sklex.ID:
		p.pos++
		if p.peek().Kind == sklex.LPAREN {
			return p.callArgs(tok.Value)
		}
		return ast.New("id", tok.Value), nil
	default:
		return nil, obserr.Parse(tok.Line, "expected an expression", tok.Value)
	}
}

func (p *Parser) callArgs(name string) (*ast.Node, error) {
	p.pos++ // consume '('
	n := ast.New("call", strings.ToUpper(name))
	if p.peek().Kind == sklex.RPAREN {
		p.pos++
		return n, nil
	}
	for {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		n.Append(arg)
		if p.peek().Kind == sklex.COMMA {
			p.pos++
			continue
		}
		break
	}
	if p.peek().Kind != sklex.RPAREN {
		return nil, obserr.Parse(p.peek().Line, "expected ')'", p.peek().Value)
	}
	p.pos++
	return n, nil
}
