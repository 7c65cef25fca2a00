package pparse

import (
	"strconv"
	"strings"

	"github.com/naojsoft/oscript/internal/ast"
)

// ParseToNode parses src and converts the participle-typed AST into the
// generic ast.Node tree shared by the decoder, evaluator, and
// interpreter, mirroring the teacher's convert.go translation step.
func ParseToNode(src string) (*ast.Node, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return convertExpr(e), nil
}

func convertExpr(e *Expr) *ast.Node {
	return convertOr(e.Or)
}

func convertOr(o *OrExpr) *ast.Node {
	left := convertAnd(o.Left)
	if o.Op == "" {
		return left
	}
	return ast.New("or", left, convertAnd(o.Right))
}

func convertAnd(a *AndExpr) *ast.Node {
	left := convertNot(a.Left)
	if a.Op == "" {
		return left
	}
	return ast.New("and", left, convertNot(a.Right))
}

func convertNot(n *NotExpr) *ast.Node {
	cmp := convertCompare(n.Cmp)
	if n.Negate {
		return ast.New("not", cmp)
	}
	return cmp
}

func convertCompare(c *CompareExpr) *ast.Node {
	left := convertAdd(c.Left)
	if c.Op == "" {
		return left
	}
	return ast.New("cmp", strings.ToUpper(c.Op), left, convertAdd(c.Right))
}

func convertAdd(a *AddExpr) *ast.Node {
	node := convertMul(a.Left)
	for _, term := range a.Rest {
		node = ast.New("binop", term.Op, node, convertMul(term.Right))
	}
	return node
}

func convertMul(m *MulExpr) *ast.Node {
	node := convertUnary(m.Left)
	for _, term := range m.Rest {
		node = ast.New("binop", term.Op, node, convertUnary(term.Right))
	}
	return node
}

func convertUnary(u *UnaryExpr) *ast.Node {
	node := convertPrimary(u.Primary)
	if u.Sign == "-" {
		return ast.New("neg", node)
	}
	return node
}

func convertPrimary(p *Primary) *ast.Node {
	switch {
	case p.Float != nil:
		return ast.New("num", *p.Float)
	case p.Int != nil:
		return ast.New("num", float64(*p.Int))
	case p.QString != nil:
		return ast.New("str", unquote(*p.QString))
	case p.LString != nil:
		return ast.New("str", (*p.LString)[1:len(*p.LString)-1])
	case p.GetFNo != nil:
		idx, _ := strconv.Atoi(strings.Trim(p.GetFNo.Index, "[]"))
		return ast.New("getfno", int64(idx))
	case p.IdRef != nil:
		return ast.New("varref", strings.ToUpper((*p.IdRef)[1:]))
	case p.RegRef != nil:
		return ast.New("regref", strings.ToUpper((*p.RegRef)[1:]))
	case p.AliasRef != nil:
		return ast.New("statusref", strings.ToUpper((*p.AliasRef)[1:]))
	case p.Call != nil:
		return convertCall(p.Call)
	case p.Ident != nil:
		return ast.New("id", strings.ToUpper(*p.Ident))
	case p.SubExpr != nil:
		return convertExpr(p.SubExpr)
	}
	return ast.New("nil")
}

func convertCall(c *FuncCall) *ast.Node {
	n := ast.New("call", strings.ToUpper(c.Name))
	for _, a := range c.Args {
		n.Append(convertExpr(a))
	}
	return n
}

func unquote(s string) string {
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	return s
}
