// Package opeparse parses OPE command lines: direct-dispatch commands
// (EXEC SUBSYS CMD param=val ...) and abstract-command invocations of a named
// SK skeleton, both using a local copy of pparse's expression grammar
// (spec §4.5).
package opeparse

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/obserr"
)

var cmdLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "QString", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "LString", Pattern: `\[[^\]]*\]`},
	{Name: "GetFNo", Pattern: `&GET_F_NO`},
	{Name: "IdRef", Pattern: `\$[A-Za-z_][\w.]*`},
	{Name: "RegRef", Pattern: `@[A-Za-z_][\w.]*`},
	{Name: "AliasRef", Pattern: `![A-Za-z_][\w.]*`},
	{Name: "Exec", Pattern: `(?i)\bEXEC\b`},
	{Name: "Keyword", Pattern: `(?i)\b(AND|OR|NOT|IN)\b`},
	{Name: "Ident", Pattern: `[A-Za-z0-9][\w.:]*`},
	{Name: "Punct", Pattern: `==|!=|>=|<=|[-+*/(),=<>]`},
})

// Command is the union grammar for a single OPE statement (spec §4.5):
// dd_cmd ::= EXEC factor factor param_list, or abs_cmd ::= factor
// param_list. The leading EXEC keyword, not a dot in the name, is what
// decides which form applies.
type Command struct {
	Dd  *DdCmd  `parser:"( @@"`
	Abs *AbsCmd `parser:"| @@ )"`
}

// DdCmd is a direct-dispatch command: EXEC subsys cmd param_list.
type DdCmd struct {
	Subsys string   `parser:"Exec @Ident"`
	Cmd    string   `parser:"@Ident"`
	Params []*Param `parser:"( @@ ( \",\"? @@ )* )?"`
}

// AbsCmd is a bare abstract-command invocation by name.
type AbsCmd struct {
	Name   string   `parser:"@Ident"`
	Params []*Param `parser:"( @@ ( \",\"? @@ )* )?"`
}

type Param struct {
	Key   string  `parser:"( @Ident \"=\""`
	Value *Expr   `parser:"  @@"`
	Bare  *Expr   `parser:"| @@ )"`
}

// Expr re-declares the pparse expression grammar locally so it shares
// this package's lexer instance; participle requires every type in a
// single parse tree to be built against one lexer.
type Expr struct {
	Or *OrExpr `parser:"@@"`
}
type OrExpr struct {
	Left  *AndExpr `parser:"@@"`
	Op    string   `parser:"( @(\"OR\")"`
	Right *AndExpr `parser:"  @@ )*"`
}
type AndExpr struct {
	Left  *CompareExpr `parser:"@@"`
	Op    string       `parser:"( @(\"AND\")"`
	Right *CompareExpr `parser:"  @@ )*"`
}
type CompareExpr struct {
	Left  *AddExpr `parser:"@@"`
	Op    string   `parser:"( @(\"==\" | \"!=\" | \">=\" | \"<=\" | \">\" | \"<\")"`
	Right *AddExpr `parser:"  @@ )?"`
}
type AddExpr struct {
	Left *MulExpr     `parser:"@@"`
	Rest []*AddOpTerm `parser:"@@*"`
}
type AddOpTerm struct {
	Op    string   `parser:"@(\"+\" | \"-\")"`
	Right *MulExpr `parser:"@@"`
}
type MulExpr struct {
	Left *UnaryExpr   `parser:"@@"`
	Rest []*MulOpTerm `parser:"@@*"`
}
type MulOpTerm struct {
	Op    string     `parser:"@(\"*\" | \"/\")"`
	Right *UnaryExpr `parser:"@@"`
}
type UnaryExpr struct {
	Sign    string   `parser:"( @(\"+\" | \"-\") )?"`
	Primary *Primary `parser:"@@"`
}
type Primary struct {
	Float    *float64 `parser:"( @Float"`
	Int      *int64   `parser:"| @Int"`
	QString  *string  `parser:"| @QString"`
	LString  *string  `parser:"| @LString"`
	IdRef    *string  `parser:"| @IdRef"`
	RegRef   *string  `parser:"| @RegRef"`
	AliasRef *string  `parser:"| @AliasRef"`
	Ident    *string  `parser:"| @Ident"`
	SubExpr  *Expr    `parser:"| \"(\" @@ \")\" )"`
}

var cmdParser = participle.MustBuild[Command](
	participle.Lexer(cmdLexer),
	participle.CaseInsensitive("Keyword", "Exec"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses a single OPE command line into a Command AST.
func Parse(src string) (*Command, error) {
	return cmdParser.ParseString("", src)
}

func paramNodes(params []*Param) []any {
	items := make([]any, 0, len(params))
	for _, p := range params {
		switch {
		case p.Key != "":
			items = append(items, ast.New("param", strings.ToUpper(p.Key), convertExpr(p.Value)))
		case p.Bare != nil:
			items = append(items, ast.New("param", "", convertExpr(p.Bare)))
		}
	}
	return items
}

// ParseToNode parses a single OPE command line and converts it to the
// shared ast.Node shape, wrapped in a "cmdlist" node (spec §4.5: "Top
// level result is wrapped cmdlist(<cmd>)"). A dd_cmd's EXEC keyword
// decides dispatch through the given subsystem/command pair; anything
// else is an abs_cmd invoking a named abstract command.
func ParseToNode(src string) (*ast.Node, error) {
	c, err := Parse(src)
	if err != nil {
		return nil, err
	}
	var cmd *ast.Node
	switch {
	case c.Dd != nil:
		name := strings.ToUpper(c.Dd.Subsys) + "." + strings.ToUpper(c.Dd.Cmd)
		items := append([]any{name}, paramNodes(c.Dd.Params)...)
		cmd = ast.New("dd_cmd", items...)
	case c.Abs != nil:
		items := append([]any{strings.ToUpper(c.Abs.Name)}, paramNodes(c.Abs.Params)...)
		cmd = ast.New("abs_cmd", items...)
	default:
		return nil, obserr.Parse(0, "empty OPE command", src)
	}
	return ast.New("cmdlist", cmd), nil
}

func convertExpr(e *Expr) *ast.Node { return convertOr(e.Or) }

func convertOr(o *OrExpr) *ast.Node {
	left := convertAnd(o.Left)
	if o.Op == "" {
		return left
	}
	return ast.New("or", left, convertAnd(o.Right))
}

func convertAnd(a *AndExpr) *ast.Node {
	left := convertCompare(a.Left)
	if a.Op == "" {
		return left
	}
	return ast.New("and", left, convertCompare(a.Right))
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
	for _, t := range a.Rest {
		node = ast.New("binop", t.Op, node, convertMul(t.Right))
	}
	return node
}

func convertMul(m *MulExpr) *ast.Node {
	node := convertUnary(m.Left)
	for _, t := range m.Rest {
		node = ast.New("binop", t.Op, node, convertUnary(t.Right))
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
		s := *p.QString
		if len(s) >= 2 {
			s = s[1 : len(s)-1]
		}
		return ast.New("str", s)
	case p.LString != nil:
		return ast.New("str", (*p.LString)[1:len(*p.LString)-1])
	case p.IdRef != nil:
		return ast.New("varref", strings.ToUpper((*p.IdRef)[1:]))
	case p.RegRef != nil:
		return ast.New("regref", strings.ToUpper((*p.RegRef)[1:]))
	case p.AliasRef != nil:
		return ast.New("statusref", strings.ToUpper((*p.AliasRef)[1:]))
	case p.Ident != nil:
		return ast.New("id", strings.ToUpper(*p.Ident))
	case p.SubExpr != nil:
		return convertExpr(p.SubExpr)
	}
	return ast.New("nil")
}
