// Package pparse implements the shared parameter/expression grammar used
// by both OPE command arguments and SK statement expressions (spec
// §4.4). It is built with participle, the same struct-tag parser
// combinator the teacher repo used for its DSL grammar.
package pparse

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
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
	{Name: "Keyword", Pattern: `(?i)\b(AND|OR|NOT|IN)\b`},
	{Name: "Ident", Pattern: `[A-Za-z0-9][\w.:]*`},
	{Name: "Punct", Pattern: `==|!=|>=|<=|&&|\|\||[-+*/(),=<>]`},
})

// Expr is the participle-typed AST for the full expression grammar.
// Precedence, from loosest to tightest: OR, AND, NOT, comparison,
// additive, multiplicative, unary, primary.
type Expr struct {
	Or *OrExpr `parser:"@@"`
}

type OrExpr struct {
	Left  *AndExpr `parser:"@@"`
	Op    string   `parser:"( @(\"OR\")"`
	Right *AndExpr `parser:"  @@ )*"`
}

type AndExpr struct {
	Left  *NotExpr `parser:"@@"`
	Op    string   `parser:"( @(\"AND\")"`
	Right *NotExpr `parser:"  @@ )*"`
}

type NotExpr struct {
	Negate bool        `parser:"( @\"NOT\" )?"`
	Cmp    *CompareExpr `parser:"@@"`
}

type CompareExpr struct {
	Left  *AddExpr `parser:"@@"`
	Op    string   `parser:"( @(\"==\" | \"!=\" | \">=\" | \"<=\" | \">\" | \"<\")"`
	Right *AddExpr `parser:"  @@ )?"`
}

type AddExpr struct {
	Left  *MulExpr     `parser:"@@"`
	Rest  []*AddOpTerm `parser:"@@*"`
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

// Primary covers every atomic term in spec §4.4's grammar: literals,
// variable/register/alias/frame references, function calls, and
// parenthesized sub-expressions.
type Primary struct {
	Float    *float64  `parser:"( @Float"`
	Int      *int64    `parser:"| @Int"`
	QString  *string   `parser:"| @QString"`
	LString  *string   `parser:"| @LString"`
	GetFNo   *GetFNo   `parser:"| @@"`
	IdRef    *string   `parser:"| @IdRef"`
	RegRef   *string   `parser:"| @RegRef"`
	AliasRef *string   `parser:"| @AliasRef"`
	Call     *FuncCall `parser:"| @@"`
	Ident    *string   `parser:"| @Ident"`
	SubExpr  *Expr     `parser:"| \"(\" @@ \")\" )"`
}

// GetFNo is the &GET_F_NO[n] frame-lookup form (spec glossary: Frame).
type GetFNo struct {
	Marker string `parser:"@GetFNo"`
	Index  string `parser:"@LString"`
}

// FuncCall is NAME(arg, arg, ...). It converts to a "call" node, which
// the evaluator resolves against its built-in function table only.
type FuncCall struct {
	Name string  `parser:"@Ident \"(\""`
	Args []*Expr `parser:"( @@ ( \",\" @@ )* )? \")\""`
}

var exprParser = participle.MustBuild[Expr](
	participle.Lexer(exprLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses a single expression from src.
func Parse(src string) (*Expr, error) {
	return exprParser.ParseString("", src)
}
