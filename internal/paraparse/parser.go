package paraparse

import (
	"strings"

	"github.com/naojsoft/oscript/internal/obserr"
	"github.com/naojsoft/oscript/internal/obslog"
	"github.com/naojsoft/oscript/internal/paralex"
	"github.com/naojsoft/oscript/internal/token"
)

var log = obslog.Named("para.parser")

// Parser walks a PARA token stream statement by statement. Each
// statement is one parameter name followed by one or more juxtaposed
// key=value definitions:
//
//	NAME TYPE=NUMBER MIN=0 MAX=3600 DEFAULT=10
//	NAME SET=(R,V,B) DEFAULT=R
//	NAME CASE=(MODE=SPEC) TYPE=NUMBER DEFAULT=1
//
// grounded on para_parser.py's param_def/defs_list/defs productions.
type Parser struct {
	toks []token.Token
	pos  int
	errs []error
}

// Parse tokenizes src with paralex and parses the resulting stream into
// a parameter definition Table. Errors are accumulated, not fatal:
// a malformed statement is skipped up to the next NEWLINE and parsing
// continues, matching the lex/parse accumulate-and-continue policy
// (spec §7).
func Parse(src string, startLine int) (*Table, []error) {
	lexed := paralex.Tokenize(src, startLine)
	p := &Parser{toks: lexed.Tokens}
	for _, e := range lexed.ErrInfo {
		p.errs = append(p.errs, obserr.Scan(e.Line, e.Message, e.Token))
	}

	table := NewTable()
	for !p.atEnd() {
		if p.peek().Kind == paralex.NEWLINE {
			p.pos++
			continue
		}
		p.statement(table)
	}
	return table, p.errs
}

func (p *Parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *Parser) peek() token.Token {
	if p.atEnd() {
		return token.Token{Kind: "", Line: -1}
	}
	return p.toks[p.pos]
}

func (p *Parser) statement(table *Table) {
	start := p.pos
	nameTok := p.peek()
	if nameTok.Kind != paralex.ID {
		p.fail(nameTok.Line, "expected parameter name")
		p.skipToNewline()
		return
	}
	name := strings.ToUpper(nameTok.Value)
	p.pos++

	spec := &ParamSpec{}
	sawAny := false
	for p.peek().Kind == paralex.ID || p.peek().Kind == paralex.STR {
		if !p.def(spec) {
			p.recoverFrom(start)
			return
		}
		sawAny = true
	}
	if !sawAny {
		p.fail(p.peek().Line, "expected at least one key=value definition")
		p.recoverFrom(start)
		return
	}

	table.GetOrCreate(name).AddParamDef(spec)
}

// def parses one "KEY = rhs" pair into spec, matching
// para_parser.py's p_defs productions. CASE is special-cased to the
// LPAREN ID EQ STR (COMMA ...)* RPAREN condition grammar; every other
// key takes a scalar rhs (FSTR/REGREF/ALIASREF/FUNCREF/LSTR) or a
// comma-separated list of STR/QSTR/ID values, optionally wrapped in
// parens (spec §8 scenario 5's literal SET=(R,V,B)). SET keeps the
// list form; everything else collapses a single-element list to a
// scalar, matching p_defs_2's non-SET branch.
func (p *Parser) def(spec *ParamSpec) bool {
	keyTok := p.peek()
	key := strings.ToUpper(keyTok.Value)
	p.pos++
	if p.peek().Kind != paralex.EQ {
		p.fail(p.peek().Line, "expected '=' after "+key)
		return false
	}
	p.pos++

	if key == "CASE" {
		cond, ok := p.caseCond()
		if !ok {
			return false
		}
		spec.Case = cond
		return true
	}

	if tok := p.peek(); tok.Kind == paralex.FSTR || tok.Kind == paralex.REGREF ||
		tok.Kind == paralex.ALIASREF || tok.Kind == paralex.FUNCREF || tok.Kind == paralex.LSTR {
		p.pos++
		applyScalar(spec, key, tok.Value)
		return true
	}

	vals, ok := p.listValue()
	if !ok {
		return false
	}
	vals, nop := stripNop(vals)
	if nop {
		spec.Nop = true
	}
	if key == "SET" {
		spec.Set = vals
		return true
	}
	if len(vals) > 0 {
		applyScalar(spec, key, vals[0])
	}
	return true
}

// listValue reads either a parenthesized or bare comma-separated list
// of values.
func (p *Parser) listValue() ([]string, bool) {
	if p.peek().Kind == paralex.LPAREN {
		p.pos++
		vals, ok := p.commaSeparatedList()
		if !ok {
			return nil, false
		}
		if p.peek().Kind != paralex.RPAREN {
			p.fail(p.peek().Line, "expected ')' to close list")
			return nil, false
		}
		p.pos++
		return vals, true
	}
	return p.commaSeparatedList()
}

func (p *Parser) commaSeparatedList() ([]string, bool) {
	var vals []string
	for {
		tok := p.peek()
		switch tok.Kind {
		case paralex.ID, paralex.STR, paralex.QSTR:
			vals = append(vals, tok.Value)
			p.pos++
		default:
			p.fail(tok.Line, "expected value in list")
			return nil, false
		}
		if p.peek().Kind == paralex.COMMA {
			p.pos++
			continue
		}
		return vals, true
	}
}

// caseCond parses LPAREN ID EQ STR (COMMA ID EQ STR)* RPAREN, matching
// para_parser.py's case_cond_list.
func (p *Parser) caseCond() (Condition, bool) {
	if p.peek().Kind != paralex.LPAREN {
		p.fail(p.peek().Line, "expected '(' to start CASE condition")
		return nil, false
	}
	p.pos++
	var cond Condition
	for {
		keyTok := p.peek()
		if keyTok.Kind != paralex.ID && keyTok.Kind != paralex.STR {
			p.fail(keyTok.Line, "expected condition key")
			return nil, false
		}
		p.pos++
		if p.peek().Kind != paralex.EQ {
			p.fail(p.peek().Line, "expected '=' in condition")
			return nil, false
		}
		p.pos++
		valTok := p.peek()
		if valTok.Kind != paralex.ID && valTok.Kind != paralex.STR {
			p.fail(valTok.Line, "expected condition value")
			return nil, false
		}
		p.pos++
		cond = append(cond, CondPair{Key: strings.ToUpper(keyTok.Value), Value: strings.ToUpper(valTok.Value)})
		switch p.peek().Kind {
		case paralex.COMMA:
			p.pos++
			continue
		case paralex.RPAREN:
			p.pos++
			return cond, true
		default:
			p.fail(p.peek().Line, "expected ',' or ')' in condition")
			return nil, false
		}
	}
}

// stripNop removes any "NOP" sentinel element from vals, reporting
// whether one was found, matching p_defs_2's removal of NOP from a
// SET list before it is recorded.
func stripNop(vals []string) ([]string, bool) {
	out := make([]string, 0, len(vals))
	nop := false
	for _, v := range vals {
		if strings.EqualFold(v, "NOP") {
			nop = true
			continue
		}
		out = append(out, v)
	}
	return out, nop
}

func applyScalar(spec *ParamSpec, key, val string) {
	switch key {
	case "TYPE":
		spec.Type = strings.ToUpper(val)
	case "DEFAULT":
		spec.Default = val
	case "MIN":
		spec.Min = val
	case "MAX":
		spec.Max = val
	case "STATUS":
		spec.Status = strings.TrimPrefix(val, "!")
	case "FORMAT":
		spec.Format = val
	case "NOP":
		spec.Nop = true
	}
}

func (p *Parser) fail(line int, msg string) {
	err := obserr.Parse(line, msg, p.peek().Value)
	p.errs = append(p.errs, err)
	log.WithField("line", line).Debug(msg)
}

func (p *Parser) recoverFrom(_ int) {
	p.skipToNewline()
}

func (p *Parser) skipToNewline() {
	for !p.atEnd() && p.peek().Kind != paralex.NEWLINE {
		p.pos++
	}
}
