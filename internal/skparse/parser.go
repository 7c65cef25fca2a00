// Package skparse parses SK skeleton programs and OPE observation
// procedures into the shared ast.Node tree (spec §4.6), grounded on
// oscript/parse/sk_parser.py's skParser production rules. The SK and
// OPE grammars share the same statement/command/expression forms, so
// one parser serves both file kinds.
package skparse

import (
	"strings"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/obserr"
	"github.com/naojsoft/oscript/internal/obslog"
	"github.com/naojsoft/oscript/internal/sklex"
	"github.com/naojsoft/oscript/internal/token"
)

var log = obslog.Named("sk.parser")

// Parser walks the token stream produced by sklex, building a
// "program" ast.Node whose children are top-level statements.
type Parser struct {
	toks []token.Token
	pos  int
	errs []error
}

// Parse tokenizes src with sklex and parses it into a "program" node.
// Scan and parse errors both accumulate: a malformed statement is
// skipped to the next SEMICOLON or section boundary and parsing
// resumes, matching the lex/parse accumulate-and-continue policy
// (spec §7).
func Parse(src string, startLine int) (*ast.Node, []error) {
	lexed := sklex.Tokenize(src, startLine)
	p := &Parser{toks: lexed.Tokens}
	for _, e := range lexed.ErrInfo {
		p.errs = append(p.errs, obserr.Scan(e.Line, e.Message, e.Token))
	}

	prog := ast.New("program")
	p.skipSectionMarkers()
	for !p.atEnd() {
		if k := p.peek().Kind; p.atSectionEnd() || k == sklex.START || k == sklex.MAINSTART {
			p.pos++
			p.skipSectionMarkers()
			continue
		}
		stmt, err := p.statementWithTerminator()
		if err != nil {
			p.errs = append(p.errs, err)
			p.recover()
			continue
		}
		if stmt != nil {
			prog.Append(stmt)
		}
	}
	return prog, p.errs
}

func (p *Parser) skipSectionMarkers() {
	for {
		switch p.peek().Kind {
		case sklex.START, sklex.MAINSTART:
			p.pos++
			continue
		}
		return
	}
}

func (p *Parser) atSectionEnd() bool {
	switch p.peek().Kind {
	case sklex.MAINEND, sklex.END:
		return true
	}
	return false
}

func (p *Parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *Parser) peek() token.Token {
	if p.atEnd() {
		return token.Token{Kind: "", Line: -1}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i < 0 || i >= len(p.toks) {
		return token.Token{Kind: "", Line: -1}
	}
	return p.toks[i]
}

func (p *Parser) recover() {
	for !p.atEnd() && p.peek().Kind != sklex.SEMICOLON && !p.atSectionEnd() {
		p.pos++
	}
	if p.peek().Kind == sklex.SEMICOLON {
		p.pos++
	}
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, error) {
	tok := p.peek()
	if tok.Kind != k {
		return tok, obserr.Parse(tok.Line, "expected "+what, tok.Value)
	}
	p.pos++
	return tok, nil
}

// statementWithTerminator parses one statement and then consumes the
// command_list-level separator that follows it, if any: a trailing
// ',' marks the statement async (spec §4.6's async production) and
// wraps it in an "async" node; a trailing ';' marks it sync and is
// simply consumed, since sync and bare execution are the same
// behavior at the interpreter's cmdlist join barrier (spec §4.10).
// Applying this uniformly to every statement, rather than duplicating
// comma/semicolon handling inside each statement kind, is what lets
// `ASN X=5 ;` (spec §8 scenario 3) parse even though `set` is not
// itself named in the async/sync production list.
func (p *Parser) statementWithTerminator() (*ast.Node, error) {
	core, err := p.statement()
	if err != nil {
		return nil, err
	}
	if core == nil {
		return nil, nil
	}
	switch p.peek().Kind {
	case sklex.COMMA:
		p.pos++
		return ast.New("async", core), nil
	case sklex.SEMICOLON:
		p.pos++
		return core, nil
	}
	return core, nil
}

// statement dispatches on the leading token of a single statement.
// Grounded on sk_parser.py's p_statement alternatives.
func (p *Parser) statement() (*ast.Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case sklex.SEMICOLON:
		p.pos++
		return nil, nil
	case sklex.LCURBRACKET:
		return p.block()
	case sklex.LET:
		return p.letStmt()
	case sklex.ASN:
		return p.setStmt("set")
	case sklex.STARSET:
		return p.setStmt("star_set")
	case sklex.STARSUB:
		return p.starSubStmt()
	case sklex.IF:
		return p.ifStmt(false)
	case sklex.STARIF:
		return p.ifStmt(true)
	case sklex.WHILE:
		return p.whileStmt()
	case sklex.STARFOR:
		return p.starForStmt()
	case sklex.RAISE:
		return p.raiseStmt()
	case sklex.CATCH:
		return p.catchStmt()
	case sklex.DEF:
		return p.procDefn()
	case sklex.IMPORT:
		return p.importStmt()
	case sklex.RETURN:
		return p.returnStmt()
	case sklex.EXEC:
		return p.execStmt("")
	case sklex.ID:
		if p.peekAt(1).Kind == sklex.ASSIGN && p.peekAt(2).Kind == sklex.EXEC {
			return p.execAssignStmt()
		}
		return p.command()
	default:
		return nil, obserr.Parse(tok.Line, "unexpected token starting statement", tok.Value)
	}
}

// block parses a { stmt stmt ... } group. A block is the unit the
// interpreter treats as a join barrier for async children (spec §5):
// every statement inside runs, synchronous ones complete in order,
// and the block does not finish until all async children it spawned
// have joined.
func (p *Parser) block() (*ast.Node, error) {
	if _, err := p.expect(sklex.LCURBRACKET, "'{'"); err != nil {
		return nil, err
	}
	b := ast.New("block")
	for p.peek().Kind != sklex.RCURBRACKET {
		if p.atEnd() {
			return nil, obserr.Parse(p.peek().Line, "unterminated block, expected '}'", "")
		}
		stmt, err := p.statementWithTerminator()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			b.Append(stmt)
		}
	}
	p.pos++ // consume '}'
	return b, nil
}

// kwdParams parses kwd_params: (ID '=' expression)(',' ID '=' expression)*
// (spec §4.4), used by ASN/LET whose bindings are comma-separated.
func (p *Parser) kwdParams() (*ast.Node, error) {
	params := ast.New("params")
	for {
		nameTok, err := p.expect(sklex.ID, "identifier in parameter binding")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(sklex.ASSIGN, "'=' in parameter binding"); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		params.Append(ast.New("param", strings.ToUpper(nameTok.Value), e))
		if p.peek().Kind == sklex.COMMA {
			p.pos++
			continue
		}
		break
	}
	return params, nil
}

// paramList parses param_list: (ID '=' expression)*, with no separator
// between entries (spec §4.4) — distinct from kwd_params's comma
// separator. Used by EXEC and *SET, whose parameters are juxtaposed so
// that a trailing ','/';' can unambiguously mark the whole statement
// async/sync (spec §4.6). Direct-dispatch and abstract commands read
// their parameters with param() instead.
func (p *Parser) paramList() (*ast.Node, error) {
	params := ast.New("param_list")
	for p.peek().Kind == sklex.ID && p.peekAt(1).Kind == sklex.ASSIGN {
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		params.Append(param)
	}
	return params, nil
}

func (p *Parser) letStmt() (*ast.Node, error) {
	p.pos++ // consume LET
	params, err := p.kwdParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(sklex.IN, "IN in LET"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.New("let", params, body), nil
}

// setStmt parses both `set` (ASN kwd_params) and `star_set`
// (*SET ('-'ID)* param_list). The two differ in separator: ASN's
// bindings are comma-joined kwd_params, *SET's are juxtaposed
// param_list preceded by optional '-flag' markers that are recorded
// but semantically opaque to the core (spec §4.10).
func (p *Parser) setStmt(tag string) (*ast.Node, error) {
	p.pos++ // consume ASN or *SET
	if tag != "star_set" {
		params, err := p.kwdParams()
		if err != nil {
			return nil, err
		}
		return ast.New(tag, params), nil
	}

	flags := ast.New("flags")
	for p.peek().Kind == sklex.SUB && p.peekAt(1).Kind == sklex.ID {
		p.pos++
		flagTok := p.peek()
		p.pos++
		flags.Append(strings.ToUpper(flagTok.Value))
	}
	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	return ast.New(tag, flags, params), nil
}

func (p *Parser) condBlock() (*ast.Node, *ast.Node, error) {
	if _, err := p.expect(sklex.LPAREN, "'(' after condition keyword"); err != nil {
		return nil, nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(sklex.RPAREN, "')'"); err != nil {
		return nil, nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

// ifStmt parses both the runtime IF/ELIF/ELSE/ENDIF form and the
// preprocessor-like *IF/*ELIF/*ELSE/*ENDIF form; star selects which
// terminator keyword set applies (spec §4.6, §9: *IF shares semantics
// with IF but is unfolded by the decoder instead of the interpreter).
func (p *Parser) ifStmt(star bool) (*ast.Node, error) {
	tag := "if"
	elif, els, end := sklex.ELIF, sklex.ELSE, sklex.ENDIF
	if star {
		tag = "star_if"
		elif, els, end = sklex.STARELIF, sklex.STARELSE, sklex.STARENDI
	}
	p.pos++
	cond, body, err := p.condBlock()
	if err != nil {
		return nil, err
	}
	n := ast.New(tag, ast.New("clause", cond, body))
	for p.peek().Kind == elif {
		p.pos++
		c, b, err := p.condBlock()
		if err != nil {
			return nil, err
		}
		n.Append(ast.New("clause", c, b))
	}
	if p.peek().Kind == els {
		p.pos++
		b, err := p.block()
		if err != nil {
			return nil, err
		}
		n.Append(ast.New("else", b))
	}
	if _, err := p.expect(end, "ENDIF"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) whileStmt() (*ast.Node, error) {
	p.pos++
	cond, body, err := p.condBlock()
	if err != nil {
		return nil, err
	}
	return ast.New("while", cond, body), nil
}

func (p *Parser) starForStmt() (*ast.Node, error) {
	p.pos++
	nameTok, err := p.expect(sklex.ID, "loop variable after *FOR")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(sklex.IN, "IN in *FOR"); err != nil {
		return nil, err
	}
	iter, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(sklex.STARENDF, "*ENDFOR"); err != nil {
		return nil, err
	}
	return ast.New("star_for", nameTok.Value, iter, body), nil
}

// starSubStmt parses *SUB name, a decode-time splice of a previously
// defined macro block in place of this statement (spec §4.8).
func (p *Parser) starSubStmt() (*ast.Node, error) {
	p.pos++
	nameTok, err := p.expect(sklex.ID, "macro name after *SUB")
	if err != nil {
		return nil, err
	}
	return ast.New("star_sub", nameTok.Value), nil
}

func (p *Parser) raiseStmt() (*ast.Node, error) {
	p.pos++
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	return ast.New("raise", e), nil
}

// catchStmt parses 'CATCH' ID? block. spec §4.6 names CATCH ID block,
// but a bare CATCH { ... } (no bound exception variable) is also
// accepted: interpCatch only binds a variable when one was given.
func (p *Parser) catchStmt() (*ast.Node, error) {
	p.pos++
	var name string
	if p.peek().Kind == sklex.ID {
		name = strings.ToUpper(p.peek().Value)
		p.pos++
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.New("catch", name, body), nil
}

func (p *Parser) procDefn() (*ast.Node, error) {
	p.pos++
	nameTok, err := p.expect(sklex.ID, "procedure name after DEF")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(sklex.LPAREN, "'(' after procedure name"); err != nil {
		return nil, err
	}
	params := ast.New("params")
	for p.peek().Kind != sklex.RPAREN {
		pt, err := p.expect(sklex.ID, "parameter name")
		if err != nil {
			return nil, err
		}
		params.Append(pt.Value)
		if p.peek().Kind == sklex.COMMA {
			p.pos++
			continue
		}
		break
	}
	if _, err := p.expect(sklex.RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.New("proc", nameTok.Value, params, body), nil
}

func (p *Parser) importStmt() (*ast.Node, error) {
	p.pos++
	nameTok, err := p.expect(sklex.ID, "module name after IMPORT")
	if err != nil {
		return nil, err
	}
	n := ast.New("import", nameTok.Value)
	if p.peek().Kind == sklex.FROM {
		p.pos++
		fromTok, err := p.expect(sklex.ID, "source name after FROM")
		if err != nil {
			return nil, err
		}
		n.Append(fromTok.Value)
	}
	return n, nil
}

func (p *Parser) returnStmt() (*ast.Node, error) {
	p.pos++
	if p.peek().Kind == sklex.SEMICOLON || p.peek().Kind == sklex.COMMA || p.atSectionEnd() || p.atEnd() {
		return ast.New("return"), nil
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	return ast.New("return", e), nil
}

// execStmt parses exec_command: 'EXEC' factor factor param_list, with
// an optional leading resultVar capturing the 'ID = EXEC ...' form
// (spec §4.6). subsys/cmd are factors — in practice bare identifiers
// naming the subsystem and command (spec §4.4's "ID | OR | AND --
// reserved words allowed as strings").
func (p *Parser) execStmt(resultVar string) (*ast.Node, error) {
	p.pos++ // consume EXEC
	subsys, err := p.factorToken("subsystem name after EXEC")
	if err != nil {
		return nil, err
	}
	cmd, err := p.factorToken("command name after EXEC")
	if err != nil {
		return nil, err
	}
	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	n := ast.New("exec", subsys, cmd, params, resultVar)
	return n, nil
}

func (p *Parser) execAssignStmt() (*ast.Node, error) {
	nameTok, err := p.expect(sklex.ID, "identifier before '='")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(sklex.ASSIGN, "'=' before EXEC"); err != nil {
		return nil, err
	}
	return p.execStmt(strings.ToUpper(nameTok.Value))
}

// factorToken consumes a bare name-shaped factor (ID, or a reserved
// word allowed as a string per spec §4.4) and returns its text.
func (p *Parser) factorToken(what string) (string, error) {
	tok := p.peek()
	switch tok.Kind {
	case sklex.ID, sklex.OR, sklex.AND:
		p.pos++
		return strings.ToUpper(tok.Value), nil
	case sklex.QSTR, sklex.LSTR:
		p.pos++
		return tok.Value, nil
	default:
		return "", obserr.Parse(tok.Line, "expected "+what, tok.Value)
	}
}

// command parses either a dd_cmd (dotted instrument.command name) or
// an abs_cmd (bare skeleton-bank name), followed by a param_list in
// either keyed ("key=val key2=val2", no separator per spec §4.4) or
// bare positional form. Scheduling (async/sync) is not decided here:
// it is the trailing ','/';' that statementWithTerminator consumes
// one layer up, after the whole statement has been parsed.
func (p *Parser) command() (*ast.Node, error) {
	nameTok, err := p.expect(sklex.ID, "command name")
	if err != nil {
		return nil, err
	}
	tag := "abs_cmd"
	if strings.Contains(nameTok.Value, ".") {
		tag = "dd_cmd"
	}
	n := ast.New(tag, nameTok.Value)
	for {
		if p.atEnd() || p.peek().Kind == sklex.SEMICOLON || p.peek().Kind == sklex.COMMA ||
			p.peek().Kind == sklex.RCURBRACKET || p.atSectionEnd() {
			break
		}
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		n.Append(param)
	}
	return n, nil
}

func (p *Parser) param() (*ast.Node, error) {
	if p.peek().Kind == sklex.ID && p.peekAt(1).Kind == sklex.ASSIGN {
		keyTok := p.peek()
		p.pos += 2
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		return ast.New("param", strings.ToUpper(keyTok.Value), v), nil
	}
	v, err := p.expr()
	if err != nil {
		return nil, err
	}
	return ast.New("param", "", v), nil
}

var _ = log
