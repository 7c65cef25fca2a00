// Package decode implements the decoder pass: it walks a parsed
// program tree and unfolds every *IF/*FOR/*SET/*SUB form before the
// interpreter ever sees the tree, producing a tree containing only
// runtime tags (spec §4.8). Unfolded nodes are re-cloned so every
// emitted node carries a fresh serial number, matching the monitoring
// contract in spec §4.10.
package decode

import (
	"strings"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/naojsoft/oscript/internal/eval"
	"github.com/naojsoft/oscript/internal/obserr"
)

// Decoder holds the decode-time state: a table of *SUB block macros
// (name -> block of statements). Only DefineSub adds entries; decoding
// itself never adds to the table.
type Decoder struct {
	env  *env.Environment
	subs map[string]*ast.Node
}

// New creates a Decoder that evaluates *IF/*FOR conditions against e.
func New(e *env.Environment) *Decoder {
	return &Decoder{env: e, subs: map[string]*ast.Node{}}
}

// Decode walks prog (a "program" or "block" node) and returns the
// unfolded tree. Errors from a malformed *IF/*FOR condition or an
// unresolved *SUB are collected and returned alongside a best-effort
// tree, matching the accumulate-and-continue policy used elsewhere in
// the pipeline (spec §7 DecodeError).
func (d *Decoder) Decode(prog *ast.Node) (*ast.Node, []error) {
	var errs []error
	out := d.decodeBlockLike(prog, &errs)
	return out, errs
}

func (d *Decoder) decodeBlockLike(n *ast.Node, errs *[]error) *ast.Node {
	out := &ast.Node{Tag: n.Tag, Serial: ast.NextSerial(), Name: n.Name}
	for i := 0; i < n.Len(); i++ {
		child, _ := n.Leaf(i).(*ast.Node)
		if child == nil {
			out.Append(n.Leaf(i))
			continue
		}
		d.decodeStatementInto(child, out, errs)
	}
	return out
}

// decodeStatementInto decodes one statement node and appends zero or
// more resulting statements to out: most statements append exactly
// one, but star_if/star_for/star_sub splice a variable number in
// place of themselves, which is the essence of "unfolding".
func (d *Decoder) decodeStatementInto(n *ast.Node, out *ast.Node, errs *[]error) {
	switch n.Tag {
	case "star_if":
		d.decodeStarIf(n, out, errs)
	case "star_for":
		d.decodeStarFor(n, out, errs)
	case "star_set":
		d.decodeStarSet(n, out, errs)
	case "star_sub":
		d.decodeStarSub(n, out, errs)
	case "block", "program":
		out.Append(d.decodeBlockLike(n, errs))
	default:
		out.Append(d.decodeGeneric(n, errs))
	}
}

// decodeGeneric recurses into a node's children, decoding any nested
// block/star forms (e.g. the body of an IF or WHILE) while leaving the
// node's own tag and leaf values untouched.
func (d *Decoder) decodeGeneric(n *ast.Node, errs *[]error) *ast.Node {
	out := &ast.Node{Tag: n.Tag, Serial: ast.NextSerial(), Name: n.Name}
	for i := 0; i < n.Len(); i++ {
		child, isNode := n.Leaf(i).(*ast.Node)
		if !isNode {
			out.Append(n.Leaf(i))
			continue
		}
		switch child.Tag {
		case "block", "program":
			out.Append(d.decodeBlockLike(child, errs))
		default:
			out.Append(d.decodeGeneric(child, errs))
		}
	}
	return out
}

// decodeStarIf evaluates each clause's condition in source order and
// splices the first matching clause's body statements directly into
// out, exactly as if they had been written unconditionally at that
// point in the program (spec §4.8, §9: *IF shares IF's condition
// semantics but is resolved here, not by the interpreter).
func (d *Decoder) decodeStarIf(n *ast.Node, out *ast.Node, errs *[]error) {
	for i := 0; i < n.Len(); i++ {
		clause := n.Child(i)
		if clause.Tag == "else" {
			body := clause.Child(0)
			for j := 0; j < body.Len(); j++ {
				if stmt := body.Child(j); stmt != nil {
					d.decodeStatementInto(stmt, out, errs)
				}
			}
			return
		}
		cond := clause.Child(0)
		body := clause.Child(1)
		v, err := eval.Eval(cond, d.env)
		if err != nil {
			*errs = append(*errs, obserr.Decode(0, "star_if condition: "+err.Error()))
			continue
		}
		if eval.IsTrue(v) {
			for j := 0; j < body.Len(); j++ {
				if stmt := body.Child(j); stmt != nil {
					d.decodeStatementInto(stmt, out, errs)
				}
			}
			return
		}
	}
	// no clause matched and there was no else: the statement vanishes.
}

// decodeStarFor evaluates the iterable expression once at decode time
// and unrolls the loop body once per element, substituting the loop
// variable's every "id" reference with a literal for that iteration.
// The iterable is a comma-separated value list; a scalar iterable
// unrolls to exactly one iteration.
func (d *Decoder) decodeStarFor(n *ast.Node, out *ast.Node, errs *[]error) {
	varName, _ := n.Leaf(0).(string)
	iter := n.Child(1)
	body := n.Child(2)

	v, err := eval.Eval(iter, d.env)
	if err != nil {
		*errs = append(*errs, obserr.Decode(0, "star_for iterable: "+err.Error()))
		return
	}

	items := splitIterable(v)
	for _, item := range items {
		substituted := substituteIdent(body, varName, item)
		for j := 0; j < substituted.Len(); j++ {
			if stmt := substituted.Child(j); stmt != nil {
				d.decodeStatementInto(stmt, out, errs)
			}
		}
	}
}

func splitIterable(v env.Value) []*ast.Node {
	s, ok := v.(string)
	if !ok {
		return []*ast.Node{literalNode(v)}
	}
	parts := strings.Split(s, ",")
	nodes := make([]*ast.Node, 0, len(parts))
	for _, p := range parts {
		nodes = append(nodes, ast.New("str", strings.TrimSpace(p)))
	}
	return nodes
}

func literalNode(v env.Value) *ast.Node {
	switch t := v.(type) {
	case float64:
		return ast.New("num", t)
	case string:
		return ast.New("str", t)
	default:
		return ast.New("nil")
	}
}

// substituteIdent returns a deep copy of n with every "id" leaf node
// named name replaced by a clone of replacement.
func substituteIdent(n *ast.Node, name string, replacement *ast.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Tag == "id" {
		if s, _ := n.Leaf(0).(string); strings.EqualFold(s, name) {
			return replacement.Clone()
		}
	}
	out := &ast.Node{Tag: n.Tag, Serial: ast.NextSerial(), Name: n.Name}
	for i := 0; i < n.Len(); i++ {
		child, isNode := n.Leaf(i).(*ast.Node)
		if !isNode {
			out.Append(n.Leaf(i))
			continue
		}
		out.Append(substituteIdent(child, name, replacement))
	}
	return out
}

// decodeStarSet unfolds *SET into its run-time sibling "set" (spec
// §4.8: "*SET ... into their run-time siblings ... set"), so the
// interpreter stores the binding into registers exactly as ASN does.
// *SET's param expressions reference $name/@name via "varref"/"regref"
// nodes, not "id" nodes, so splicing them unevaluated into a "set"
// node (rather than eagerly evaluating and substituting into "id"
// leaves, which those references never use) is what makes the binding
// actually take effect.
func (d *Decoder) decodeStarSet(n *ast.Node, out *ast.Node, errs *[]error) {
	params := n.Child(1)
	decodedParams := d.decodeGeneric(params, errs)
	out.Append(ast.New("set", decodedParams))
}

// decodeStarSub splices a previously-recorded block macro's statements
// in place. An unresolved name is a DecodeError (spec §7).
func (d *Decoder) decodeStarSub(n *ast.Node, out *ast.Node, errs *[]error) {
	name, _ := n.Leaf(0).(string)
	body, ok := d.subs[strings.ToUpper(name)]
	if !ok {
		*errs = append(*errs, obserr.Decode(0, "undefined *SUB target "+name))
		return
	}
	for i := 0; i < body.Len(); i++ {
		if stmt := body.Child(i); stmt != nil {
			d.decodeStatementInto(stmt, out, errs)
		}
	}
}

// DefineSub registers a named block as a *SUB target (spec §4.8,
// §2.11). Callers register targets before Decode; neither the decoder
// nor the skeleton bank calls it on their own.
func (d *Decoder) DefineSub(name string, body *ast.Node) {
	d.subs[strings.ToUpper(name)] = body
}
