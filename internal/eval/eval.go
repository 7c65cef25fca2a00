// Package eval walks the shared expression AST (spec §4.4's grammar,
// decoded into ast.Node by pparse/opeparse) against an env.Environment
// to produce values, and implements the idempotent closure-forcing
// rule used by the decoder and the interpreter (spec §4.8, §4.9).
package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/naojsoft/oscript/internal/obserr"
)

// Closure pairs an unevaluated expression with the environment it
// closed over at creation time. Force is idempotent: the first call
// evaluates and caches the result (or error), every later call returns
// the cached outcome without re-evaluating (spec §4.9).
type Closure struct {
	Expr    *ast.Node
	Env     *env.Environment
	forced  bool
	value   env.Value
	err     error
}

// NewClosure captures expr against a snapshot of cur so later mutation
// of cur's frame stack does not change what this closure sees.
func NewClosure(expr *ast.Node, cur *env.Environment) *Closure {
	return &Closure{Expr: expr, Env: cur.Snapshot()}
}

// Force implements env.Slot.
func (c *Closure) Force() (env.Value, error) {
	if !c.forced {
		c.value, c.err = Eval(c.Expr, c.Env)
		c.forced = true
	}
	return c.value, c.err
}

// BuiltinFunc is a callable function node in an expression, e.g.
// abs(x) or min(a, b).
type BuiltinFunc func(args []env.Value) (env.Value, error)

// Builtins is the default function table consulted by "call" nodes.
// Grounded on oscript's built-in expression function set; callers may
// add to this table before evaluating (e.g. per-instrument functions
// loaded from a ModuleIndex collaborator).
var Builtins = map[string]BuiltinFunc{
	"ABS": func(args []env.Value) (env.Value, error) {
		f, err := arg1Float(args)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return -f, nil
		}
		return f, nil
	},
	"MIN": func(args []env.Value) (env.Value, error) {
		return reduceFloat(args, func(a, b float64) float64 {
			if a < b {
				return a
			}
			return b
		})
	},
	"MAX": func(args []env.Value) (env.Value, error) {
		return reduceFloat(args, func(a, b float64) float64 {
			if a > b {
				return a
			}
			return b
		})
	},
	"STR": func(args []env.Value) (env.Value, error) {
		if len(args) != 1 {
			return nil, obserr.Eval("STR expects exactly one argument")
		}
		return fmt.Sprintf("%v", args[0]), nil
	},
}

func arg1Float(args []env.Value) (float64, error) {
	if len(args) != 1 {
		return 0, obserr.Eval("expected exactly one argument")
	}
	return toFloat(args[0])
}

func reduceFloat(args []env.Value, f func(a, b float64) float64) (env.Value, error) {
	if len(args) == 0 {
		return nil, obserr.Eval("expected at least one argument")
	}
	acc, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		v, err := toFloat(a)
		if err != nil {
			return nil, err
		}
		acc = f(acc, v)
	}
	return acc, nil
}

// Eval evaluates an ast.Node expression tree against e, dispatching on
// the node's tag (the same exhaustive-switch shape the interpreter
// uses for statements, per spec §9's closed-tag design note).
func Eval(n *ast.Node, e *env.Environment) (env.Value, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Tag {
	case "num":
		return n.Leaf(0), nil
	case "str":
		return n.Leaf(0), nil
	case "nil":
		return nil, nil
	case "id":
		return n.Leaf(0), nil
	case "varref":
		name, _ := n.Leaf(0).(string)
		slot, ok := e.GetVar(name)
		if !ok {
			return nil, obserr.Eval(fmt.Sprintf("undefined variable $%s", name))
		}
		return slot.Force()
	case "regref":
		name, _ := n.Leaf(0).(string)
		v, ok, err := e.GetReg(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, obserr.Eval(fmt.Sprintf("undefined register @%s", name))
		}
		return v, nil
	case "statusref":
		name, _ := n.Leaf(0).(string)
		return e.GetStatus(name)
	case "getfno":
		idx, _ := n.Leaf(0).(int64)
		return e.GetFrameNo(int(idx))
	case "neg":
		v, err := Eval(n.Child(0), e)
		if err != nil {
			return nil, err
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return -f, nil
	case "not":
		v, err := Eval(n.Child(0), e)
		if err != nil {
			return nil, err
		}
		return !IsTrue(v), nil
	case "and":
		l, err := Eval(n.Child(0), e)
		if err != nil {
			return nil, err
		}
		if !IsTrue(l) {
			return false, nil
		}
		r, err := Eval(n.Child(1), e)
		if err != nil {
			return nil, err
		}
		return IsTrue(r), nil
	case "or":
		l, err := Eval(n.Child(0), e)
		if err != nil {
			return nil, err
		}
		if IsTrue(l) {
			return true, nil
		}
		r, err := Eval(n.Child(1), e)
		if err != nil {
			return nil, err
		}
		return IsTrue(r), nil
	case "cmp":
		op, _ := n.Leaf(0).(string)
		l, err := Eval(n.Child(1), e)
		if err != nil {
			return nil, err
		}
		r, err := Eval(n.Child(2), e)
		if err != nil {
			return nil, err
		}
		return compare(op, l, r)
	case "binop":
		op, _ := n.Leaf(0).(string)
		l, err := Eval(n.Child(1), e)
		if err != nil {
			return nil, err
		}
		r, err := Eval(n.Child(2), e)
		if err != nil {
			return nil, err
		}
		return binop(op, l, r)
	case "call":
		name, _ := n.Leaf(0).(string)
		fn, ok := Builtins[strings.ToUpper(name)]
		if !ok {
			return nil, obserr.Eval(fmt.Sprintf("undefined function %s", name))
		}
		args := make([]env.Value, 0, n.Len()-1)
		for i := 1; i < n.Len(); i++ {
			v, err := Eval(n.Child(i), e)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return fn(args)
	default:
		return nil, obserr.Eval(fmt.Sprintf("cannot evaluate node tag %q", n.Tag))
	}
}

// IsTrue implements the truthiness rule used by IF/WHILE/*IF: nil and
// the zero value of each scalar type are false, everything else true.
func IsTrue(v env.Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func toFloat(v env.Value) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, obserr.Eval(fmt.Sprintf("cannot convert %q to a number", t))
		}
		return f, nil
	default:
		return 0, obserr.Eval(fmt.Sprintf("cannot convert %v to a number", v))
	}
}

func binop(op string, l, r env.Value) (env.Value, error) {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if op == "+" && lok && rok {
		return ls + rs, nil
	}
	lf, err := toFloat(l)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, obserr.Eval("division by zero")
		}
		return lf / rf, nil
	default:
		return nil, obserr.Eval(fmt.Sprintf("unknown operator %q", op))
	}
}

func compare(op string, l, r env.Value) (env.Value, error) {
	if op == "==" || op == "!=" {
		eq := fmt.Sprintf("%v", l) == fmt.Sprintf("%v", r)
		if lf, err := toFloat(l); err == nil {
			if rf, err2 := toFloat(r); err2 == nil {
				eq = lf == rf
			}
		}
		if op == "==" {
			return eq, nil
		}
		return !eq, nil
	}
	lf, err := toFloat(l)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	case ">=":
		return lf >= rf, nil
	default:
		return nil, obserr.Eval(fmt.Sprintf("unknown comparison operator %q", op))
	}
}
