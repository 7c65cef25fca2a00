// Package interp implements the tree-walking interpreter: dispatch on
// an ast.Node's tag runs the matching interp_<tag> behavior, exactly
// as oscript/tasks/skTask.py's interpTask dispatches on node type
// (spec §4.10, §9). Sync children of a block run in source order and
// fully complete before the next statement starts; async children are
// joined at the end of the block that spawned them (spec §5).
package interp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/collab"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/naojsoft/oscript/internal/eval"
	"github.com/naojsoft/oscript/internal/obsconfig"
	"github.com/naojsoft/oscript/internal/obserr"
	"github.com/naojsoft/oscript/internal/obslog"
	"golang.org/x/sync/errgroup"
)

var log = obslog.Named("interp")

// ReturnSignal unwinds the call stack up to the nearest procedure
// call boundary, carrying the RETURN statement's value.
type ReturnSignal struct {
	Value env.Value
}

func (ReturnSignal) Error() string { return "return" }

// Executor runs one decoded program tree. Its cancel and pause flags
// are polled at every statement boundary (spec §5's suspension
// points); a shared CriticalSection enforces the global skeleton
// mutual-exclusion rule across every Executor in the process.
type Executor struct {
	Env         *env.Environment
	Procs       map[string]*ast.Node
	TaskFactory collab.TaskFactory
	Monitor     collab.Monitor
	CritSection *CriticalSection
	Config      obsconfig.Config

	cancelled atomic.Bool
	paused    atomic.Bool

	groups []*errgroup.Group
}

// New builds an Executor. critSection is shared across every executor
// that must respect the same global skeleton lock.
func New(e *env.Environment, tf collab.TaskFactory, mon collab.Monitor, cs *CriticalSection, cfg obsconfig.Config) *Executor {
	if mon == nil {
		mon = collab.NoopMonitor{}
	}
	return &Executor{Env: e, Procs: map[string]*ast.Node{}, TaskFactory: tf, Monitor: mon, CritSection: cs, Config: cfg}
}

// Cancel requests cooperative cancellation; it takes effect the next
// time a suspension point is polled.
func (ex *Executor) Cancel() { ex.cancelled.Store(true) }

// Pause and Resume toggle the executor's pause flag.
func (ex *Executor) Pause()  { ex.paused.Store(true) }
func (ex *Executor) Resume() { ex.paused.Store(false) }

// Run executes prog (a decoded "program" node) to completion.
func (ex *Executor) Run(ctx context.Context, prog *ast.Node) (env.Value, error) {
	return ex.Exec(ctx, prog)
}

func (ex *Executor) checkSuspension(ctx context.Context) error {
	if ex.cancelled.Load() {
		return obserr.Cancel{}
	}
	select {
	case <-ctx.Done():
		return obserr.Cancel{}
	default:
	}
	interval := ex.Config.AsyncPollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	for ex.paused.Load() {
		select {
		case <-ctx.Done():
			return obserr.Cancel{}
		case <-time.After(interval):
		}
		if ex.cancelled.Load() {
			return obserr.Cancel{}
		}
	}
	return nil
}

// Exec interprets a single node, dispatching on its tag. This is the
// exhaustive switch mirroring interp_<tag> (spec §9's closed-tag
// design note): every tag the decoder can emit has a case here.
func (ex *Executor) Exec(ctx context.Context, n *ast.Node) (env.Value, error) {
	if n == nil {
		return nil, nil
	}
	if err := ex.checkSuspension(ctx); err != nil {
		return nil, err
	}
	ex.Monitor.ASTTrack(n.Serial, "enter")
	defer ex.Monitor.ASTTrack(n.Serial, "leave")

	switch n.Tag {
	case "program", "block":
		return ex.interpBlock(ctx, n)
	case "let":
		return ex.interpLet(ctx, n)
	case "set", "star_set":
		return ex.interpSet(ctx, n)
	case "if", "star_if":
		return ex.interpIf(ctx, n)
	case "while":
		return ex.interpWhile(ctx, n)
	case "star_for":
		return ex.interpBlock(ctx, n.Child(2))
	case "raise":
		return ex.interpRaise(ctx, n)
	case "catch":
		return ex.interpCatch(ctx, n)
	case "proc":
		ex.Procs[strings.ToUpper(fmt.Sprint(n.Leaf(0)))] = n
		return nil, nil
	case "import":
		return ex.interpImport(ctx, n)
	case "return":
		return ex.interpReturn(ctx, n)
	case "dd_cmd":
		return ex.interpCommand(ctx, n, false)
	case "abs_cmd":
		return ex.interpCommand(ctx, n, true)
	case "exec":
		return ex.interpExec(ctx, n)
	case "async":
		return ex.interpAsync(ctx, n)
	default:
		return nil, obserr.Interp(fmt.Sprintf("no interpretation for node tag %q", n.Tag))
	}
}

func (ex *Executor) interpBlock(ctx context.Context, n *ast.Node) (env.Value, error) {
	g, gctx := errgroup.WithContext(ctx)
	ex.groups = append(ex.groups, g)
	defer func() { ex.groups = ex.groups[:len(ex.groups)-1] }()

	var last env.Value
	for i := 0; i < n.Len(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		v, err := ex.Exec(gctx, child)
		if err != nil {
			_ = g.Wait()
			return nil, err
		}
		last = v
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return last, nil
}

// evalKwdParams evaluates a "params" node's children (each an
// ast.New("param", name, expr) leaf pair) against the current
// environment, returning name->value in source order. Grounded on
// skTask.py's eval.eval_params, shared by LET, SET/*SET, and
// procedure-call argument binding.
func (ex *Executor) evalKwdParams(params *ast.Node) ([]string, map[string]env.Value, error) {
	names := make([]string, 0, params.Len())
	values := make(map[string]env.Value, params.Len())
	for i := 0; i < params.Len(); i++ {
		p := params.Child(i)
		if p == nil {
			continue
		}
		name, _ := p.Leaf(0).(string)
		v, err := eval.Eval(p.Child(1), ex.Env)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		values[name] = v
	}
	return names, values, nil
}

// interpLet implements "let kwd_params in { ... }": evaluate params
// against the enclosing scope, push a register frame, execute body,
// pop frame (spec §4.10), returning the body's result.
func (ex *Executor) interpLet(ctx context.Context, n *ast.Node) (env.Value, error) {
	names, values, err := ex.evalKwdParams(n.Child(0))
	if err != nil {
		return nil, err
	}
	ex.Env.PushFrame()
	defer ex.Env.PopFrame()
	for _, name := range names {
		ex.Env.SetReg(name, values[name])
	}
	return ex.Exec(ctx, n.Child(1))
}

// interpSet implements "set"/"star_set": evaluate kwd_params/param_list
// and store every binding into registers (spec §4.10). star_set's
// leading flags node is recorded on the node by the parser but carries
// no interpreted behavior here.
func (ex *Executor) interpSet(ctx context.Context, n *ast.Node) (env.Value, error) {
	params := n.Child(0)
	if n.Tag == "star_set" {
		params = n.Child(1)
	}
	names, values, err := ex.evalKwdParams(params)
	if err != nil {
		return nil, err
	}
	var last env.Value
	for _, name := range names {
		v := values[name]
		ex.Env.SetReg(name, v)
		last = v
	}
	return last, nil
}

func (ex *Executor) interpIf(ctx context.Context, n *ast.Node) (env.Value, error) {
	for i := 0; i < n.Len(); i++ {
		clause := n.Child(i)
		if clause.Tag == "else" {
			return ex.Exec(ctx, clause.Child(0))
		}
		cond := clause.Child(0)
		v, err := eval.Eval(cond, ex.Env)
		if err != nil {
			return nil, err
		}
		if eval.IsTrue(v) {
			return ex.Exec(ctx, clause.Child(1))
		}
	}
	return nil, nil
}

func (ex *Executor) interpWhile(ctx context.Context, n *ast.Node) (env.Value, error) {
	cond := n.Child(0)
	body := n.Child(1)
	for {
		if err := ex.checkSuspension(ctx); err != nil {
			return nil, err
		}
		v, err := eval.Eval(cond, ex.Env)
		if err != nil {
			return nil, err
		}
		if !eval.IsTrue(v) {
			return nil, nil
		}
		_, err = ex.Exec(ctx, body)
		if err != nil {
			if obserr.IsBreak(err) {
				return nil, nil
			}
			if obserr.IsContinue(err) {
				continue
			}
			return nil, err
		}
	}
}

func (ex *Executor) interpRaise(ctx context.Context, n *ast.Node) (env.Value, error) {
	v, err := eval.Eval(n.Child(0), ex.Env)
	if err != nil {
		return nil, err
	}
	return nil, &obserr.UserException{Value: fmt.Sprint(v)}
}

// interpCatch implements "catch var { ... }" (spec §4.10): on a user
// exception, bind var to the exception value and succeed with result
// 0; otherwise bind var to the body's result. Non-user exceptions
// (cancellation, return signals) propagate unchanged.
func (ex *Executor) interpCatch(ctx context.Context, n *ast.Node) (env.Value, error) {
	name, _ := n.Leaf(0).(string)
	v, err := ex.Exec(ctx, n.Child(1))
	if err == nil {
		if name != "" {
			ex.Env.SetReg(name, v)
		}
		return v, nil
	}
	if ue, ok := err.(*obserr.UserException); ok {
		log.WithField("exception", ue.Error()).Debug("caught user exception")
		if name != "" {
			ex.Env.SetReg(name, ue.Value)
		}
		return 0.0, nil
	}
	return nil, err
}

func (ex *Executor) interpImport(ctx context.Context, n *ast.Node) (env.Value, error) {
	// IMPORT does nothing at interpretation time: no module is looked
	// up and no name is bound into registers or into Procs. The decoder
	// leaves the node in place, and this case returns nil.
	return nil, nil
}

func (ex *Executor) interpReturn(ctx context.Context, n *ast.Node) (env.Value, error) {
	if n.Len() == 0 {
		return nil, ReturnSignal{}
	}
	v, err := eval.Eval(n.Child(0), ex.Env)
	if err != nil {
		return nil, err
	}
	return nil, ReturnSignal{Value: v}
}

// interpAsync implements the async wrapper the parser attaches to a
// trailing-comma statement (spec §4.6's async production): spawn the
// wrapped statement as a child of the innermost block's join-barrier
// group and return immediately (spec §5, §4.10's cmdlist behavior).
func (ex *Executor) interpAsync(ctx context.Context, n *ast.Node) (env.Value, error) {
	cmd := n.Child(0)
	if len(ex.groups) == 0 {
		return ex.Exec(ctx, cmd)
	}
	g := ex.groups[len(ex.groups)-1]
	g.Go(func() error {
		_, err := ex.Exec(ctx, cmd)
		return err
	})
	return nil, nil
}

func (ex *Executor) evalParamList(params *ast.Node) (map[string]any, error) {
	args := map[string]any{}
	for i := 0; i < params.Len(); i++ {
		param := params.Child(i)
		if param == nil {
			continue
		}
		key, _ := param.Leaf(0).(string)
		v, err := eval.Eval(param.Child(1), ex.Env)
		if err != nil {
			return nil, err
		}
		if key == "" {
			key = fmt.Sprintf("arg%d", i)
		}
		args[key] = v
	}
	return args, nil
}

// interpExec implements "exec subsys cmd params [var=]" (spec §4.10):
// evaluate all three, dispatch through the task factory, wait; store
// the result in registers if a result variable was named, otherwise
// discard it (errors always propagate regardless of var capture).
func (ex *Executor) interpExec(ctx context.Context, n *ast.Node) (env.Value, error) {
	subsys, _ := n.Leaf(0).(string)
	cmd, _ := n.Leaf(1).(string)
	params := n.Child(2)
	resultVar, _ := n.Leaf(3).(string)

	args, err := ex.evalParamList(params)
	if err != nil {
		return nil, err
	}

	if ex.CritSection != nil {
		if err := ex.CritSection.Acquire(ctx); err != nil {
			return nil, err
		}
		defer ex.CritSection.Release()
	}

	name := subsys + "." + cmd
	task, err := ex.TaskFactory.NewTask(ctx, name, args)
	if err != nil {
		return nil, obserr.Exec("failed to start "+name, err)
	}
	if err := task.Wait(ctx); err != nil {
		return nil, obserr.Exec(name+" failed", err)
	}
	var res env.Value
	if resultVar != "" {
		ex.Env.SetReg(resultVar, res)
	}
	return res, nil
}

func (ex *Executor) interpCommand(ctx context.Context, n *ast.Node, abstract bool) (env.Value, error) {
	name, _ := n.Leaf(0).(string)

	if abstract {
		if proc, ok := ex.Procs[strings.ToUpper(name)]; ok {
			return ex.callProc(ctx, proc, n)
		}
	}

	args, err := ex.evalParams(n)
	if err != nil {
		return nil, err
	}

	needsLock := strings.Contains(name, ".") || abstract
	if needsLock && ex.CritSection != nil {
		if err := ex.CritSection.Acquire(ctx); err != nil {
			return nil, err
		}
		defer ex.CritSection.Release()
	}

	task, err := ex.TaskFactory.NewTask(ctx, name, args)
	if err != nil {
		return nil, obserr.Exec("failed to start "+name, err)
	}
	if err := task.Wait(ctx); err != nil {
		return nil, obserr.Exec(name+" failed", err)
	}
	return nil, nil
}

func (ex *Executor) evalParams(n *ast.Node) (map[string]any, error) {
	args := map[string]any{}
	for i := 1; i < n.Len(); i++ {
		param := n.Child(i)
		if param == nil {
			continue
		}
		key, _ := param.Leaf(0).(string)
		v, err := eval.Eval(param.Child(1), ex.Env)
		if err != nil {
			return nil, err
		}
		if key == "" {
			key = fmt.Sprintf("arg%d", i)
		}
		args[key] = v
	}
	return args, nil
}

func (ex *Executor) callProc(ctx context.Context, proc *ast.Node, call *ast.Node) (env.Value, error) {
	params := proc.Child(1)
	body := proc.Child(2)

	ex.Env.PushFrame()
	defer ex.Env.PopFrame()

	for i := 0; i < params.Len() && i+1 < call.Len(); i++ {
		pname, _ := params.Leaf(i).(string)
		argNode := call.Child(i + 1)
		v, err := eval.Eval(argNode.Child(1), ex.Env)
		if err != nil {
			return nil, err
		}
		ex.Env.SetReg(pname, v)
	}

	_, err := ex.Exec(ctx, body)
	if rs, ok := err.(ReturnSignal); ok {
		return rs.Value, nil
	}
	return nil, err
}
