// Package env implements the name-resolution environment shared by the
// evaluator and interpreter: a variable resolver and a register
// resolver that both push/pop frames on procedure call and LET block
// entry/exit, plus read-only status and frame-number resolvers backed
// by external collaborators (spec §3, §4.9).
package env

import "strings"

// Value is whatever an expression evaluates to: float64, string, bool,
// nil, or an *ast.Node for list-like results. Kept as any rather than
// a closed sum type so eval doesn't need to import env's callers.
type Value = any

// Slot is anything that can be forced to a Value. *eval.Closure is the
// only production implementation; env itself never evaluates an
// expression, it only stores and retrieves slots.
type Slot interface {
	Force() (Value, error)
}

// StatusResolver answers read-only !name status lookups.
type StatusResolver interface {
	Get(name string) (Value, error)
}

// FrameSource answers read-only &GET_F_NO[n] frame lookups.
type FrameSource interface {
	Get(index int) (Value, error)
}

// valueSlot wraps an already-evaluated value so it can sit in the same
// storage as a lazy *eval.Closure. Forcing it never errors or
// recomputes: it is the SET/LET path's "eager" counterpart to a
// closure's "lazy" one.
type valueSlot struct{ v Value }

func (s valueSlot) Force() (Value, error) { return s.v, nil }

// frame is a single scope's name bindings. $name (variable) and @name
// (register) references share ONE underlying map: skTask.py's
// interp_set/interp_let/interp_proc_call all bind and read through a
// single eval.registers object, so SET X=5 followed by reading $X must
// see 5 (spec §8 scenario 3) even though the GLOSSARY describes
// "variable resolver" and "register resolver" as separate roles.
type frame struct {
	names map[string]Slot
}

func newFrame() *frame {
	return &frame{names: map[string]Slot{}}
}

// Environment is the full name-resolution context for one executor:
// a stack of frames for $variables and registers, plus the read-only
// status and frame-number resolvers it was built with.
type Environment struct {
	frames   []*frame
	status   StatusResolver
	frameSrc FrameSource
}

// New creates an Environment with a single root frame.
func New(status StatusResolver, frameSrc FrameSource) *Environment {
	return &Environment{frames: []*frame{newFrame()}, status: status, frameSrc: frameSrc}
}

// PushFrame enters a new scope, used on procedure call and LET block
// entry (spec §4.9). The new frame starts empty: names not explicitly
// bound in it are not visible until resolved by walking outward.
func (e *Environment) PushFrame() {
	e.frames = append(e.frames, newFrame())
}

// PopFrame leaves the innermost scope. It is a programming error to
// call PopFrame on the root frame; callers must pair every PushFrame.
func (e *Environment) PopFrame() {
	if len(e.frames) <= 1 {
		return
	}
	e.frames = e.frames[:len(e.frames)-1]
}

func key(name string) string { return strings.ToUpper(name) }

// SetVar binds name to slot in the innermost frame. Used for names
// whose value may be an unevaluated *eval.Closure.
func (e *Environment) SetVar(name string, slot Slot) {
	f := e.frames[len(e.frames)-1]
	f.names[key(name)] = slot
}

// GetVar resolves name by walking frames from innermost to outermost,
// matching lexical shadowing: an inner frame's binding hides an outer
// one of the same name.
func (e *Environment) GetVar(name string) (Slot, bool) {
	k := key(name)
	for i := len(e.frames) - 1; i >= 0; i-- {
		if s, ok := e.frames[i].names[k]; ok {
			return s, true
		}
	}
	return nil, false
}

// SetReg binds an already-evaluated register value in the innermost
// frame. Shares storage with SetVar (see frame's doc comment).
func (e *Environment) SetReg(name string, v Value) {
	e.SetVar(name, valueSlot{v})
}

// GetReg resolves a register, walking outward like GetVar, and forces
// it if the binding is a lazy slot.
func (e *Environment) GetReg(name string) (Value, bool, error) {
	slot, ok := e.GetVar(name)
	if !ok {
		return nil, false, nil
	}
	v, err := slot.Force()
	return v, true, err
}

// GetStatus resolves a !name status reference via the configured
// StatusService collaborator.
func (e *Environment) GetStatus(name string) (Value, error) {
	if e.status == nil {
		return nil, nil
	}
	return e.status.Get(name)
}

// GetFrameNo resolves &GET_F_NO[n] via the configured FrameService
// collaborator.
func (e *Environment) GetFrameNo(index int) (Value, error) {
	if e.frameSrc == nil {
		return nil, nil
	}
	return e.frameSrc.Get(index)
}

// Snapshot captures the current frame stack by reference, for closures
// that must remember the environment they were created in (spec §4.8's
// decoder substitution and §4.9's idempotent force/cache rule). Because
// frames are mutated in place by later PushFrame/PopFrame calls on the
// same Environment, a closure instead clones the slice header so later
// pushes on the original environment do not retroactively change what
// the closure sees, while still sharing the same underlying frame maps
// for names already bound.
func (e *Environment) Snapshot() *Environment {
	frames := make([]*frame, len(e.frames))
	copy(frames, e.frames)
	return &Environment{frames: frames, status: e.status, frameSrc: e.frameSrc}
}
