// Package collab defines the external-collaborator contracts the
// interpreter depends on but does not implement: task scheduling,
// status/frame lookups, monitoring, and skeleton module resolution
// (spec §6). Each interface also ships an in-memory reference
// implementation usable in tests and for local/offline execution.
package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TaskFactory creates the underlying asynchronous unit of work a dd_cmd
// or abs_cmd invocation runs as. Concrete instrument control systems
// back this with their own task/command-bus machinery; oscript only
// needs to start one, wait for it, and cancel it.
type TaskFactory interface {
	// NewTask starts name(args) and returns a handle to await or cancel
	// it. The task runs under ctx, so cancelling ctx (the caller's
	// executor context) cancels the task while it is outstanding.
	NewTask(ctx context.Context, name string, args map[string]any) (Task, error)
}

// Task is a single outstanding command execution.
type Task interface {
	ID() string
	Wait(ctx context.Context) error
	Cancel()
}

// StatusService answers read-only !name status lookups (spec §3).
type StatusService interface {
	Get(name string) (any, error)
}

// FrameService answers read-only &GET_F_NO[n] frame lookups.
type FrameService interface {
	Get(index int) (any, error)
}

// Monitor receives structured progress/trace signals (spec §4.10):
// ast_num/ast_str/ast_track messages and error records. The interpreter
// calls only ASTTrack, on entering and leaving each node; nothing in
// this module calls ASTNum, ASTStr or Error.
type Monitor interface {
	ASTNum(serial uint64, tag string)
	ASTStr(serial uint64, rendered string)
	ASTTrack(serial uint64, phase string)
	Error(err error)
}

// ModuleIndex resolves a named SK skeleton bundle to its source text,
// used by the skeleton bank cache (spec §2.11, §6). IMPORT does not
// consult it.
type ModuleIndex interface {
	Resolve(name string) (src string, ok bool)
}

// InMemoryStatusService is a reference StatusService backed by a plain
// map, for tests and standalone execution without a real status bus.
type InMemoryStatusService struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewInMemoryStatusService returns an empty InMemoryStatusService.
func NewInMemoryStatusService() *InMemoryStatusService {
	return &InMemoryStatusService{values: map[string]any{}}
}

func (s *InMemoryStatusService) Set(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
}

func (s *InMemoryStatusService) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("no status value for %q", name)
	}
	return v, nil
}

// InMemoryFrameService is a reference FrameService backed by a slice
// indexed from 1, matching &GET_F_NO[n]'s one-based frame numbering.
type InMemoryFrameService struct {
	mu     sync.RWMutex
	frames []any
}

func NewInMemoryFrameService() *InMemoryFrameService {
	return &InMemoryFrameService{}
}

func (f *InMemoryFrameService) Push(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
}

func (f *InMemoryFrameService) Get(index int) (any, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if index < 1 || index > len(f.frames) {
		return nil, fmt.Errorf("no frame number %d", index)
	}
	return f.frames[index-1], nil
}

// InMemoryModuleIndex is a reference ModuleIndex backed by a map from
// module name to source text.
type InMemoryModuleIndex struct {
	mu      sync.RWMutex
	sources map[string]string
}

func NewInMemoryModuleIndex() *InMemoryModuleIndex {
	return &InMemoryModuleIndex{sources: map[string]string{}}
}

func (m *InMemoryModuleIndex) Add(name, src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = src
}

func (m *InMemoryModuleIndex) Resolve(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[name]
	return src, ok
}

// NoopMonitor discards every signal; it is the default Monitor when
// the caller has nothing listening.
type NoopMonitor struct{}

func (NoopMonitor) ASTNum(uint64, string)    {}
func (NoopMonitor) ASTStr(uint64, string)    {}
func (NoopMonitor) ASTTrack(uint64, string)  {}
func (NoopMonitor) Error(error)              {}

// inProcessTask runs a func(context.Context) error as a goroutine and
// satisfies Task; it is the backing implementation for
// InMemoryTaskFactory.
type inProcessTask struct {
	id     string
	cancel context.CancelFunc
	done   chan error
}

func (t *inProcessTask) ID() string { return t.id }

func (t *inProcessTask) Wait(ctx context.Context) error {
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *inProcessTask) Cancel() { t.cancel() }

// InMemoryTaskFactory is a reference TaskFactory that invokes a
// user-supplied handler per command name instead of dispatching to a
// real instrument control bus. It exists so the interpreter can be
// exercised end to end without external infrastructure.
type InMemoryTaskFactory struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context, args map[string]any) error
}

func NewInMemoryTaskFactory() *InMemoryTaskFactory {
	return &InMemoryTaskFactory{handlers: map[string]func(ctx context.Context, args map[string]any) error{}}
}

func (f *InMemoryTaskFactory) Handle(name string, h func(ctx context.Context, args map[string]any) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
}

func (f *InMemoryTaskFactory) NewTask(ctx context.Context, name string, args map[string]any) (Task, error) {
	f.mu.RLock()
	h, ok := f.handlers[name]
	f.mu.RUnlock()
	if !ok {
		h = func(context.Context, map[string]any) error { return nil }
	}
	taskCtx, cancel := context.WithCancel(ctx)
	t := &inProcessTask{id: uuid.NewString(), cancel: cancel, done: make(chan error, 1)}
	go func() {
		t.done <- h(taskCtx, args)
	}()
	return t, nil
}
