package interp

import (
	"context"
	"sync"

	"github.com/naojsoft/oscript/internal/obserr"
)

// CriticalSection is the single global mutual-exclusion lock every
// executor contends for around a skeleton's :MAIN_START...:MAIN_END
// region (spec §5): only one executor may be running inside any
// skeleton's main part at a time, across the whole process.
type CriticalSection struct {
	ch chan struct{}
}

// NewCriticalSection returns an unlocked CriticalSection.
func NewCriticalSection() *CriticalSection {
	cs := &CriticalSection{ch: make(chan struct{}, 1)}
	cs.ch <- struct{}{}
	return cs
}

// Acquire blocks until the lock is free or ctx is cancelled, whichever
// comes first. It does not look at the executor's own cancel flag.
// Grounded on skTask.py's skExecutorTask, which wraps critical-section
// acquisition in a cancellable wait rather than an unconditional lock.
func (cs *CriticalSection) Acquire(ctx context.Context) error {
	select {
	case <-cs.ch:
		return nil
	case <-ctx.Done():
		return obserr.Cancel{}
	}
}

// Release always releases, even on the error path out of the
// protected region, matching the "critical-section lock always
// released on error" propagation rule (spec §7).
func (cs *CriticalSection) Release() {
	select {
	case cs.ch <- struct{}{}:
	default:
	}
}

// execOnce guards a one-shot action (e.g. a skeleton's preamble) so it
// runs exactly once regardless of how many executors reference it.
type execOnce struct {
	mu   sync.Mutex
	done map[string]bool
}

func newExecOnce() *execOnce { return &execOnce{done: map[string]bool{}} }

func (o *execOnce) runOnce(key string, f func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done[key] {
		return nil
	}
	if err := f(); err != nil {
		return err
	}
	o.done[key] = true
	return nil
}
