package main

import (
	"github.com/naojsoft/oscript/internal/collab"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/naojsoft/oscript/internal/interp"
	"github.com/naojsoft/oscript/internal/obsconfig"
)

// newDemoExecutor wires an interp.Executor against the in-memory
// reference collaborators, so a file can be run standalone without a
// real instrument control bus. Every abstract/direct-dispatch command
// that has no registered handler is a silent no-op task (see
// collab.InMemoryTaskFactory.NewTask), matching the CLI's role as a
// convenience wrapper rather than a production runner.
func newDemoExecutor(e *env.Environment, tf *collab.InMemoryTaskFactory, cfg obsconfig.Config) *interp.Executor {
	cs := interp.NewCriticalSection()
	return interp.New(e, tf, collab.NoopMonitor{}, cs, cfg)
}
