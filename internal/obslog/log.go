// Package obslog provides the named sub-loggers used across the pipeline,
// mirroring the original Python implementation's logging.getLogger(name)
// convention (sk.lexer, sk.parser, para.lexer, para.parser, interp, ...).
package obslog

import "github.com/sirupsen/logrus"

var base = logrus.New()

// Named returns a logger tagged with "component" = name, matching the
// naming scheme of oscript's Python loggers.
func Named(name string) *logrus.Entry {
	return base.WithField("component", name)
}

// SetLevel adjusts the base logger's verbosity; callers (CLI, tests) use
// this instead of reaching into logrus directly.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}
