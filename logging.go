package paio

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logger receives structured diagnostics for process-lifetime events: init,
// watcher startup, and the rare kernel errors the watcher swallows per
// spec.md §7 ("watcher internal errors ... are swallowed"). It never logs
// per-request completions; those are surfaced to callers through Error and
// Return, not a log stream.
var logger = stumpy.L.New(stumpy.L.WithStumpy())

// SetLogger overrides the package-level logger, for embedding applications
// that want these diagnostics routed elsewhere. It accepts only a
// stumpy-backed logiface logger (for example one writing to a different
// io.Writer); loggers built on other logiface backends have a different
// event type and cannot be passed here. A nil l is ignored.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	if l != nil {
		logger = l
	}
}
