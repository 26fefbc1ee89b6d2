// Package monitoring holds the diagnostic hooks shared by the exploration
// packages. Nothing in here may influence control flow.
package monitoring

import (
	"log"
	"log/slog"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Event names emitted by the exploration core.
const (
	EventFrontierChosen   = "frontier.chosen"
	EventFrontierNotFound = "frontier.not_found"
	EventAStarSuccess     = "astar.success"
	EventAStarFailure     = "astar.failure"
	EventReplanTrigger    = "replan.trigger"
	EventPathComplete     = "path.complete"
	EventSenseUpdate      = "sense.update"
	EventReactiveStep     = "reactive.step"
)

var events atomic.Pointer[slog.Logger]

func init() {
	events.Store(slog.New(slog.DiscardHandler))
}

// SetEventLogger installs the structured event sink. Passing nil discards events.
func SetEventLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	events.Store(l)
}

// EventLogger returns the current structured event sink.
func EventLogger() *slog.Logger {
	return events.Load()
}

// Emit records a structured event at Info level.
func Emit(event string, attrs ...any) {
	events.Load().Info(event, attrs...)
}

// Debug records a structured event at Debug level.
func Debug(event string, attrs ...any) {
	events.Load().Debug(event, attrs...)
}
