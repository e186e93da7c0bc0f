// Package nmolog defines the pluggable, reentrant logger contract (spec §6)
// and a default implementation backed by glog, the way the teacher's CLI
// tools lean on glog-style leveled logging for build/install diagnostics.
package nmolog

import (
	"github.com/golang/glog"
)

// Logger is the reentrant, synchronous logging contract consumed by the
// session and pipeline phases. Error/Warn/Info/Debug map onto spec's four
// levels.
type Logger interface {
	Errorf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// glogLogger is the default Logger, delegating to glog's leveled sinks.
// glog is already synchronous and safe for concurrent use, satisfying the
// "reentrant" requirement without extra locking here.
type glogLogger struct{}

// Default returns the glog-backed Logger used when a Context is built
// without an explicit WithLogger option.
func Default() Logger { return glogLogger{} }

func (glogLogger) Errorf(format string, args ...interface{}) { glog.Errorf(format, args...) }
func (glogLogger) Warnf(format string, args ...interface{})  { glog.Warningf(format, args...) }
func (glogLogger) Infof(format string, args ...interface{})  { glog.Infof(format, args...) }
func (glogLogger) Debugf(format string, args ...interface{}) { glog.V(1).Infof(format, args...) }

// Discard is a no-op Logger, useful for tests that don't want glog's flag
// registration side effects.
type discard struct{}

func Discard() Logger { return discard{} }

func (discard) Errorf(string, ...interface{}) {}
func (discard) Warnf(string, ...interface{})  {}
func (discard) Infof(string, ...interface{})  {}
func (discard) Debugf(string, ...interface{}) {}
