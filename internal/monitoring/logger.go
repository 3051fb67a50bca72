package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debug enables debug-level progress notes. Binaries flip this from a
// -verbose flag; it defaults to off so hot solver loops stay quiet.
var Debug bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs a debug-level progress note when Debug is enabled.
func Debugf(format string, v ...interface{}) {
	if Debug {
		Logf("DEBUG: "+format, v...)
	}
}

// Warnf logs a degenerate-but-recoverable condition. Logging failures
// never affect the caller; this is diagnostics only.
func Warnf(format string, v ...interface{}) {
	Logf("WARN: "+format, v...)
}
