package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: results, warnings and errors only
	VerbosityInfo  = 1 // -v: + progress, phase transitions
	VerbosityDebug = 2 // -vv: + per-row parsing, resolver decisions
	VerbosityTrace = 3 // -vvv: + REST call timing, retry decisions
	VerbosityAll   = 4 // -vvvv: + full request/response payloads
)

// VerbosityToLevel maps verbosity flag counts (-v, -vv, ...) to zap levels.
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel
//	2+ (-vv)  -> DebugLevel (zap has no finer levels; use ShouldLog* below)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ShouldLogTrace returns true for verbosity >= 3 (-vvv).
// Use this for per-request transport logging.
func ShouldLogTrace(verbosity int) bool {
	return verbosity >= VerbosityTrace
}

// ShouldLogAll returns true for verbosity >= 4 (-vvvv).
// Use this for dumping full payloads.
func ShouldLogAll(verbosity int) bool {
	return verbosity >= VerbosityAll
}
