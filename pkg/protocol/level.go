package protocol

import "log/slog"

// Level is the integer severity carried by error and log events.
// The numbering is part of the wire contract and must not change.
type Level int

const (
	LevelNotice  Level = 1
	LevelError   Level = 2
	LevelWarn    Level = 3
	LevelInfo    Level = 4
	LevelDebug   Level = 5
	LevelVerbose Level = 6
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelNotice:
		return "NOTICE"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelVerbose:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// LevelFromSlog maps an slog level onto the wire severity scale.
func LevelFromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}
