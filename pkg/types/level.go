package types

import "strings"

// Level is the normalized severity of a log record. The numeric values are
// chosen so that >= expresses "at least as severe" and leave room between
// the standard levels (NOTICE sits between INFO and WARNING). LevelUnknown
// compares below every real level.
type Level int

const (
	LevelUnknown   Level = -1
	LevelTrace     Level = 0
	LevelDebug     Level = 10
	LevelInfo      Level = 20
	LevelNotice    Level = 25
	LevelWarning   Level = 30
	LevelError     Level = 40
	LevelCritical  Level = 50
	LevelAlert     Level = 60
	LevelEmergency Level = 70
)

var levelNames = map[Level]string{
	LevelUnknown:   "UNKNOWN",
	LevelTrace:     "TRACE",
	LevelDebug:     "DEBUG",
	LevelInfo:      "INFO",
	LevelNotice:    "NOTICE",
	LevelWarning:   "WARNING",
	LevelError:     "ERROR",
	LevelCritical:  "CRITICAL",
	LevelAlert:     "ALERT",
	LevelEmergency: "EMERGENCY",
}

// levelAliases maps every accepted spelling to its level: canonical names,
// common aliases, single-letter shortcuts and the RFC 5424 numeric
// severities 0-7.
var levelAliases = map[string]Level{
	"trace":     LevelTrace,
	"debug":     LevelDebug,
	"info":      LevelInfo,
	"notice":    LevelNotice,
	"warning":   LevelWarning,
	"error":     LevelError,
	"critical":  LevelCritical,
	"alert":     LevelAlert,
	"emergency": LevelEmergency,
	"unknown":   LevelUnknown,

	"warn":          LevelWarning,
	"err":           LevelError,
	"fatal":         LevelCritical,
	"crit":          LevelCritical,
	"emerg":         LevelEmergency,
	"panic":         LevelEmergency,
	"information":   LevelInfo,
	"informational": LevelInfo,
	"verbose":       LevelDebug,

	"t": LevelTrace,
	"d": LevelDebug,
	"i": LevelInfo,
	"n": LevelNotice,
	"w": LevelWarning,
	"e": LevelError,
	"c": LevelCritical,
	"f": LevelCritical,
	"a": LevelAlert,

	"0": LevelEmergency,
	"1": LevelAlert,
	"2": LevelCritical,
	"3": LevelError,
	"4": LevelWarning,
	"5": LevelNotice,
	"6": LevelInfo,
	"7": LevelDebug,
}

// String returns the enum name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a level spelling to a Level. Matching is case-insensitive
// and trims surrounding whitespace. Unrecognized input yields LevelUnknown.
func ParseLevel(s string) Level {
	key := strings.ToLower(strings.TrimSpace(s))
	if level, ok := levelAliases[key]; ok {
		return level
	}
	return LevelUnknown
}

// LevelFromSeverity maps an RFC 5424 syslog severity (0-7) to a Level.
func LevelFromSeverity(severity int) Level {
	switch severity {
	case 0:
		return LevelEmergency
	case 1:
		return LevelAlert
	case 2:
		return LevelCritical
	case 3:
		return LevelError
	case 4:
		return LevelWarning
	case 5:
		return LevelNotice
	case 6:
		return LevelInfo
	case 7:
		return LevelDebug
	default:
		return LevelUnknown
	}
}
