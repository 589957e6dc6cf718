package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Levels accepted by the logging configuration, from most to least verbose.
var Levels = []string{"debug", "info", "warn", "error"}

// ValidLevel reports whether lvl is one of Levels.
func ValidLevel(lvl string) bool {
	for _, l := range Levels {
		if l == lvl {
			return true
		}
	}
	return false
}
