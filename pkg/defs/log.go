package defs

// LogLevel is the verbosity threshold for loggers created by the logging configurer.
type LogLevel string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLogLevelStr parses the given string into a LogLevel.
func ParseLogLevelStr(level string) (LogLevel, error) {
	return parseEnumCaseInsensitive(level, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)
}

// LogHandler selects the slog handler implementation.
type LogHandler string

// Supported log handler types.
const (
	JSONHandler LogHandler = "json"
	TextHandler LogHandler = "text"
)

// ParseLogHandlerStr parses the given string into a LogHandler.
func ParseLogHandlerStr(handler string) (LogHandler, error) {
	return parseEnumCaseInsensitive(handler, JSONHandler, TextHandler)
}
