package logger

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel orders message severities from most to least verbose.
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// current holds the active level for the whole process. The proxy is a single
// co-located helper next to the player, so one shared level is enough.
var current atomic.Int32

func init() {
	current.Store(int32(INFO))
}

// ParseLogLevel converts a config string into a LogLevel, defaulting to INFO.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// SetLogLevel sets the process-wide log level from its string form.
func SetLogLevel(level string) {
	current.Store(int32(ParseLogLevel(level)))
}

// GetLogLevel returns the active log level as a string.
func GetLogLevel() string {
	switch LogLevel(current.Load()) {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

func shouldLog(level LogLevel) bool {
	return level >= LogLevel(current.Load())
}

func logMessage(level string, format string, v ...interface{}) {
	log.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}

// Debug logs debug level messages.
func Debug(format string, v ...interface{}) {
	if shouldLog(DEBUG) {
		logMessage("DEBUG", format, v...)
	}
}

// Info logs info level messages.
func Info(format string, v ...interface{}) {
	if shouldLog(INFO) {
		logMessage("INFO", format, v...)
	}
}

// Warn logs warning level messages.
func Warn(format string, v ...interface{}) {
	if shouldLog(WARN) {
		logMessage("WARN", format, v...)
	}
}

// Error logs error level messages.
func Error(format string, v ...interface{}) {
	if shouldLog(ERROR) {
		logMessage("ERROR", format, v...)
	}
}
