// Package log is a small leveled wrapper around the standard library
// logger, in the spirit of straight-to-stderr prints but with
// a level gate controlled by the LIBGRIP_LOG environment variable
// (debug|info|warn|error, default info).
package log

import (
	"log"
	"os"
	"strings"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var names = map[string]Level{
	"debug": Debug,
	"info":  Info,
	"warn":  Warn,
	"error": Error,
}

var current = levelFromEnv()

func levelFromEnv() Level {
	if lvl, ok := names[strings.ToLower(os.Getenv("LIBGRIP_LOG"))]; ok {
		return lvl
	}
	return Info
}

// Logger tags every line with a component name, e.g. "handler.motion".
type Logger struct {
	component string
}

func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if level < current {
		return
	}
	log.Printf("%s [%s] "+format, append([]any{prefix, l.component}, args...)...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, "ERROR", format, args...) }
