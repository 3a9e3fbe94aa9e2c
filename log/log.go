// Package log implements the leveled, dual-mode (text/JSON) logger shared
// across the backup pipeline and both CLIs. All writes funnel through a
// single goroutine so concurrent audit reads and SDK multipart workers never
// interleave partial lines.
package log

import (
	"fmt"
	stdlog "log"
	"os"

	"github.com/fatih/color"

	"github.com/drinkcat/simple-serac/message"
)

var Logger *logger

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// LevelFromString parses the --log flag's value, defaulting to info on an
// unrecognized string rather than failing the whole command.
func LevelFromString(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type logger struct {
	stdoutCh chan string
	donech   chan struct{}
	impl     *stdlog.Logger
	level    Level
	json     bool
}

// Init creates the package-level Logger and starts its drain goroutine.
func Init(level Level, json bool) {
	Logger = New(level, json)
}

// New builds its own stdoutCh rather than sharing a package-level one, so a
// Close'd logger doesn't leave the next Init in the same process sending on
// an already-closed channel.
func New(level Level, json bool) *logger {
	l := &logger{
		stdoutCh: make(chan string, 10000),
		donech:   make(chan struct{}),
		impl:     stdlog.New(os.Stdout, "", 0),
		level:    level,
		json:     json,
	}
	go l.stdout()
	return l
}

// label colorizes the level tag: red for errors, yellow for warnings,
// dimmed for debug. color auto-disables itself when stdout isn't a
// terminal, so redirected/piped output stays plain text.
func label(level Level) string {
	text := fmt.Sprintf("%-7s", level)
	switch level {
	case LevelError:
		return color.RedString(text)
	case LevelWarning:
		return color.YellowString(text)
	case LevelDebug:
		return color.New(color.Faint).Sprint(text)
	default:
		return text
	}
}

func (l *logger) text(level Level, msg message.Message) string {
	return fmt.Sprintf("%s %v", label(level), msg.String())
}

func (l *logger) printf(level Level, msg message.Message) {
	if level < l.level {
		return
	}
	if l.json {
		l.stdoutCh <- msg.JSON()
	} else {
		l.stdoutCh <- l.text(level, msg)
	}
}

func (l *logger) Debug(msg message.Message)   { l.printf(LevelDebug, msg) }
func (l *logger) Info(msg message.Message)    { l.printf(LevelInfo, msg) }
func (l *logger) Warning(msg message.Message) { l.printf(LevelWarning, msg) }
func (l *logger) Error(msg message.Message)   { l.printf(LevelError, msg) }

func (l *logger) stdout() {
	defer close(l.donech)
	for msg := range l.stdoutCh {
		l.impl.Println(msg)
	}
}

func (l *logger) Close() {
	close(l.stdoutCh)
	<-l.donech
}

// package-level convenience wrappers, mirroring how every command calls
// log.Info/log.Error without threading a *logger through every function.

func Debug(msg message.Message) {
	if Logger != nil {
		Logger.Debug(msg)
	}
}

func Info(msg message.Message) {
	if Logger != nil {
		Logger.Info(msg)
	}
}

func Warning(msg message.Message) {
	if Logger != nil {
		Logger.Warning(msg)
	}
}

func Error(msg message.Message) {
	if Logger != nil {
		Logger.Error(msg)
	}
}

func Close() {
	if Logger != nil {
		Logger.Close()
	}
}
