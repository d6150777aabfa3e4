package logger

import (
	"io"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

// Logger is the logging surface used across the module.
// expected args: an error and/or a map[string]interface{} of extra fields
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Options configures the rollbar reporter.
type Options struct {
	RollbarToken string
	Env          string
	Host         string
	Build        string
	Debug        bool
}

type RollbarLogger struct {
	std *log.Logger
}

var _ Logger = (*RollbarLogger)(nil)

// NewRollbarLogger writes every entry to std and reports it to rollbar when
// a token is set and debug mode is off.
func NewRollbarLogger(std *log.Logger, opts Options) *RollbarLogger {
	rollbar.SetToken(opts.RollbarToken)
	rollbar.SetEnvironment(opts.Env)
	rollbar.SetServerHost(opts.Host)
	rollbar.SetCodeVersion(opts.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(opts.RollbarToken != "" && !opts.Debug)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close flushes pending rollbar reports.
func (l RollbarLogger) Close() {
	rollbar.Wait()
}

func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	return append([]interface{}{msg}, args...)
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		l.std.Printf("  %+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

// StdLogger writes to a standard logger only.
type StdLogger struct {
	std *log.Logger
}

var _ Logger = StdLogger{}

func NewStdLogger(std *log.Logger) StdLogger {
	return StdLogger{std: std}
}

func (l StdLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l StdLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l StdLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l StdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l StdLogger) print(level, msg string, args []interface{}) {
	RollbarLogger{std: l.std}.print(level, msg, args)
}

// Discard drops everything.
var Discard Logger = NewStdLogger(log.New(io.Discard, "", 0))
