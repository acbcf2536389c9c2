package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/rs/zerolog"
)

var log = New(os.Stdout, os.Stderr)

var _ Logger = (*Device)(nil)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Device is a Logger bound to a zerolog.Logger instance.
type Device struct {
	zl zerolog.Logger
}

// splitWriter sends error and fatal records to err, everything else to out.
type splitWriter struct {
	out io.Writer
	err io.Writer
}

func (w splitWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w splitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
}

// New returns a console logger writing to out, with errors going to errOut.
func New(out, errOut io.Writer) *Device {
	w := splitWriter{out: consoleWriter(out), err: consoleWriter(errOut)}
	return &Device{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// Init replaces the package logger and sets the global level.
func Init(level string, out, errOut io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	log = New(out, errOut)
	SetLogLevel(lvl)
	return nil
}

// Default returns the package logger.
func Default() *Device {
	return log
}

// ParseLevel maps a configured level name onto a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.NewFactory().WithData(errors.ErrInvalidLogLevel, level)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

func (d *Device) Debug() *LogEvent {
	return &LogEvent{d.zl.Debug()}
}

func (d *Device) Info() *LogEvent {
	return &LogEvent{d.zl.Info()}
}

func (d *Device) Warn() *LogEvent {
	return &LogEvent{d.zl.Warn()}
}

func (d *Device) Error() *LogEvent {
	return &LogEvent{d.zl.Error()}
}

// ErrorWithCode logs an error message with its error code. The error
// field carries the cause when there is one, so the code's own message
// is not repeated.
func (d *Device) ErrorWithCode(err errors.Error) *LogEvent {
	var cause error = err
	if inner := err.Unwrap(); inner != nil {
		cause = inner
	}
	return &LogEvent{d.zl.Error().
		Str("error_code", string(err.Code())).
		AnErr("error", cause)}
}

// With returns a child logger carrying a component field.
func (d *Device) With(component string) *Device {
	return &Device{zl: d.zl.With().Str("component", component).Logger()}
}

// Debug logs a debug message
func Debug() *LogEvent {
	return log.Debug()
}

// Info logs an info message
func Info() *LogEvent {
	return log.Info()
}

// Warn logs a warning message
func Warn() *LogEvent {
	return log.Warn()
}

// Error logs an error message
func Error() *LogEvent {
	return log.Error()
}
