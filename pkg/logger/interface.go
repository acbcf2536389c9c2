package logger

import "github.com/iot-go-sdk/simulated-device/pkg/errors"

// Logger defines the logging operations used across the device.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}
