package logger

import (
	"bytes"
	"io"
	"testing"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsGoToErrWriter(t *testing.T) {
	SetLogLevel(DebugLevel)
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	var out, errOut bytes.Buffer
	l := New(&out, &errOut)

	l.Info().Msgf("Sending message: %s", `{"temperature":"23.45"}`)
	l.Error().Err(io.EOF).Msg("Failed to send message")

	assert.Contains(t, out.String(), "Sending message")
	assert.NotContains(t, out.String(), "Failed to send message")
	assert.Contains(t, errOut.String(), "Failed to send message")
	assert.Contains(t, errOut.String(), "EOF")
}

func TestErrorWithCode(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut)

	l.ErrorWithCode(errors.Wrap(errors.ErrConnect, io.EOF)).Msg("Could not connect")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "error_code=connect_failed")
	assert.Contains(t, errOut.String(), "error=EOF")
	assert.NotContains(t, errOut.String(), "Could not connect: EOF")
}

func TestErrorWithCodeWithoutCause(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut)

	l.ErrorWithCode(errors.New(errors.ErrNotOpen)).Msg("Failed to send message")

	assert.Contains(t, errOut.String(), "error_code=connection_not_open")
	assert.Contains(t, errOut.String(), "Connection is not open")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestLevelFiltering(t *testing.T) {
	SetLogLevel(WarnLevel)
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	var out, errOut bytes.Buffer
	l := New(&out, &errOut)
	l.Info().Msg("Client connected")
	l.Warn().Msg("in-flight limit reached")

	assert.NotContains(t, out.String(), "Client connected")
	assert.Contains(t, out.String(), "in-flight limit reached")
}
