package errors

import (
	"errors"
	"fmt"
)

var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

type appError struct {
	code    ErrorCode
	message string
	err     error
	data    any
}

func (e *appError) Error() string {
	message := e.message
	if message == "" {
		message = GetErrorMessage(e.code)
	}

	if e.data != nil {
		return fmt.Sprintf("%s: %v", message, e.data)
	}

	if e.err != nil {
		return fmt.Sprintf("%s: %v", message, e.err)
	}

	return message
}

func (e *appError) Code() ErrorCode {
	return e.code
}

func (e *appError) WithMessage(msg string) Error {
	return &appError{
		code:    e.code,
		message: msg,
		err:     e.err,
		data:    e.data,
	}
}

func (e *appError) WithData(data any) Error {
	return &appError{
		code:    e.code,
		message: e.message,
		err:     e.err,
		data:    data,
	}
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

// Is matches another coded error by code, so sentinel values built with
// New can be used with errors.Is.
func (e *appError) Is(target error) bool {
	var other *appError
	if !errors.As(target, &other) {
		return false
	}
	return other.code == e.code && other.err == nil && other.data == nil
}

type defaultFactory struct{}

func (*defaultFactory) New(code ErrorCode) Error {
	return &appError{code: code}
}

func (*defaultFactory) Wrap(code ErrorCode, err error) Error {
	return &appError{code: code, err: err}
}

func (*defaultFactory) WithMessage(code ErrorCode, msg string) Error {
	return &appError{code: code, message: msg}
}

func (*defaultFactory) WithData(code ErrorCode, data any) Error {
	return &appError{code: code, data: data}
}

var factory Factory = &defaultFactory{}

// NewFactory returns a Factory for error creation
func NewFactory() Factory {
	return &defaultFactory{}
}

// New creates a coded error without a cause
func New(code ErrorCode) Error {
	return factory.New(code)
}

// Wrap creates a coded error around err
func Wrap(code ErrorCode, err error) Error {
	return factory.Wrap(code, err)
}

// Newf creates a coded error with a formatted message
func Newf(code ErrorCode, format string, args ...any) Error {
	return factory.WithMessage(code, fmt.Sprintf(format, args...))
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	var coded Error
	for err != nil {
		if errors.As(err, &coded) {
			if coded.Code() == code {
				return true
			}
			err = coded.Unwrap()
			continue
		}
		return false
	}
	return false
}

// IsConnectionError reports whether err is fatal to startup.
func IsConnectionError(err error) bool {
	return HasCode(err, ErrConnect)
}

// IsSubmissionError reports whether err came from a single failed send.
func IsSubmissionError(err error) bool {
	return HasCode(err, ErrSubmit)
}
