package command

import (
	"errors"
	"fmt"

	"github.com/any-hub/hubserve/internal/handle"
	"github.com/any-hub/hubserve/internal/server"
)

// Code 是跨进程边界传递的错误类别。
type Code string

const (
	CodeUnknownOperation Code = "unknown_operation"
	CodeInvalidArguments Code = "invalid_arguments"
	CodeAlreadyRunning   Code = "already_running"
	CodeBindError        Code = "bind_error"
	CodeStopError        Code = "stop_error"
	CodeInvalidMethod    Code = "invalid_method"
	CodeInternal         Code = "internal"
)

// Error 是可序列化的命令错误。
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classify 把 handle/server 的错误映射为命令错误码。
func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr
	}

	var (
		bindErr *handle.BindError
		stopErr *handle.StopError
	)
	switch {
	case errors.Is(err, handle.ErrAlreadyRunning):
		return &Error{Code: CodeAlreadyRunning, Message: err.Error()}
	case errors.Is(err, server.ErrInvalidMethod):
		return &Error{Code: CodeInvalidMethod, Message: err.Error()}
	case errors.As(err, &bindErr):
		return &Error{Code: CodeBindError, Message: err.Error()}
	case errors.As(err, &stopErr):
		return &Error{Code: CodeStopError, Message: err.Error()}
	default:
		return &Error{Code: CodeInternal, Message: err.Error()}
	}
}
