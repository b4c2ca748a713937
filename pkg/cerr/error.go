package cerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Error pairs an internal error with a code and a message that is safe to
// show to the end user. The Msg is what reaches Slack; Err stays in the logs.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func NewError(code Code, msg string, underlying error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or Unknown for plain errors.
func CodeOf(err error) Code {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	if IsTimeout(err) {
		return DeadlineExceeded
	}
	return Unknown
}

// UserMessage extracts the user-presentable message from err, falling back
// to a generic one so raw internal errors never leak into chat.
func UserMessage(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) && cerr.Msg != "" {
		return cerr.Msg
	}
	if IsTimeout(err) {
		return "The request timed out. Please try again."
	}
	return "Something went wrong. Please try again or contact an administrator."
}

// IsTimeout reports whether err is a deadline or network timeout, which the
// caller should present as "retry" rather than a downstream failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return IsCode(err, DeadlineExceeded)
}
