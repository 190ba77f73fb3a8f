package client

import (
	"errors"
	"fmt"

	"github.com/BioHazard786/hearth/internal/ui"
)

var (
	ErrClosed          = errors.New("client closed")
	ErrDisconnected    = errors.New("disconnected from relay")
	ErrReconnectFailed = errors.New("could not reconnect to relay")
	ErrTimeout         = errors.New("timeout")
	ErrCallRejected    = errors.New("call rejected")
	ErrCallFailed      = errors.New("call failed")
	ErrCallEnded       = errors.New("call ended by peer")
)

// Error describes a failed client operation.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Print() {
	ui.PrintError(e.Error())
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}

// PrintErr prints any error the way Error.Print does.
func PrintErr(err error) {
	ui.PrintError(err.Error())
}
