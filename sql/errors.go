package sql

import (
	"errors"
	"fmt"
)

var (
	ErrParse      = errors.New("parse error")
	ErrSchema     = errors.New("schema error")
	ErrConstraint = errors.New("constraint violation")
	ErrCorrupt    = errors.New("corrupt data")
	ErrIO         = errors.New("io failure")
)

// Error carries one of the error kinds above; use errors.Is to test the kind.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(kind error, format string, args ...interface{}) error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// WrapError wraps err with a kind; err is returned unchanged if it already has a kind.
func WrapError(kind error, err error, format string, args ...interface{}) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}
