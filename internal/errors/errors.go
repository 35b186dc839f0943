package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrVersionConflict = errors.New("version conflict")
)

func NewInternal(format string, a ...interface{}) error {
	return fmt.Errorf("INTERNAL: "+format, a...)
}

func NewNotFound(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, a...)...)
}

func NewConflict(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, a...)...)
}

func NewUnauthorized(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrUnauthorized}, a...)...)
}

func NewValidation(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, a...)...)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInternal reports whether err does not belong to any client-facing class.
func IsInternal(err error) bool {
	return err != nil && !IsNotFound(err) && !IsConflict(err) && !IsUnauthorized(err) &&
		!IsForbidden(err) && !IsValidation(err)
}

// Message strips the sentinel prefix so handlers can show the detail only.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range []error{ErrNotFound, ErrConflict, ErrUnauthorized, ErrForbidden, ErrValidation} {
		if trimmed, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return trimmed
		}
	}
	return msg
}
