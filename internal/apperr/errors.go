// Package apperr defines the error taxonomy shared by the register engine and
// the layers around it.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownVolume = errors.New("unknown volume")
	ErrNoStrategy    = errors.New("no strategy available")
	ErrAlreadyExists = errors.New("already exists")
)

// RegisterError reports a domain-level failure of a volume register: no
// applicable insertion strategy, a malformed gap, a neighbour-link
// contradiction or an unknown volume. It is raised per record; callers
// processing a batch log it and continue.
type RegisterError struct {
	Volume  string
	Lemma   string
	Message string
	Err     error
}

func (e *RegisterError) Error() string {
	switch {
	case e.Volume != "" && e.Lemma != "":
		return fmt.Sprintf("register %s: lemma %q: %s", e.Volume, e.Lemma, e.Message)
	case e.Volume != "":
		return fmt.Sprintf("register %s: %s", e.Volume, e.Message)
	default:
		return "register: " + e.Message
	}
}

func (e *RegisterError) Unwrap() error { return e.Err }

// ValidationError reports a lemma or record that failed validation.
type ValidationError struct {
	Lemma string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Lemma == "" {
		return fmt.Sprintf("validation: %v", e.Err)
	}
	return fmt.Sprintf("validation: lemma %q: %v", e.Lemma, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsRecordError reports whether err belongs to a single record (a register or
// validation failure) rather than to the infrastructure.
func IsRecordError(err error) bool {
	var regErr *RegisterError
	var valErr *ValidationError
	return errors.As(err, &regErr) || errors.As(err, &valErr)
}
