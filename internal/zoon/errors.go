package zoon

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindTimeout
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not found"
	default:
		return "generic"
	}
}

var (
	ErrTimeout  = errors.New("timed out")
	ErrNotFound = errors.New("not found")
)

// StepError ties a failure to the page step that produced it.
type StepError struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Errors that did not come from a page step are generic.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindGeneric
}

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return err
	}
	return &StepError{Kind: KindGeneric, Step: step, Err: err}
}

func notFound(step string, what string) error {
	return &StepError{Kind: KindNotFound, Step: step, Err: fmt.Errorf("%w: %s", ErrNotFound, what)}
}
