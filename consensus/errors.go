package consensus

import (
	"fmt"
	"strings"
)

// PeerError records one failed call to a neighbor
type PeerError struct {
	Addr string
	Op   string
	Err  error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *PeerError) Unwrap() error { return e.Err }

// PeerErrors collects the neighbors a reconciliation pass had to skip
type PeerErrors struct {
	Errors []*PeerError
}

func (e *PeerErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d neighbor(s) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *PeerErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

func (e *PeerErrors) add(addr, op string, err error) {
	e.Errors = append(e.Errors, &PeerError{Addr: addr, Op: op, Err: err})
}

// errOrNil avoids returning a typed nil through the error interface
func (e *PeerErrors) errOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
