package blockchain

import (
	"errors"
	"fmt"
)

// RejectReason says why a transaction was not admitted to the pool
type RejectReason string

const (
	ReasonSelfTransfer RejectReason = "self_transfer"
	ReasonBadSignature RejectReason = "bad_signature"
	ReasonDuplicate    RejectReason = "duplicate"
)

// ErrRejected is returned by AddTransaction. Compare with errors.Is against
// ErrSelfTransfer, ErrBadSignature or ErrDuplicate.
type ErrRejected struct {
	Reason RejectReason
}

var (
	ErrSelfTransfer = &ErrRejected{Reason: ReasonSelfTransfer}
	ErrBadSignature = &ErrRejected{Reason: ReasonBadSignature}
	ErrDuplicate    = &ErrRejected{Reason: ReasonDuplicate}
)

func (e *ErrRejected) Error() string {
	switch e.Reason {
	case ReasonSelfTransfer:
		return "transaction rejected: sender and receiver are the same address"
	case ReasonBadSignature:
		return "transaction rejected: invalid transaction signature"
	case ReasonDuplicate:
		return "transaction rejected: transaction already exists in pool"
	}
	return fmt.Sprintf("transaction rejected: %s", e.Reason)
}

func (e *ErrRejected) Is(target error) bool {
	t, ok := target.(*ErrRejected)
	return ok && t.Reason == e.Reason
}

// ErrMalformedCredential is returned when externally supplied key material cannot be used
type ErrMalformedCredential struct {
	Field string
	Err   error
}

func (e *ErrMalformedCredential) Error() string {
	return fmt.Sprintf("malformed credential %s: %v", e.Field, e.Err)
}

func (e *ErrMalformedCredential) Unwrap() error { return e.Err }

// ErrCorruptEncoding is returned when an encoded transaction cannot be decoded
type ErrCorruptEncoding struct {
	Offset int
	Reason string
}

func (e *ErrCorruptEncoding) Error() string {
	return fmt.Sprintf("corrupt transaction encoding at byte %d: %s", e.Offset, e.Reason)
}

// ErrMine wraps the reason a mining attempt appended no block
type ErrMine struct {
	Err error
}

func (e *ErrMine) Error() string {
	return fmt.Sprintf("mining failed: %v", e.Err)
}

func (e *ErrMine) Unwrap() error { return e.Err }

// ErrStaleTip means a candidate block no longer links to the chain tip
var ErrStaleTip = errors.New("candidate block does not extend the current tip")

// ErrBlockNotFound carries the criterion that produced no match
type ErrBlockNotFound struct {
	Criterion SearchCriterion
}

func (e *ErrBlockNotFound) Error() string {
	return fmt.Sprintf("no block found by %s", e.Criterion)
}

// ErrInvalidChain describes the first rule a candidate chain breaks
type ErrInvalidChain struct {
	Index  int
	Reason string
}

func (e *ErrInvalidChain) Error() string {
	return fmt.Sprintf("invalid chain at block %d: %s", e.Index, e.Reason)
}
