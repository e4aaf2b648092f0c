// Package faults defines the recoverable error kinds shared by the
// credential, local-store and sharing services. Every kind is caller
// correctable; none is fatal to the process.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a fault for the collaborator-facing contract.
type Kind string

const (
	// KindValidation marks malformed or missing input.
	KindValidation Kind = "validation"
	// KindConflict marks a uniqueness violation.
	KindConflict Kind = "conflict"
	// KindAuth marks a missing session or bad credentials.
	KindAuth Kind = "auth"
	// KindNotFound marks an absent referenced entity.
	KindNotFound Kind = "not_found"
	// KindForbidden marks an authenticated but unauthorized access.
	KindForbidden Kind = "forbidden"
	// KindCorruptData marks locally stored state that failed to decode.
	KindCorruptData Kind = "corrupt_data"
	// KindInternal marks storage or connectivity faults surfaced as-is.
	KindInternal Kind = "internal"
)

// Fault carries a kind, a human-readable message and an optional cause.
type Fault struct {
	kind    Kind
	message string
	cause   error
}

// New constructs a Fault of the given kind with a presentable message.
func New(kind Kind, message string) *Fault {
	return &Fault{kind: kind, message: message}
}

// Wrap constructs a Fault that retains the underlying cause.
func Wrap(kind Kind, message string, cause error) *Fault {
	return &Fault{kind: kind, message: message, cause: cause}
}

func (f *Fault) Error() string {
	if f.cause == nil {
		return f.message
	}
	return fmt.Sprintf("%s: %v", f.message, f.cause)
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (f *Fault) Unwrap() error {
	return f.cause
}

// Kind returns the fault's classification.
func (f *Fault) Kind() Kind {
	return f.kind
}

// Message returns the human-readable text without the cause appended.
func (f *Fault) Message() string {
	return f.message
}

// KindOf classifies an arbitrary error. Unknown errors report KindInternal.
func KindOf(err error) Kind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.kind
	}
	return KindInternal
}

// Message extracts the presentable text for an arbitrary error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.message
	}
	return err.Error()
}

// IsKind reports whether err classifies as the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
