// Package errors defines the classified error type shared by the native
// engines. Reasons are the stable, human readable strings surfaced to
// callers; codes are their machine friendly counterparts.
package errors

import stderrors "errors"

// Kind groups failures by who can fix them.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed or out-of-range inputs.
	KindValidation
	// KindAuthorization covers bad signatures, replays and role checks.
	KindAuthorization
	// KindEconomic covers balance, allowance and payment mismatches.
	KindEconomic
	// KindState covers operations that are not allowed in the current
	// lifecycle state of a record.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindEconomic:
		return "economic"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Sentinel values are compared by identity
// so errors.Is keeps working through wrapping.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
	scope  string
}

// New returns a classified sentinel. The scope prefixes Error() output in
// the same "<pkg>: <reason>" form as plain sentinel errors.
func New(scope string, kind Kind, code, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason, scope: scope}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.scope == "" {
		return e.Reason
	}
	return e.scope + ": " + e.Reason
}

// KindOf classifies err. Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) && classified != nil {
		return classified.Kind
	}
	return KindUnknown
}

// ReasonOf returns the human readable reason for classified errors and the
// plain error text otherwise.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var classified *Error
	if stderrors.As(err, &classified) && classified != nil {
		return classified.Reason
	}
	return err.Error()
}

// CodeOf returns the machine readable code, or "internal" for unclassified
// errors.
func CodeOf(err error) string {
	var classified *Error
	if stderrors.As(err, &classified) && classified != nil {
		return classified.Code
	}
	return "internal"
}
